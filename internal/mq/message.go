package mq

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Feedactions/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeActionRequested MessageType = "action.requested"
	MessageTypeActionFinished  MessageType = "action.finished"
)

// ErrWrongType — payload прочитан не тем типом.
var ErrWrongType = errors.New("unexpected message type")

// Message — конверт сообщения. Payload хранится сырым JSON
// и разбирается получателем через ParsePayload.
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage упаковывает payload в конверт с новым ID.
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}

	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// ActionRequestedPayload — запрос на выполнение действия каталога.
type ActionRequestedPayload struct {
	Action    string `json:"action"`
	URL       string `json:"url"`
	Signature string `json:"signature"`
}

// ActionFinishedPayload — итог action, классифицированного пулом.
type ActionFinishedPayload struct {
	Instance uuid.UUID           `json:"instance"`
	Record   domain.ActionRecord `json:"record"`
}

// ParsePayload разбирает payload сообщения ожидаемого типа.
func ParsePayload[T any](msg *Message, want MessageType) (T, error) {
	var result T

	if msg.Type != want {
		return result, fmt.Errorf("%w: got %q, want %q", ErrWrongType, msg.Type, want)
	}
	if err := json.Unmarshal(msg.Payload, &result); err != nil {
		return result, fmt.Errorf("unmarshal %s payload: %w", want, err)
	}
	return result, nil
}
