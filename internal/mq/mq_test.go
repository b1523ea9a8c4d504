package mq

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Feedactions/internal/domain"
)

func TestParsePayload(t *testing.T) {
	msg, err := NewMessage(MessageTypeActionRequested, ActionRequestedPayload{
		Action: "download", URL: "https://example.org/a.mp3", Signature: "abc",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)

	got, err := ParsePayload[ActionRequestedPayload](msg, MessageTypeActionRequested)
	require.NoError(t, err)
	assert.Equal(t, "download", got.Action)
	assert.Equal(t, "https://example.org/a.mp3", got.URL)

	_, err = ParsePayload[ActionRequestedPayload](msg, MessageTypeActionFinished)
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestFinishedPayloadKeepsRecord(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	rec := domain.ActionRecord{
		ID: 7, Name: "wget", Status: domain.ActionStatusFailed,
		SubmittedAt: now, FinishedAt: now.Add(time.Second), Error: "exit status 1",
	}
	inst := uuid.New()

	msg, err := NewMessage(MessageTypeActionFinished, ActionFinishedPayload{Instance: inst, Record: rec})
	require.NoError(t, err)

	got, err := ParsePayload[ActionFinishedPayload](msg, MessageTypeActionFinished)
	require.NoError(t, err)
	assert.Equal(t, inst, got.Instance)
	assert.Equal(t, uint64(7), got.Record.ID)
	assert.Equal(t, domain.ActionStatusFailed, got.Record.Status)
}

func TestDisposition(t *testing.T) {
	assert.Equal(t, dispAck, dispositionOf(nil))
	assert.Equal(t, dispDiscard, dispositionOf(fmt.Errorf("bad signature: %w", ErrDiscard)))
	assert.Equal(t, dispDeadLetter, dispositionOf(errors.New("pool is full")))
}

func TestTopologyDeadLettersRequests(t *testing.T) {
	var requested binding
	for _, b := range topology() {
		if b.queue == QueueActionsRequested {
			requested = b
		}
	}
	require.Equal(t, ExchangeActions, requested.exchange)
	assert.Equal(t, string(ExchangeDLQ), requested.args["x-dead-letter-exchange"])
	assert.Equal(t, string(RoutingKeyDLQActions), requested.args["x-dead-letter-routing-key"])
}
