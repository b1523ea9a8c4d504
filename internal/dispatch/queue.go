package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/Feedactions/internal/mq"
)

// QueueHandler возвращает обработчик очереди actions.requested.
//
// Некорректные запросы (подпись, каталог, пустые поля) подтверждаются
// и отбрасываются. Отказ пула уходит в DLQ.
func (d *Dispatcher) QueueHandler() mq.Handler {
	return func(ctx context.Context, msg *mq.Message) error {
		payload, err := mq.ParsePayload[mq.ActionRequestedPayload](msg, mq.MessageTypeActionRequested)
		if err != nil {
			return fmt.Errorf("%w: %w", mq.ErrDiscard, err)
		}

		_, err = d.Dispatch(ctx, Request{
			Action:    payload.Action,
			URL:       payload.URL,
			Signature: payload.Signature,
		})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrRejected), errors.Is(err, context.Canceled):
			return err
		default:
			return fmt.Errorf("%w: %w", mq.ErrDiscard, err)
		}
	}
}
