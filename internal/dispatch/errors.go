package dispatch

import "errors"

// Ошибки диспетчера.
var (
	// ErrBadSignature — подпись запроса не совпала.
	ErrBadSignature = errors.New("wrong signature for this url")

	// ErrRejected — пул переполнен, запрос можно повторить позже.
	ErrRejected = errors.New("action rejected, try again later")

	// ErrMissingField — в запросе нет обязательного поля.
	ErrMissingField = errors.New("missing request field")
)
