package worker

import "errors"

// Ошибки воркера.
var (
	// ErrNoTask — пул закрыл канал, не передав задачу.
	ErrNoTask = errors.New("no task received")

	// ErrProtocol — не удалось прочитать или записать сообщение протокола.
	ErrProtocol = errors.New("worker protocol error")

	// ErrActionPanic — action завершился panic.
	ErrActionPanic = errors.New("action panicked")
)
