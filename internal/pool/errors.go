package pool

import "errors"

// Ошибки пула.
var (
	// ErrInvalidConfig — некорректная конфигурация пула.
	ErrInvalidConfig = errors.New("invalid pool config")

	// ErrStaleAction — action превысил grace period и вытеснен пулом.
	ErrStaleAction = errors.New("stale action")

	// ErrWorkerTerminated — worker принудительно остановлен пулом.
	ErrWorkerTerminated = errors.New("worker terminated by pool")

	// ErrPoolStopped — action не был выполнен: пул остановлен.
	ErrPoolStopped = errors.New("pool stopped")

	// ErrWorkerExited — worker завершился, не вернув результат.
	ErrWorkerExited = errors.New("worker exited without result")

	// ErrWaitNotConverged — Wait не сошёлся за допустимое число итераций.
	// Это нарушение инварианта пула, а не штатная ситуация.
	ErrWaitNotConverged = errors.New("pool wait did not converge")
)
