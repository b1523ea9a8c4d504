package pool

import (
	"context"
	"fmt"
	"time"
)

// Wait блокируется, пока в полёте есть action, но не дольше timeout
// (timeout <= 0 — без ограничения).
//
// Ждёт порциями не длиннее AllowAbortAfter и после каждой порции вытесняет
// stale action, поэтому каждый action получает свой grace period, но не
// больше. Если timeout истёк и terminateWorkers установлен, все worker'ы
// завершаются принудительно.
//
// ErrWaitNotConverged означает нарушение инварианта пула.
func (p *Pool) Wait(ctx context.Context, timeout time.Duration, terminateWorkers bool) error {
	return p.wait(ctx, timeout, terminateWorkers, ErrWorkerTerminated)
}

func (p *Pool) wait(ctx context.Context, timeout time.Duration, terminateWorkers bool, reason error) error {
	p.mu.Lock()
	state := p.state
	p.mu.Unlock()
	if state == StateInit {
		p.logger.Error("pool is not started")
		return nil
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for i := 0; ; i++ {
		p.FetchStartedIDs()

		// Ждём первый (самый старый) action, остальные проверяются после.
		h, inFlight := p.oldestPending()
		if h == nil {
			return nil
		}

		if i >= p.maxWaitLoops {
			p.logger.Error("pool wait did not converge", "iterations", i, "in_flight", inFlight)
			return fmt.Errorf("%w: %d actions in flight after %d iterations", ErrWaitNotConverged, inFlight, i)
		}

		slice := p.cfg.AllowAbortAfter
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				p.logger.Debug("pool wait reached timeout", "in_flight", inFlight)
				if terminateWorkers {
					p.killWorkers(reason)
				}
				return nil
			}
			slice = min(slice, remaining)
		}

		timer := time.NewTimer(slice)
		select {
		case <-h.done:
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		timer.Stop()

		p.KillStaleActions(p.InFlight())
	}
}

// oldestPending возвращает handle action с наименьшим id и число action в полёте.
func (p *Pool) oldestPending() (*handle, int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var oldest *pendingAction
	for _, pa := range p.pending {
		if oldest == nil || pa.id < oldest.id {
			oldest = pa
		}
	}
	if oldest == nil {
		return nil, 0
	}
	return oldest.result, p.inFlight
}
