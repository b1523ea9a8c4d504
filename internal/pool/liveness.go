package pool

import "github.com/shaiso/Feedactions/internal/wire"

// FetchStartedIDs неблокирующе вычитывает liveness-канал и переносит
// pid и время старта в записи pending. Возвращает число прочитанных записей.
//
// Записи для уже завершённых action отбрасываются.
func (p *Pool) FetchStartedIDs() int {
	p.mu.Lock()
	ch := p.liveness
	p.mu.Unlock()

	if ch == nil {
		return 0
	}

	n := 0
	for {
		select {
		case l, ok := <-ch:
			if !ok {
				return n
			}
			p.applyLiveness(l)
			n++
		default:
			return n
		}
	}
}

// applyLiveness обновляет запись pending по liveness-записи.
func (p *Pool) applyLiveness(l wire.Liveness) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pa, ok := p.pending[l.ID]
	if !ok {
		return
	}
	pa.pid = l.PID
	pa.startedAt = l.StartedAt
}
