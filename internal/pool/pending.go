package pool

import (
	"sort"
	"sync"
	"time"

	"github.com/shaiso/Feedactions/internal/domain"
)

// handle — результат action, который можно ждать.
type handle struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newHandle() *handle {
	return &handle{done: make(chan struct{})}
}

// resolve завершает handle. Повторные вызовы игнорируются.
func (h *handle) resolve(err error) {
	h.once.Do(func() {
		h.err = err
		close(h.done)
	})
}

// pendingAction — action в полёте.
//
// startedAt и pid известны только после liveness-записи worker'а.
// Изменяется только под мьютексом пула.
type pendingAction struct {
	id          uint64
	name        string
	submittedAt time.Time
	startedAt   time.Time
	pid         int
	workerID    string
	result      *handle
}

func newPendingAction(id uint64, name string, now time.Time) *pendingAction {
	return &pendingAction{
		id:          id,
		name:        name,
		submittedAt: now,
		result:      newHandle(),
	}
}

// started сообщает, прислал ли worker liveness для этого action.
func (pa *pendingAction) started() bool {
	return !pa.startedAt.IsZero()
}

// exceeded проверяет, вышел ли action за grace period.
func (pa *pendingAction) exceeded(now time.Time, grace time.Duration) bool {
	return pa.started() && now.Sub(pa.startedAt) > grace
}

// record формирует запись для слушателей.
func (pa *pendingAction) record(status domain.ActionStatus, finishedAt time.Time, errText string) domain.ActionRecord {
	rec := domain.ActionRecord{
		ID:          pa.id,
		Name:        pa.name,
		Status:      status,
		WorkerID:    pa.workerID,
		WorkerPID:   pa.pid,
		SubmittedAt: pa.submittedAt,
		FinishedAt:  finishedAt,
		Error:       errText,
	}
	if pa.started() {
		started := pa.startedAt
		rec.StartedAt = &started
	}
	return rec
}

// selectStale выбирает до n action, превысивших grace period.
// Порядок: самый ранний старт первым, при равенстве — меньший id.
func selectStale(pending map[uint64]*pendingAction, n int, now time.Time, grace time.Duration) []*pendingAction {
	if n <= 0 {
		return nil
	}

	var stale []*pendingAction
	for _, pa := range pending {
		if pa.exceeded(now, grace) {
			stale = append(stale, pa)
		}
	}

	sort.Slice(stale, func(i, j int) bool {
		if !stale[i].startedAt.Equal(stale[j].startedAt) {
			return stale[i].startedAt.Before(stale[j].startedAt)
		}
		return stale[i].id < stale[j].id
	})

	if len(stale) > n {
		stale = stale[:n]
	}
	return stale
}

// counters — списки id по статусам. Не очищаются за время жизни пула.
type counters struct {
	ok      []uint64
	failed  []uint64
	aborted []uint64
	skipped []uint64
}

func (c *counters) add(status domain.ActionStatus, id uint64) {
	switch status {
	case domain.ActionStatusOK:
		c.ok = append(c.ok, id)
	case domain.ActionStatusFailed:
		c.failed = append(c.failed, id)
	case domain.ActionStatusAborted:
		c.aborted = append(c.aborted, id)
	case domain.ActionStatusSkipped:
		c.skipped = append(c.skipped, id)
	}
}
