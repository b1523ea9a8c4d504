package pool

import (
	"fmt"
	"slices"
)

// Statistic — снимок состояния пула.
//
// Active и Queued — оценка: action считается активным, когда его worker
// прислал pid, но отчёт может задерживаться в liveness-канале.
type Statistic struct {
	State State `json:"state"`

	OK      []uint64 `json:"ok"`
	Skipped []uint64 `json:"skipped"`
	Aborted []uint64 `json:"aborted"`
	Failed  []uint64 `json:"failed"`

	InFlight int `json:"in_flight"`
	Active   int `json:"active"`
	Queued   int `json:"queued"`
	Workers  int `json:"workers"`
}

// Statistic возвращает снимок счётчиков пула.
func (p *Pool) Statistic() Statistic {
	p.FetchStartedIDs()

	p.mu.Lock()
	defer p.mu.Unlock()

	active := 0
	for _, pa := range p.pending {
		if pa.pid != 0 {
			active++
		}
	}
	active = min(active, p.cfg.Processes)

	return Statistic{
		State:    p.state,
		OK:       slices.Clone(p.counters.ok),
		Skipped:  slices.Clone(p.counters.skipped),
		Aborted:  slices.Clone(p.counters.aborted),
		Failed:   slices.Clone(p.counters.failed),
		InFlight: p.inFlight,
		Active:   active,
		Queued:   p.inFlight - active,
		Workers:  len(p.workers),
	}
}

// String форматирует статистику для логов и CLI.
func (s Statistic) String() string {
	return fmt.Sprintf(" Tasks        ok: %v\n"+
		" Tasks   skipped: %v\n"+
		" Tasks   aborted: %v\n"+
		" Tasks    failed: %v\n"+
		"#Tasks    active: %d\n"+
		"#Tasks not begun: %d",
		ids(s.OK), ids(s.Skipped), ids(s.Aborted), ids(s.Failed), s.Active, s.Queued)
}

func ids(v []uint64) []uint64 {
	if v == nil {
		return []uint64{}
	}
	return v
}
