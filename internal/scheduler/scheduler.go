package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/Feedactions/internal/pool"
)

// PoolSource — то, что scheduler требует от пула.
type PoolSource interface {
	Statistic() pool.Statistic
	FetchStartedIDs() int
}

// Config — конфигурация Scheduler. Пустое расписание отключает задачу.
type Config struct {
	Pool     PoolSource
	Stats    string
	Liveness string
	Logger   *slog.Logger
}

// Scheduler — обёртка над cron с задачами пула.
type Scheduler struct {
	cron   *cron.Cron
	pool   PoolSource
	logger *slog.Logger
}

// New создаёт Scheduler и регистрирует задачи.
func New(cfg Config) (*Scheduler, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")

	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithParser(cronParser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		pool:   cfg.Pool,
		logger: logger,
	}

	jobs := []struct {
		name string
		spec string
		fn   func()
	}{
		{"stats", cfg.Stats, s.ReportStats},
		{"liveness", cfg.Liveness, s.DrainLiveness},
	}
	for _, j := range jobs {
		if j.spec == "" {
			continue
		}
		if _, err := s.cron.AddFunc(j.spec, j.fn); err != nil {
			return nil, fmt.Errorf("schedule %s job %q: %w", j.name, j.spec, err)
		}
		logger.Debug("job scheduled", "job", j.name, "spec", j.spec)
	}

	return s, nil
}

// Start запускает cron в фоне.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop останавливает cron и ждёт выполняющиеся задачи (не дольше ctx).
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReportStats пишет статистику пула в лог.
func (s *Scheduler) ReportStats() {
	st := s.pool.Statistic()
	s.logger.Info("pool statistics",
		"state", st.State,
		"ok", len(st.OK),
		"failed", len(st.Failed),
		"aborted", len(st.Aborted),
		"skipped", len(st.Skipped),
		"in_flight", st.InFlight,
		"active", st.Active,
		"queued", st.Queued,
		"workers", st.Workers,
	)
}

// DrainLiveness применяет накопившиеся liveness-записи.
func (s *Scheduler) DrainLiveness() {
	if n := s.pool.FetchStartedIDs(); n > 0 {
		s.logger.Debug("liveness records applied", "count", n)
	}
}
