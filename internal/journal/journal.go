package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Feedactions/internal/domain"
)

const (
	// DefaultBuffer — размер буфера записей по умолчанию.
	DefaultBuffer = 256

	// DefaultSaveTimeout — таймаут одной записи в приёмник.
	DefaultSaveTimeout = 5 * time.Second
)

// Sink — приёмник записей журнала.
type Sink interface {
	Save(ctx context.Context, rec domain.ActionRecord) error
}

// SinkFunc — адаптер функции к Sink.
type SinkFunc func(ctx context.Context, rec domain.ActionRecord) error

// Save вызывает f(ctx, rec).
func (f SinkFunc) Save(ctx context.Context, rec domain.ActionRecord) error {
	return f(ctx, rec)
}

// Config — конфигурация Journal.
type Config struct {
	Sinks       map[string]Sink
	Buffer      int
	SaveTimeout time.Duration
	Logger      *slog.Logger
}

// Journal — асинхронная раздача записей приёмникам.
type Journal struct {
	sinks       map[string]Sink
	saveTimeout time.Duration
	logger      *slog.Logger

	records chan domain.ActionRecord

	mu      sync.Mutex
	running bool
	stopped bool
	dropped uint64
	done    chan struct{}
}

// New создаёт Journal.
func New(cfg Config) *Journal {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultBuffer
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = DefaultSaveTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Journal{
		sinks:       cfg.Sinks,
		saveTimeout: cfg.SaveTimeout,
		logger:      cfg.Logger.With("component", "journal"),
		records:     make(chan domain.ActionRecord, cfg.Buffer),
		done:        make(chan struct{}),
	}
}

// Start запускает фоновую раздачу. Повторный вызов ничего не делает.
func (j *Journal) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running || j.stopped {
		return
	}
	j.running = true
	go j.loop()
}

// ActionFinished кладёт запись в буфер без блокировки.
func (j *Journal) ActionFinished(rec domain.ActionRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.stopped {
		return
	}

	select {
	case j.records <- rec:
	default:
		j.dropped++
		j.logger.Warn("journal buffer is full, record dropped",
			"action_id", rec.ID,
			"status", rec.Status,
			"dropped_total", j.dropped,
		)
	}
}

// Dropped возвращает число потерянных записей.
func (j *Journal) Dropped() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.dropped
}

// Stop закрывает буфер и ждёт, пока оставшиеся записи будут розданы
// или истечёт ctx.
func (j *Journal) Stop(ctx context.Context) error {
	j.mu.Lock()
	if j.stopped {
		j.mu.Unlock()
		return nil
	}
	j.stopped = true
	running := j.running
	close(j.records)
	j.mu.Unlock()

	if !running {
		return nil
	}

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Journal) loop() {
	defer close(j.done)

	for rec := range j.records {
		j.deliver(rec)
	}
}

// deliver отдаёт запись каждому приёмнику. Ошибка одного приёмника
// не мешает остальным.
func (j *Journal) deliver(rec domain.ActionRecord) {
	for name, sink := range j.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), j.saveTimeout)
		err := sink.Save(ctx, rec)
		cancel()

		if err != nil {
			j.logger.Error("failed to save action record",
				"sink", name,
				"action_id", rec.ID,
				"status", rec.Status,
				"error", err,
			)
		}
	}
}
