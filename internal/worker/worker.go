package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaiso/Feedactions/internal/action"
	"github.com/shaiso/Feedactions/internal/telemetry"
	"github.com/shaiso/Feedactions/internal/wire"
)

// Worker выполняет одну задачу пула.
//
// Worker одноразовый: Run читает ровно одну задачу, после чего процесс
// завершается и пул запускает замену. Так принудительное завершение
// worker'а никогда не оставляет неоднозначного состояния.
type Worker struct {
	registry *action.Registry
	dec      *wire.Decoder
	enc      *wire.Encoder
	pid      int
	now      func() time.Time
	logger   *slog.Logger
}

// Config — конфигурация Worker.
type Config struct {
	// Registry — реестр функций (если nil — action.Default()).
	Registry *action.Registry

	// In — канал задач (stdin процесса).
	In io.Reader

	// Out — канал отчётов (stdout процесса).
	Out io.Writer

	// PID, сообщаемый в liveness (если 0 — os.Getpid()).
	PID int

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	registry := cfg.Registry
	if registry == nil {
		registry = action.Default()
	}

	pid := cfg.PID
	if pid == 0 {
		pid = os.Getpid()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		registry: registry,
		dec:      wire.NewDecoder(cfg.In),
		enc:      wire.NewEncoder(cfg.Out),
		pid:      pid,
		now:      time.Now,
		logger:   logger.With("worker_pid", pid),
	}
}

// Run выполняет одну задачу: liveness → execute → result.
//
// Ошибка action не является ошибкой Run: она уходит пулу в Result.
func (w *Worker) Run(ctx context.Context) error {
	task, err := w.dec.ReadTask()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrNoTask
		}
		return fmt.Errorf("%w: read task: %w", ErrProtocol, err)
	}

	logger := telemetry.WithActionID(w.logger, task.ID).With("action", task.Action.Name)

	// Liveness строго до выполнения: без pid пул не сможет вытеснить action.
	if err := w.enc.WriteLiveness(wire.Liveness{
		ID:        task.ID,
		PID:       w.pid,
		StartedAt: w.now(),
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	}

	logger.Debug("action started")
	res := w.execute(ctx, task)
	if res.ExitCode != wire.ExitOK {
		logger.Warn("action failed", "error", res.Error)
	} else {
		logger.Debug("action finished")
	}

	if err := w.enc.WriteResult(res); err != nil {
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	return nil
}

// Main — точка входа worker-процесса.
//
// SIGINT игнорируется: worker останавливает только пул. SIGTERM
// отменяет контекст, чтобы дочерние процессы Spawn получили сигнал.
// Реестр по умолчанию закрывается до чтения задачи.
func Main(ctx context.Context, logger *slog.Logger) error {
	signal.Ignore(os.Interrupt)
	action.Default().Freeze()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer cancel()

	w := New(Config{
		In:     os.Stdin,
		Out:    os.Stdout,
		Logger: logger,
	})
	return w.Run(ctx)
}
