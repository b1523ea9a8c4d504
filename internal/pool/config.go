package pool

import (
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Значения по умолчанию.
const (
	DefaultProcesses          = 1
	DefaultMaxActiveOrPending = 2
	DefaultAllowAbortAfter    = 3 * time.Second

	defaultKillGrace      = time.Second
	defaultChildKillGrace = 3 * time.Second
	defaultStopTimeout    = time.Second
	defaultRespawnDelay   = time.Second
	defaultMaxWaitLoops   = 1000
)

// Config — конфигурация пула.
type Config struct {
	// Processes — число параллельно работающих worker-процессов (>= 1).
	Processes int

	// MaxActiveOrPending — максимум action в полёте (>= Processes).
	MaxActiveOrPending int

	// AllowAbortAfter — гарантированное время работы action до вытеснения.
	AllowAbortAfter time.Duration

	// WorkerCommand — команда запуска worker'а.
	// По умолчанию: текущий бинарник с аргументом "worker".
	WorkerCommand []string

	// WorkerEnv — дополнительные переменные окружения worker'а.
	WorkerEnv []string

	// KillGrace — сколько ждать worker после SIGTERM до SIGKILL (default: 1s).
	KillGrace time.Duration

	// ChildKillGrace — то же для дочерних процессов worker'а (default: 3s).
	ChildKillGrace time.Duration

	// StopTimeout — таймаут Wait внутри Stop (default: 1s).
	StopTimeout time.Duration

	// Logger
	Logger *slog.Logger

	// Listener получает записи о каждой классификации (опционально).
	Listener Listener
}

// DefaultConfig возвращает конфигурацию со значениями по умолчанию.
func DefaultConfig() Config {
	return Config{
		Processes:          DefaultProcesses,
		MaxActiveOrPending: DefaultMaxActiveOrPending,
		AllowAbortAfter:    DefaultAllowAbortAfter,
	}
}

// Validate проверяет ограничения пула.
func (c Config) Validate() error {
	if c.Processes < 1 {
		return fmt.Errorf("%w: processes must be >= 1, got %d", ErrInvalidConfig, c.Processes)
	}
	if c.MaxActiveOrPending < c.Processes {
		return fmt.Errorf("%w: max_active_or_pending (%d) must be >= processes (%d)",
			ErrInvalidConfig, c.MaxActiveOrPending, c.Processes)
	}
	if c.AllowAbortAfter <= 0 {
		return fmt.Errorf("%w: allow_abort_after must be positive, got %s", ErrInvalidConfig, c.AllowAbortAfter)
	}
	return nil
}

// withDefaults заполняет незаданные поля.
func (c Config) withDefaults() (Config, error) {
	if c.Processes == 0 {
		c.Processes = DefaultProcesses
	}
	if c.MaxActiveOrPending == 0 {
		c.MaxActiveOrPending = DefaultMaxActiveOrPending
		if c.MaxActiveOrPending < c.Processes {
			c.MaxActiveOrPending = c.Processes
		}
	}
	if c.AllowAbortAfter == 0 {
		c.AllowAbortAfter = DefaultAllowAbortAfter
	}
	if c.KillGrace <= 0 {
		c.KillGrace = defaultKillGrace
	}
	if c.ChildKillGrace <= 0 {
		c.ChildKillGrace = defaultChildKillGrace
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = defaultStopTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if len(c.WorkerCommand) == 0 {
		exe, err := os.Executable()
		if err != nil {
			return c, fmt.Errorf("resolve worker executable: %w", err)
		}
		c.WorkerCommand = []string{exe, "worker"}
	}
	return c, c.Validate()
}
