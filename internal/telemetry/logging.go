package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel определяет уровень логирования из LOG_LEVEL.
// Возможные значения: DEBUG, INFO, WARN, ERROR. По умолчанию INFO.
func LogLevel() slog.Level {
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger создаёт логгер, пишущий в w.
//
// Формат определяется LOG_FORMAT:
//   - "json" (по умолчанию)
//   - "text" — для разработки
func NewLogger(w io.Writer) *slog.Logger {
	level := LogLevel()
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// SetupLogger инициализирует глобальный логгер сервиса (stdout).
func SetupLogger() *slog.Logger {
	logger := NewLogger(os.Stdout)
	slog.SetDefault(logger)
	return logger
}

// SetupWorkerLogger инициализирует логгер процесса пула (stderr).
func SetupWorkerLogger() *slog.Logger {
	logger := NewLogger(os.Stderr).With("pid", os.Getpid())
	slog.SetDefault(logger)
	return logger
}

type ctxKey string

// CtxLogger — ключ для логгера в контексте.
const CtxLogger ctxKey = "logger"

// WithLogger добавляет логгер в контекст.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, CtxLogger, logger)
}

// FromContext извлекает логгер из контекста, иначе возвращает глобальный.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(CtxLogger).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithActionID возвращает логгер с action_id.
func WithActionID(logger *slog.Logger, id uint64) *slog.Logger {
	return logger.With("action_id", id)
}

// WithWorkerID возвращает логгер с worker_id.
func WithWorkerID(logger *slog.Logger, workerID string) *slog.Logger {
	return logger.With("worker_id", workerID)
}
