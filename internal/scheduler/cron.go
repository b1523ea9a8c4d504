package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// cronParser понимает стандартные выражения и дескрипторы (@every, @hourly).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSpec проверяет расписание.
func ValidateSpec(spec string) error {
	if _, err := cronParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// cronLogger направляет сообщения cron в slog.
type cronLogger struct {
	logger *slog.Logger
}

// Info реализует cron.Logger. Служебные сообщения cron идут на уровне debug.
func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

// Error реализует cron.Logger.
func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
