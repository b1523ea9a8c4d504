package action

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// registerBuiltins регистрирует встроенные функции реестра по умолчанию.
func registerBuiltins(r *Registry) {
	r.MustRegister("sleep", Sleep)
	r.MustRegister("fail", Fail)
	r.MustRegister("echo", Echo)
	r.MustRegister("download", Download)
}

// Sleep ждёт указанное число секунд (int или float). Поддерживает отмену через ctx.
func Sleep(ctx context.Context, args ...any) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: sleep expects 1 argument, got %d", ErrBadArguments, len(args))
	}

	var seconds float64
	switch v := args[0].(type) {
	case int:
		seconds = float64(v)
	case int64:
		seconds = float64(v)
	case float64:
		seconds = v
	case float32:
		seconds = float64(v)
	default:
		return fmt.Errorf("%w: sleep expects a number, got %T", ErrBadArguments, args[0])
	}

	select {
	case <-time.After(time.Duration(seconds * float64(time.Second))):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fail всегда возвращает ошибку с переданным сообщением.
func Fail(_ context.Context, args ...any) error {
	msg := "action failed"
	if len(args) > 0 {
		msg = fmt.Sprint(args...)
	}
	return fmt.Errorf("%s", msg)
}

// Echo пишет аргументы в лог worker'а.
func Echo(ctx context.Context, args ...any) error {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	slog.Default().InfoContext(ctx, "echo", "message", strings.Join(parts, " "))
	return nil
}
