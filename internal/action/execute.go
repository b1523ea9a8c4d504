package action

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// execute выполняет одну операцию.
func execute(ctx context.Context, reg *Registry, op Operation) error {
	switch op.Kind {
	case KindSpawn:
		return spawn(ctx, op.Argv)
	case KindCall:
		fn, ok := reg.Lookup(op.Func)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownFunction, op.Func)
		}
		return fn(ctx, op.Args...)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, op.Kind)
	}
}

// spawn запускает программу и ждёт её завершения.
//
// Stdin, Stdout и Stderr не заданы, поэтому exec привязывает их к os.DevNull:
// stdout worker'а занят протоколом с пулом.
func spawn(ctx context.Context, argv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s exited with code %d", ErrProcessFailed, argv[0], exitErr.ExitCode())
		}
		return fmt.Errorf("run %s: %w", argv[0], err)
	}
	return nil
}
