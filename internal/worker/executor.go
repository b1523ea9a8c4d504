package worker

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/shaiso/Feedactions/internal/action"
	"github.com/shaiso/Feedactions/internal/wire"
)

// execute восстанавливает action и выполняет его.
//
// Любая ошибка (в том числе panic) превращается в Result с ExitFailed:
// один упавший action не должен ронять worker до отправки результата.
func (w *Worker) execute(ctx context.Context, task wire.Task) (res wire.Result) {
	res = wire.Result{ID: task.ID, ExitCode: wire.ExitOK}

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("action panicked",
				"action_id", task.ID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			res.ExitCode = wire.ExitFailed
			res.Error = fmt.Sprintf("%v: %v", ErrActionPanic, r)
		}
	}()

	a, err := action.FromSpec(w.registry, task.Action)
	if err != nil {
		res.ExitCode = wire.ExitFailed
		res.Error = err.Error()
		return res
	}

	if err := a.Execute(ctx, w.registry); err != nil {
		res.ExitCode = wire.ExitFailed
		res.Error = err.Error()
	}
	return res
}
