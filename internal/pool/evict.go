package pool

import (
	"errors"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/shaiso/Feedactions/internal/domain"
)

// KillStaleActions вытесняет до n action, работающих дольше AllowAbortAfter.
//
// Кандидаты — только action с известным временем старта (worker прислал
// liveness). Для каждого: сначала завершаются дочерние процессы worker'а,
// затем сам worker; action записывается как aborted. Слот пула после
// этого запускает замену. Возвращает число вытесненных action.
func (p *Pool) KillStaleActions(n int) int {
	p.FetchStartedIDs()

	if n <= 0 {
		return 0
	}

	type victim struct {
		pa  *pendingAction
		rec domain.ActionRecord
		w   *workerProc
	}

	p.mu.Lock()
	if p.state == StateInit {
		p.mu.Unlock()
		p.logger.Error("pool is not started")
		return 0
	}

	stale := selectStale(p.pending, n, time.Now(), p.cfg.AllowAbortAfter)
	victims := make([]victim, 0, len(stale))
	for _, s := range stale {
		pa, rec := p.finish(s.id, domain.ActionStatusAborted, ErrStaleAction.Error())
		victims = append(victims, victim{pa: pa, rec: *rec, w: p.workerRunning(pa)})
	}
	p.mu.Unlock()

	for _, v := range victims {
		p.logger.Warn("killing stale action",
			"action_id", v.pa.id,
			"action", v.pa.name,
			"worker_pid", v.pa.pid,
			"running", time.Since(v.pa.startedAt).Round(time.Millisecond),
		)
		if v.w != nil {
			p.terminateWorker(v.w)
		}
		v.pa.result.resolve(ErrStaleAction)
		p.notify(v.rec)
	}
	return len(victims)
}

// workerRunning находит worker, выполняющий action. Вызывается под мьютексом.
//
// Поиск идёт по привязке задачи из claim, а не по pid из liveness:
// pid в liveness — это процесс, исполняющий action, и он не обязан
// совпадать с процессом, запущенным пулом.
func (p *Pool) workerRunning(pa *pendingAction) *workerProc {
	for _, w := range p.workers {
		if w.hasTask && w.taskID == pa.id {
			return w
		}
	}
	return nil
}

// killWorkers безусловно завершает все worker-процессы пула.
// Action, которые они выполняли, записываются как aborted с причиной reason.
func (p *Pool) killWorkers(reason error) {
	type running struct {
		pa  *pendingAction
		rec domain.ActionRecord
	}

	p.mu.Lock()
	workers := make([]*workerProc, 0, len(p.workers))
	var aborted []running
	for _, w := range p.workers {
		workers = append(workers, w)
		if !w.hasTask {
			continue
		}
		if pa, rec := p.finish(w.taskID, domain.ActionStatusAborted, reason.Error()); pa != nil {
			aborted = append(aborted, running{pa: pa, rec: *rec})
		}
	}
	p.mu.Unlock()

	for _, r := range aborted {
		p.logger.Warn("action aborted", "action_id", r.pa.id, "action", r.pa.name, "reason", reason)
		r.pa.result.resolve(reason)
		p.notify(r.rec)
	}

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *workerProc) {
			defer wg.Done()
			p.terminateWorker(w)
		}(w)
	}
	wg.Wait()
}

// terminateWorker завершает дерево процессов worker'а:
// дочерние SIGTERM → ChildKillGrace → SIGKILL, затем worker
// SIGTERM → KillGrace → SIGKILL.
func (p *Pool) terminateWorker(w *workerProc) {
	select {
	case <-w.exited:
		return
	default:
	}

	// Дочерние процессы первыми: иначе они останутся сиротами.
	if children := p.tree.descendants(w.pid); len(children) > 0 {
		p.logger.Debug("terminating worker children", "worker_pid", w.pid, "children", children)
		p.tree.terminate(children, p.cfg.ChildKillGrace)
	}

	p.logger.Debug("send SIGTERM to worker", "worker_pid", w.pid)
	if err := w.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Debug("failed to signal worker", "worker_pid", w.pid, "error", err)
	}

	select {
	case <-w.exited:
		return
	case <-time.After(p.cfg.KillGrace):
	}

	p.logger.Debug("send SIGKILL to worker", "worker_pid", w.pid)
	if err := w.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Warn("failed to kill worker", "worker_pid", w.pid, "error", err)
	}

	select {
	case <-w.exited:
	case <-time.After(p.cfg.KillGrace):
		p.logger.Error("worker did not exit after SIGKILL", "worker_pid", w.pid)
	}
}
