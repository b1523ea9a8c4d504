package pool

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Feedactions/internal/domain"
	"github.com/shaiso/Feedactions/internal/telemetry"
	"github.com/shaiso/Feedactions/internal/wire"
)

// workerProc — один запущенный worker-процесс.
type workerProc struct {
	id      string
	pid     int
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	reports chan wire.Report
	exited  chan struct{}
	waitErr error

	// Под мьютексом пула.
	taskID  uint64
	hasTask bool
}

// runSlot держит один слот пула: запускает worker, отдаёт ему задачу,
// ждёт завершения и запускает замену. Так число процессов пула
// восстанавливается после каждого завершения или вытеснения.
func (p *Pool) runSlot(slot int, inbound <-chan wire.Task, liveness chan<- wire.Liveness, closing <-chan struct{}) {
	defer p.wg.Done()

	logger := p.logger.With("slot", slot)

	for {
		select {
		case <-closing:
			return
		default:
		}

		w, err := p.spawnWorker()
		if err != nil {
			logger.Error("failed to spawn worker", "error", err)
			select {
			case <-closing:
				return
			case <-time.After(defaultRespawnDelay):
			}
			continue
		}

		telemetry.WithWorkerID(logger, w.id).Debug("worker spawned", "worker_pid", w.pid)

		if !p.serve(w, inbound, liveness, closing) {
			return
		}
	}
}

// spawnWorker запускает worker-процесс в собственной группе процессов:
// прерывание с терминала до него не доходит.
func (p *Pool) spawnWorker() (*workerProc, error) {
	argv := p.cfg.WorkerCommand

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), p.cfg.WorkerEnv...)
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}

	w := &workerProc{
		id:      uuid.NewString(),
		pid:     cmd.Process.Pid,
		cmd:     cmd,
		stdin:   stdin,
		reports: make(chan wire.Report, 2),
		exited:  make(chan struct{}),
	}

	p.mu.Lock()
	p.workers[w.pid] = w
	p.mu.Unlock()

	go p.pump(w, stdout)
	return w, nil
}

// pump читает отчёты worker'а до EOF, затем забирает процесс.
func (p *Pool) pump(w *workerProc, stdout io.Reader) {
	dec := wire.NewDecoder(stdout)
	for {
		rep, err := dec.ReadReport()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.logger.Debug("worker report stream broken", "worker_pid", w.pid, "error", err)
			}
			break
		}
		select {
		case w.reports <- rep:
		default:
			p.logger.Warn("unexpected report from worker", "worker_pid", w.pid)
		}
	}
	close(w.reports)

	// Остаток вывода читаем до закрытия, иначе Wait может зависнуть.
	io.Copy(io.Discard, stdout)
	w.waitErr = w.cmd.Wait()

	p.mu.Lock()
	if p.workers[w.pid] == w {
		delete(p.workers, w.pid)
	}
	p.mu.Unlock()

	close(w.exited)
}

// serve отдаёт worker'у одну задачу и обрабатывает его отчёты.
// Возвращает false, если слот должен завершиться.
func (p *Pool) serve(w *workerProc, inbound <-chan wire.Task, liveness chan<- wire.Liveness, closing <-chan struct{}) bool {
	var (
		task wire.Task
		ok   bool
	)
	select {
	case task, ok = <-inbound:
	case <-closing:
	}
	if !ok {
		p.retire(w)
		return false
	}

	select {
	case <-closing:
		p.abandon(task.ID, ErrPoolStopped)
		p.retire(w)
		return false
	default:
	}

	if !p.claim(w, task.ID) {
		// Action уже классифицирован (например, при остановке).
		p.retire(w)
		return true
	}

	if err := wire.NewEncoder(w.stdin).WriteTask(task); err != nil {
		p.logger.Error("failed to send task to worker", "action_id", task.ID, "worker_pid", w.pid, "error", err)
	}
	w.stdin.Close()

	gotResult := false
	for rep := range w.reports {
		switch {
		case rep.Liveness != nil:
			if rep.Liveness.ID != task.ID {
				p.logger.Warn("liveness for foreign action", "action_id", rep.Liveness.ID, "expected", task.ID)
				continue
			}
			select {
			case liveness <- *rep.Liveness:
			default:
				// Канал переполнен: применяем запись сразу.
				p.applyLiveness(*rep.Liveness)
			}
		case rep.Result != nil:
			if rep.Result.ID != task.ID {
				p.logger.Warn("result for foreign action", "action_id", rep.Result.ID, "expected", task.ID)
				continue
			}
			gotResult = true
			p.complete(*rep.Result)
		}
	}
	<-w.exited

	if !gotResult {
		p.workerLost(w, task.ID)
	}
	return true
}

// claim привязывает задачу к worker'у, если action ещё в полёте.
func (p *Pool) claim(w *workerProc, id uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	pa, ok := p.pending[id]
	if !ok {
		return false
	}
	pa.workerID = w.id
	w.taskID = id
	w.hasTask = true
	return true
}

// retire завершает worker без задачи: закрытый stdin означает "задач нет".
func (p *Pool) retire(w *workerProc) {
	w.stdin.Close()

	select {
	case <-w.exited:
		return
	case <-time.After(p.cfg.KillGrace):
	}

	p.logger.Debug("idle worker did not exit, killing", "worker_pid", w.pid)
	if err := w.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Warn("failed to kill idle worker", "worker_pid", w.pid, "error", err)
	}
	<-w.exited
}

// workerLost — колбэк инфраструктурного сбоя: worker завершился без результата.
//
// Если action уже снят с учёта путём вытеснения, ничего не делает.
// Иначе worker упал сам: action записывается как failed
// (или aborted, если пул уже останавливается).
func (p *Pool) workerLost(w *workerProc, id uint64) {
	p.mu.Lock()
	status, reason := domain.ActionStatusFailed, ErrWorkerExited
	if p.state == StateStopped {
		status, reason = domain.ActionStatusAborted, ErrPoolStopped
	}
	errText := reason.Error()
	if w.waitErr != nil {
		errText = fmt.Sprintf("%s: %v", errText, w.waitErr)
	}
	pa, rec := p.finish(id, status, errText)
	p.mu.Unlock()

	if pa == nil {
		p.logger.Debug("worker handler failed", "action_id", id, "worker_pid", w.pid, "reason", w.waitErr)
		return
	}

	pa.result.resolve(reason)
	p.logger.Error("worker exited without result", "action_id", id, "worker_pid", w.pid, "error", w.waitErr)
	p.notify(*rec)
}
