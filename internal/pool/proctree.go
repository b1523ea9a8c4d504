package pool

import (
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

const procPollInterval = 50 * time.Millisecond

// procTree находит и завершает потомков процесса через /proc.
type procTree struct {
	fs     procfs.FS
	ok     bool
	logger *slog.Logger
}

func newProcTree(logger *slog.Logger) *procTree {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		logger.Warn("procfs is not available, worker children will not be tracked", "error", err)
		return &procTree{logger: logger}
	}
	return &procTree{fs: fs, ok: true, logger: logger}
}

// descendants возвращает pid всех живых потомков root (без root).
// Родители идут раньше детей.
func (t *procTree) descendants(root int) []int {
	if !t.ok {
		return nil
	}

	procs, err := t.fs.AllProcs()
	if err != nil {
		t.logger.Warn("failed to list processes", "error", err)
		return nil
	}

	children := make(map[int][]int)
	for _, proc := range procs {
		stat, err := proc.Stat()
		if err != nil {
			// Процесс мог завершиться между листингом и чтением.
			continue
		}
		if stat.State == "Z" {
			continue
		}
		children[stat.PPID] = append(children[stat.PPID], stat.PID)
	}

	var result []int
	queue := []int{root}
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		for _, child := range children[pid] {
			result = append(result, child)
			queue = append(queue, child)
		}
	}
	return result
}

// alive проверяет, жив ли процесс. Зомби считается завершённым.
func (t *procTree) alive(pid int) bool {
	if err := unix.Kill(pid, 0); errors.Is(err, unix.ESRCH) {
		return false
	}
	if !t.ok {
		return true
	}
	proc, err := t.fs.Proc(pid)
	if err != nil {
		return false
	}
	stat, err := proc.Stat()
	if err != nil {
		return false
	}
	return stat.State != "Z"
}

// terminate посылает SIGTERM, ждёт до grace и добивает оставшихся SIGKILL.
// Возвращает pid, которым потребовался SIGKILL.
func (t *procTree) terminate(pids []int, grace time.Duration) []int {
	for _, pid := range pids {
		if err := unix.Kill(pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
			t.logger.Debug("failed to send SIGTERM", "pid", pid, "error", err)
		}
	}

	deadline := time.Now().Add(grace)
	alive := pids
	for {
		alive = t.filterAlive(alive)
		if len(alive) == 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(procPollInterval)
	}

	for _, pid := range alive {
		t.logger.Debug("send SIGKILL to child", "pid", pid)
		if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			t.logger.Warn("failed to kill child", "pid", pid, "error", err)
		}
	}
	return alive
}

func (t *procTree) filterAlive(pids []int) []int {
	var alive []int
	for _, pid := range pids {
		if t.alive(pid) {
			alive = append(alive, pid)
		}
	}
	return alive
}
