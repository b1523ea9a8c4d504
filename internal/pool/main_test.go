package pool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shaiso/Feedactions/internal/action"
	"github.com/shaiso/Feedactions/internal/domain"
	"github.com/shaiso/Feedactions/internal/worker"
)

// workerEnv переключает тестовый бинарник в режим worker-процесса.
const workerEnv = "FEEDACTIONS_POOL_TEST_WORKER"

func TestMain(m *testing.M) {
	if os.Getenv(workerEnv) == "1" {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		if err := worker.Main(context.Background(), logger); err != nil {
			os.Exit(2)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func init() {
	action.Register("test.divide", func(_ context.Context, args ...any) error {
		a, b := args[0].(int), args[1].(int)
		return fmt.Errorf("unexpected quotient %d", a/b)
	})
	action.Register("test.touch", func(_ context.Context, args ...any) error {
		return os.WriteFile(args[0].(string), []byte(fmt.Sprint(args[1:]...)), 0o644)
	})
	action.Register("test.frozen", func(context.Context, ...any) error {
		if !action.Default().Frozen() {
			return fmt.Errorf("registry is still open in the worker")
		}
		return nil
	})
}

// recorder собирает записи Listener.
type recorder struct {
	mu      sync.Mutex
	records []domain.ActionRecord
}

func (r *recorder) ActionFinished(rec domain.ActionRecord) {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
}

func (r *recorder) byID(id uint64) (domain.ActionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, true
		}
	}
	return domain.ActionRecord{}, false
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestPool создаёт пул, worker'ы которого — этот же тестовый бинарник.
func newTestPool(t *testing.T, processes, maxPending int, grace time.Duration) (*Pool, *recorder) {
	t.Helper()

	rec := &recorder{}
	p, err := New(Config{
		Processes:          processes,
		MaxActiveOrPending: maxPending,
		AllowAbortAfter:    grace,
		WorkerCommand:      []string{os.Args[0]},
		WorkerEnv:          []string{workerEnv + "=1"},
		KillGrace:          500 * time.Millisecond,
		ChildKillGrace:     500 * time.Millisecond,
		StopTimeout:        500 * time.Millisecond,
		Logger:             quietLogger(),
		Listener:           rec,
	})
	require.NoError(t, err)
	return p, rec
}

func mustAction(t *testing.T, ops ...action.Operation) *action.Action {
	t.Helper()
	a, err := action.New(nil, ops...)
	require.NoError(t, err)
	return a
}

func sleepAction(t *testing.T, seconds float64) *action.Action {
	return mustAction(t, action.Call("sleep", seconds))
}

// waitStarted ждёт, пока worker пришлёт liveness для action id.
func waitStarted(t *testing.T, p *Pool, id uint64) {
	t.Helper()
	require.Eventually(t, func() bool {
		p.FetchStartedIDs()
		p.mu.Lock()
		defer p.mu.Unlock()
		pa, ok := p.pending[id]
		return ok && pa.started()
	}, 5*time.Second, 10*time.Millisecond, "action %d did not start", id)
}
