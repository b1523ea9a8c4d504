package pool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Feedactions/internal/action"
	"github.com/shaiso/Feedactions/internal/domain"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"zero processes", Config{Processes: 0, MaxActiveOrPending: 2, AllowAbortAfter: time.Second}, true},
		{"backlog below processes", Config{Processes: 3, MaxActiveOrPending: 2, AllowAbortAfter: time.Second}, true},
		{"zero grace", Config{Processes: 1, MaxActiveOrPending: 1, AllowAbortAfter: 0}, true},
		{"equal bounds", Config{Processes: 2, MaxActiveOrPending: 2, AllowAbortAfter: time.Second}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	p, err := New(Config{Logger: quietLogger()})
	require.NoError(t, err)

	cfg := p.Config()
	assert.Equal(t, 1, cfg.Processes)
	assert.Equal(t, 2, cfg.MaxActiveOrPending)
	assert.Equal(t, 3*time.Second, cfg.AllowAbortAfter)
	assert.Equal(t, "worker", cfg.WorkerCommand[len(cfg.WorkerCommand)-1])
	assert.Equal(t, StateInit, p.State())
}

func TestPool_WrongStateIsNoop(t *testing.T) {
	p, rec := newTestPool(t, 1, 1, time.Second)

	// INIT: ничего не запущено.
	assert.False(t, p.PushAction(sleepAction(t, 0)))
	p.Stop()
	assert.NoError(t, p.Wait(context.Background(), time.Second, false))
	assert.Equal(t, 0, p.KillStaleActions(1))
	assert.Equal(t, StateInit, p.State())

	require.NoError(t, p.Start())
	require.NoError(t, p.Start()) // повторный Start только логируется
	assert.Equal(t, StateStarted, p.State())

	p.Stop()
	p.Stop()
	assert.Equal(t, StateStopped, p.State())
	assert.False(t, p.PushAction(sleepAction(t, 0)))

	assert.Empty(t, rec.records)
	assert.Empty(t, p.Statistic().Skipped)
}

func TestPool_Scenario(t *testing.T) {
	p, rec := newTestPool(t, 1, 3, 500*time.Millisecond)
	require.NoError(t, p.Start())
	defer p.Stop()

	// A выполняется, B и C ждут в очереди.
	idA, ok := p.Submit(sleepAction(t, 20))
	require.True(t, ok, "A must be admitted")
	idB, ok := p.Submit(mustAction(t, action.Call("test.divide", 1, 0)))
	require.True(t, ok, "B must be admitted")
	idC, ok := p.Submit(sleepAction(t, 0.1))
	require.True(t, ok, "C must be admitted")

	// В полёте M action, stale ещё нет — D отклонён.
	idD, ok := p.Submit(sleepAction(t, 0.1))
	require.False(t, ok, "D must be skipped")
	assert.Equal(t, 3, p.InFlight())

	waitStarted(t, p, idA)
	time.Sleep(700 * time.Millisecond)

	// A вышел за grace period — E вытесняет его.
	idE, ok := p.Submit(sleepAction(t, 0.1))
	require.True(t, ok, "E must be admitted after evicting A")

	require.NoError(t, p.Wait(context.Background(), 30*time.Second, false))

	stats := p.Statistic()
	assert.ElementsMatch(t, []uint64{idC, idE}, stats.OK)
	assert.Equal(t, []uint64{idB}, stats.Failed)
	assert.Equal(t, []uint64{idA}, stats.Aborted)
	assert.Equal(t, []uint64{idD}, stats.Skipped)
	assert.Equal(t, 0, stats.InFlight)

	recA, ok := rec.byID(idA)
	require.True(t, ok)
	assert.Equal(t, domain.ActionStatusAborted, recA.Status)
	assert.GreaterOrEqual(t, recA.Duration(), 500*time.Millisecond)
	assert.Contains(t, recA.Error, ErrStaleAction.Error())

	recB, ok := rec.byID(idB)
	require.True(t, ok)
	assert.Contains(t, recB.Error, "divide by zero")
	assert.NotEmpty(t, recB.WorkerID)
}

func TestPool_AdmitsWhileBelowCapacity(t *testing.T) {
	p, _ := newTestPool(t, 2, 4, 2*time.Second)
	require.NoError(t, p.Start())
	defer p.Stop()

	for i := 0; i < 4; i++ {
		require.True(t, p.PushAction(sleepAction(t, 0.2)), "push %d", i)
		assert.LessOrEqual(t, p.InFlight(), 4)
	}
	assert.False(t, p.PushAction(sleepAction(t, 0.2)))

	require.NoError(t, p.Wait(context.Background(), 30*time.Second, false))

	stats := p.Statistic()
	assert.Len(t, stats.OK, 4)
	assert.Len(t, stats.Skipped, 1)
	assert.Empty(t, stats.Aborted)
}

func TestPool_QuickActionNeverAborted(t *testing.T) {
	p, _ := newTestPool(t, 1, 1, time.Second)
	require.NoError(t, p.Start())
	defer p.Stop()

	for i := 0; i < 3; i++ {
		require.True(t, p.PushAction(sleepAction(t, 0.2)))
		require.NoError(t, p.Wait(context.Background(), 10*time.Second, false))
	}

	stats := p.Statistic()
	assert.Len(t, stats.OK, 3)
	assert.Empty(t, stats.Aborted)
}

func TestPool_StaleNotKilledWhileCapacityExists(t *testing.T) {
	p, _ := newTestPool(t, 1, 3, 200*time.Millisecond)
	require.NoError(t, p.Start())
	defer p.Stop()

	idA, ok := p.Submit(sleepAction(t, 5))
	require.True(t, ok)
	waitStarted(t, p, idA)
	time.Sleep(400 * time.Millisecond)

	require.True(t, p.PushAction(sleepAction(t, 0.1)))

	stats := p.Statistic()
	assert.Empty(t, stats.Aborted)
	assert.Equal(t, 2, stats.InFlight)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.Queued)
}

func TestPool_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	called := filepath.Join(dir, "called")
	spawned := filepath.Join(dir, "spawned")

	p, _ := newTestPool(t, 1, 2, 5*time.Second)
	require.NoError(t, p.Start())
	defer p.Stop()

	require.True(t, p.PushAction(mustAction(t, action.Call("test.touch", called, 7, "x", 1.5))))
	require.True(t, p.PushAction(mustAction(t, action.Spawn("sh", "-c", "echo spawned > "+spawned))))
	require.NoError(t, p.Wait(context.Background(), 20*time.Second, false))

	data, err := os.ReadFile(called)
	require.NoError(t, err)
	assert.Equal(t, "7x1.5", string(data))

	data, err = os.ReadFile(spawned)
	require.NoError(t, err)
	assert.Equal(t, "spawned\n", string(data))

	assert.Len(t, p.Statistic().OK, 2)
}

func TestPool_ValidationBeforeQueue(t *testing.T) {
	_, err := action.New(nil, action.Call("os.RemoveAll", "/"))
	require.ErrorIs(t, err, action.ErrValidation)
}

func TestPool_StopLeavesNoProcesses(t *testing.T) {
	if _, err := os.Stat("/proc/self/stat"); err != nil {
		t.Skip("procfs is not available")
	}

	p, _ := newTestPool(t, 2, 2, 10*time.Second)
	require.NoError(t, p.Start())

	idA, ok := p.Submit(mustAction(t, action.Spawn("sleep", "30")))
	require.True(t, ok)
	idB, ok := p.Submit(sleepAction(t, 30))
	require.True(t, ok)
	waitStarted(t, p, idA)
	waitStarted(t, p, idB)

	// Два worker'а и запущенный ими sleep.
	var pids []int
	require.Eventually(t, func() bool {
		pids = pids[:0]
		p.mu.Lock()
		for pid := range p.workers {
			pids = append(pids, pid)
		}
		p.mu.Unlock()
		for _, pid := range pids[:len(pids):len(pids)] {
			pids = append(pids, p.tree.descendants(pid)...)
		}
		return len(pids) >= 3
	}, 5*time.Second, 20*time.Millisecond)

	p.Stop()

	for _, pid := range pids {
		assert.False(t, p.tree.alive(pid), "process %d survived Stop", pid)
	}

	stats := p.Statistic()
	assert.ElementsMatch(t, []uint64{idA, idB}, stats.Aborted)
	assert.Equal(t, 0, stats.InFlight)
	assert.Equal(t, 0, stats.Workers)

	p.mu.Lock()
	assert.Nil(t, p.inbound)
	assert.Nil(t, p.liveness)
	p.mu.Unlock()
}

func TestPool_RestartKeepsCounters(t *testing.T) {
	p, _ := newTestPool(t, 1, 1, time.Second)

	require.NoError(t, p.Start())
	id1, ok := p.Submit(sleepAction(t, 0))
	require.True(t, ok)
	require.NoError(t, p.Wait(context.Background(), 10*time.Second, false))
	p.Stop()

	require.NoError(t, p.Start())
	defer p.Stop()
	id2, ok := p.Submit(sleepAction(t, 0))
	require.True(t, ok)
	require.NoError(t, p.Wait(context.Background(), 10*time.Second, false))

	assert.Greater(t, id2, id1)
	assert.Equal(t, []uint64{id1, id2}, p.Statistic().OK)
}

func TestPool_WaitTerminatesOnTimeout(t *testing.T) {
	p, rec := newTestPool(t, 1, 2, 10*time.Second)
	require.NoError(t, p.Start())
	defer p.Stop()

	id, ok := p.Submit(sleepAction(t, 30))
	require.True(t, ok)
	waitStarted(t, p, id)

	start := time.Now()
	require.NoError(t, p.Wait(context.Background(), 300*time.Millisecond, true))
	assert.Less(t, time.Since(start), 5*time.Second)

	r, ok := rec.byID(id)
	require.True(t, ok)
	assert.Equal(t, domain.ActionStatusAborted, r.Status)
	assert.Equal(t, ErrWorkerTerminated.Error(), r.Error)

	// Слот восстановлен: следующий action выполняется.
	require.True(t, p.PushAction(sleepAction(t, 0)))
	require.NoError(t, p.Wait(context.Background(), 10*time.Second, false))
	assert.Len(t, p.Statistic().OK, 1)
}

func TestPool_WaitNotConverged(t *testing.T) {
	rec := &recorder{}
	p, err := New(Config{
		Processes:          1,
		MaxActiveOrPending: 1,
		AllowAbortAfter:    50 * time.Millisecond,
		// Процесс, который никогда не присылает liveness.
		WorkerCommand: []string{"sleep", "30"},
		KillGrace:     200 * time.Millisecond,
		StopTimeout:   200 * time.Millisecond,
		Logger:        quietLogger(),
		Listener:      rec,
	})
	require.NoError(t, err)
	p.maxWaitLoops = 3

	require.NoError(t, p.Start())
	id, ok := p.Submit(sleepAction(t, 0))
	require.True(t, ok)

	err = p.Wait(context.Background(), 10*time.Second, false)
	assert.True(t, errors.Is(err, ErrWaitNotConverged), "got %v", err)

	p.Stop()

	r, ok := rec.byID(id)
	require.True(t, ok)
	assert.Equal(t, domain.ActionStatusAborted, r.Status)
	assert.Equal(t, 0, p.InFlight())
}

func TestPool_WaitHonoursContext(t *testing.T) {
	p, _ := newTestPool(t, 1, 1, 10*time.Second)
	require.NoError(t, p.Start())
	defer p.Stop()

	require.True(t, p.PushAction(sleepAction(t, 5)))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Wait(ctx, 0, false), context.DeadlineExceeded)
}

func TestPool_QueuedActionStaleByStartTime(t *testing.T) {
	p, rec := newTestPool(t, 1, 3, 500*time.Millisecond)
	require.NoError(t, p.Start())
	defer p.Stop()

	idA, ok := p.Submit(sleepAction(t, 0.6))
	require.True(t, ok, "A must be admitted")
	idB, ok := p.Submit(mustAction(t, action.Call("test.divide", 1, 0)))
	require.True(t, ok, "B must be admitted")
	idC, ok := p.Submit(sleepAction(t, 20))
	require.True(t, ok, "C must be admitted")
	idD, ok := p.Submit(sleepAction(t, 0.1))
	require.False(t, ok, "D must be skipped")

	// C простоял в очереди дольше grace period, но только что стартовал.
	waitStarted(t, p, idC)
	idF1, ok := p.Submit(sleepAction(t, 0.1))
	require.True(t, ok)
	idF2, ok := p.Submit(sleepAction(t, 0.1))
	require.True(t, ok)
	idE1, ok := p.Submit(sleepAction(t, 0.1))
	require.False(t, ok, "C must not be evicted before its grace period since start")

	time.Sleep(700 * time.Millisecond)
	idE2, ok := p.Submit(sleepAction(t, 0.1))
	require.True(t, ok, "E must be admitted after evicting C")

	require.NoError(t, p.Wait(context.Background(), 30*time.Second, false))

	stats := p.Statistic()
	assert.ElementsMatch(t, []uint64{idA, idF1, idF2, idE2}, stats.OK)
	assert.Equal(t, []uint64{idB}, stats.Failed)
	assert.Equal(t, []uint64{idC}, stats.Aborted)
	assert.ElementsMatch(t, []uint64{idD, idE1}, stats.Skipped)

	recC, ok := rec.byID(idC)
	require.True(t, ok)
	require.NotNil(t, recC.StartedAt)
	assert.GreaterOrEqual(t, recC.StartedAt.Sub(recC.SubmittedAt), 500*time.Millisecond)
	assert.Contains(t, recC.Error, ErrStaleAction.Error())
}

func TestPool_ConcurrentSubmitsRespectCapacity(t *testing.T) {
	const (
		capacity   = 4
		goroutines = 8
		perG       = 3
	)

	p, _ := newTestPool(t, 2, capacity, 10*time.Second)
	require.NoError(t, p.Start())
	defer p.Stop()

	actions := make([]*action.Action, goroutines*perG)
	for i := range actions {
		actions[i] = sleepAction(t, 0.3)
	}

	var (
		mu       sync.Mutex
		admitted []uint64
		skipped  []uint64
		wg       sync.WaitGroup
	)

	stop := make(chan struct{})
	sampled := make(chan int, 1)
	go func() {
		peak := 0
		for {
			select {
			case <-stop:
				sampled <- peak
				return
			default:
			}
			if n := p.InFlight(); n > peak {
				peak = n
			}
		}
	}()

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(batch []*action.Action) {
			defer wg.Done()
			for _, a := range batch {
				id, ok := p.Submit(a)
				assert.LessOrEqual(t, p.InFlight(), capacity)

				mu.Lock()
				if ok {
					admitted = append(admitted, id)
				} else {
					skipped = append(skipped, id)
				}
				mu.Unlock()
			}
		}(actions[g*perG : (g+1)*perG])
	}
	wg.Wait()
	close(stop)

	assert.LessOrEqual(t, <-sampled, capacity)
	assert.Equal(t, goroutines*perG, len(admitted)+len(skipped))
	assert.GreaterOrEqual(t, len(admitted), capacity)

	require.NoError(t, p.Wait(context.Background(), 30*time.Second, false))

	stats := p.Statistic()
	assert.ElementsMatch(t, admitted, stats.OK)
	assert.ElementsMatch(t, skipped, stats.Skipped)
	assert.Empty(t, stats.Aborted)
}

func TestPool_EvictsWorkerBehindWrapper(t *testing.T) {
	if _, err := os.Stat("/proc/self/stat"); err != nil {
		t.Skip("procfs is not available")
	}

	rec := &recorder{}
	p, err := New(Config{
		Processes:          1,
		MaxActiveOrPending: 1,
		AllowAbortAfter:    200 * time.Millisecond,
		// sh не делает exec: action выполняется в дочернем процессе worker'а.
		WorkerCommand:  []string{"sh", "-c", `"$0"; exit $?`, os.Args[0]},
		WorkerEnv:      []string{workerEnv + "=1"},
		KillGrace:      500 * time.Millisecond,
		ChildKillGrace: 500 * time.Millisecond,
		StopTimeout:    500 * time.Millisecond,
		Logger:         quietLogger(),
		Listener:       rec,
	})
	require.NoError(t, err)
	require.NoError(t, p.Start())
	defer p.Stop()

	idA, ok := p.Submit(sleepAction(t, 20))
	require.True(t, ok)
	waitStarted(t, p, idA)

	p.mu.Lock()
	inner := p.pending[idA].pid
	_, direct := p.workers[inner]
	p.mu.Unlock()
	require.False(t, direct, "action must run below the spawned worker process")

	time.Sleep(400 * time.Millisecond)
	idB, ok := p.Submit(sleepAction(t, 0.1))
	require.True(t, ok, "B must be admitted after evicting A")

	assert.Eventually(t, func() bool { return !p.tree.alive(inner) },
		5*time.Second, 20*time.Millisecond, "evicted action process %d survived", inner)

	require.NoError(t, p.Wait(context.Background(), 20*time.Second, false))
	stats := p.Statistic()
	assert.Equal(t, []uint64{idA}, stats.Aborted)
	assert.Equal(t, []uint64{idB}, stats.OK)
}

func TestPool_WorkerRegistryIsFrozen(t *testing.T) {
	p, _ := newTestPool(t, 1, 1, 5*time.Second)
	require.NoError(t, p.Start())
	defer p.Stop()

	id, ok := p.Submit(mustAction(t, action.Call("test.frozen")))
	require.True(t, ok)
	require.NoError(t, p.Wait(context.Background(), 10*time.Second, false))

	stats := p.Statistic()
	assert.Equal(t, []uint64{id}, stats.OK)
	assert.Empty(t, stats.Failed)
}
