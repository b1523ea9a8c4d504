package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Feedactions/internal/action"
	"github.com/shaiso/Feedactions/internal/domain"
	"github.com/shaiso/Feedactions/internal/wire"
)

// Pool — пул worker-процессов для выполнения action.
type Pool struct {
	cfg      Config
	logger   *slog.Logger
	listener Listener
	tree     *procTree

	mu       sync.Mutex
	state    State
	nextID   uint64
	pending  map[uint64]*pendingAction
	inFlight int
	counters counters
	workers  map[int]*workerProc

	// Пересоздаются в каждом Start.
	inbound  chan wire.Task
	liveness chan wire.Liveness
	closing  chan struct{}
	wg       sync.WaitGroup

	maxWaitLoops int
}

// New создаёт пул в состоянии INIT. Процессы запускает Start.
func New(cfg Config) (*Pool, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger.With("component", "action_pool")

	return &Pool{
		cfg:          cfg,
		logger:       logger,
		listener:     cfg.Listener,
		tree:         newProcTree(logger),
		state:        StateInit,
		nextID:       1,
		pending:      make(map[uint64]*pendingAction),
		workers:      make(map[int]*workerProc),
		maxWaitLoops: defaultMaxWaitLoops,
	}, nil
}

// Config возвращает итоговую конфигурацию (с подставленными значениями по умолчанию).
func (p *Pool) Config() Config {
	return p.cfg
}

// State возвращает текущее состояние пула.
func (p *Pool) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// InFlight возвращает число action в полёте (выполняются + в очереди).
func (p *Pool) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// Start создаёт каналы и запускает Processes worker-процессов.
func (p *Pool) Start() error {
	p.mu.Lock()
	if !p.state.CanStart() {
		state := p.state
		p.mu.Unlock()
		p.logger.Error("pool can not be started twice", "state", state)
		return nil
	}

	p.inbound = make(chan wire.Task, p.cfg.MaxActiveOrPending)
	p.liveness = make(chan wire.Liveness, p.cfg.Processes+p.cfg.MaxActiveOrPending)
	p.closing = make(chan struct{})
	p.state = StateStarted

	inbound, liveness, closing := p.inbound, p.liveness, p.closing
	p.mu.Unlock()

	for i := 0; i < p.cfg.Processes; i++ {
		p.wg.Add(1)
		go p.runSlot(i, inbound, liveness, closing)
	}

	p.logger.Info("action pool started",
		"processes", p.cfg.Processes,
		"max_active_or_pending", p.cfg.MaxActiveOrPending,
		"allow_abort_after", p.cfg.AllowAbortAfter,
	)
	return nil
}

// PushAction ставит action в очередь.
//
// Возвращает false, если пул переполнен и освободить слот вытеснением
// не удалось (action записан как skipped), или пул не запущен.
// Не блокируется дольше захвата мьютекса (кроме вытеснения stale action).
func (p *Pool) PushAction(a *action.Action) bool {
	_, ok := p.Submit(a)
	return ok
}

// Submit — PushAction, возвращающий также id action.
func (p *Pool) Submit(a *action.Action) (uint64, bool) {
	if a == nil {
		p.logger.Error("nil action pushed")
		return 0, false
	}

	p.FetchStartedIDs()

	// 1. Выделяем id
	p.mu.Lock()
	if p.state != StateStarted {
		state := p.state
		p.mu.Unlock()
		p.logger.Error("pool is not started", "state", state, "action", a.Name())
		return 0, false
	}
	id := p.nextID
	p.nextID++
	full := p.inFlight >= p.cfg.MaxActiveOrPending
	p.mu.Unlock()

	// 2. Пытаемся освободить ровно один слот
	if full {
		p.logger.Debug("pool is full, looking for stale actions", "action_id", id)
		p.KillStaleActions(1)
	}

	now := time.Now()

	p.mu.Lock()
	if p.state != StateStarted || p.inFlight >= p.cfg.MaxActiveOrPending {
		inFlight := p.inFlight
		p.counters.add(domain.ActionStatusSkipped, id)
		p.mu.Unlock()

		p.logger.Debug("action skipped", "action_id", id, "action", a.Name(), "in_flight", inFlight)
		p.notify(domain.ActionRecord{
			ID:          id,
			Name:        a.Name(),
			Status:      domain.ActionStatusSkipped,
			SubmittedAt: now,
			FinishedAt:  now,
		})
		return id, false
	}

	// 3. Запись pending до постановки в очередь: слот не должен увидеть
	// задачу раньше, чем её запись.
	pa := newPendingAction(id, a.Name(), now)
	p.pending[id] = pa
	p.inFlight++

	select {
	case p.inbound <- wire.Task{ID: id, Action: a.Spec()}:
	default:
		// inbound вмещает M задач, а в полёте их меньше M.
		delete(p.pending, id)
		p.inFlight--
		p.counters.add(domain.ActionStatusSkipped, id)
		p.mu.Unlock()

		p.logger.Error("inbound channel is full", "action_id", id)
		p.notify(pa.record(domain.ActionStatusSkipped, now, "inbound channel is full"))
		return id, false
	}
	p.mu.Unlock()

	p.logger.Debug("action queued", "action_id", id, "action", a.Name())
	return id, true
}

// Stop останавливает пул: ждёт action до StopTimeout, затем
// принудительно завершает всё, что осталось. После возврата
// ни одного worker-процесса пула не остаётся.
func (p *Pool) Stop() {
	// 1. Закрываем приём задач
	p.mu.Lock()
	if p.state != StateStarted {
		state := p.state
		p.mu.Unlock()
		p.logger.Error("pool is not started", "state", state)
		return
	}
	p.state = StateStopped
	inbound, liveness, closing := p.inbound, p.liveness, p.closing
	close(inbound)
	p.mu.Unlock()

	p.logger.Info("stopping action pool...")

	// 2. Даём action шанс завершиться
	p.FetchStartedIDs()
	if err := p.wait(context.Background(), p.cfg.StopTimeout, true, ErrPoolStopped); err != nil {
		p.logger.Error("wait on stop failed", "error", err)
	}

	// 3. Слоты больше не берут задачи и не запускают замены
	close(closing)

	// 4. Задачи, которые так и не начались
	for task := range inbound {
		p.logger.Debug("non consumed task in inbound channel", "action_id", task.ID)
		p.abandon(task.ID, ErrPoolStopped)
	}

	// 5. Безусловно завершаем все процессы
	p.killWorkers(ErrPoolStopped)
	p.wg.Wait()

	// 6. Дочитываем liveness и закрываем канал
	p.FetchStartedIDs()
	p.mu.Lock()
	p.liveness = nil
	p.inbound = nil
	p.mu.Unlock()
	close(liveness)
	for l := range liveness {
		p.logger.Debug("non consumed data in liveness channel", "action_id", l.ID)
	}

	p.abortAll(ErrPoolStopped)
	p.logger.Info("action pool stopped")
}

// notify передаёт запись слушателю.
func (p *Pool) notify(rec domain.ActionRecord) {
	if p.listener == nil {
		return
	}
	p.listener.ActionFinished(rec)
}

// finish удаляет action из pending и классифицирует его.
// Вызывается под мьютексом. Возвращает nil, если action уже не в полёте.
func (p *Pool) finish(id uint64, status domain.ActionStatus, errText string) (*pendingAction, *domain.ActionRecord) {
	pa, ok := p.pending[id]
	if !ok {
		return nil, nil
	}
	delete(p.pending, id)
	p.inFlight--
	p.counters.add(status, id)

	rec := pa.record(status, time.Now(), errText)
	return pa, &rec
}

// complete — колбэк успешного получения результата от worker'а.
func (p *Pool) complete(res wire.Result) {
	// Liveness для этого action мог ещё лежать в канале.
	p.FetchStartedIDs()

	status := domain.ActionStatusOK
	var resErr error
	if res.ExitCode != wire.ExitOK {
		status = domain.ActionStatusFailed
		resErr = fmt.Errorf("%s", res.Error)
	}

	p.mu.Lock()
	pa, rec := p.finish(res.ID, status, res.Error)
	p.mu.Unlock()

	if pa == nil {
		p.logger.Debug("result for action that is no longer pending", "action_id", res.ID)
		return
	}
	pa.result.resolve(resErr)

	if status == domain.ActionStatusFailed {
		p.logger.Error("action handler error", "action_id", res.ID, "action", pa.name, "error", res.Error)
	} else {
		p.logger.Debug("action finished", "action_id", res.ID, "action", pa.name, "duration", rec.Duration())
	}
	p.notify(*rec)
}

// abandon классифицирует action как aborted, если он ещё в полёте.
func (p *Pool) abandon(id uint64, reason error) bool {
	p.mu.Lock()
	pa, rec := p.finish(id, domain.ActionStatusAborted, reason.Error())
	p.mu.Unlock()

	if pa == nil {
		return false
	}
	pa.result.resolve(reason)
	p.notify(*rec)
	return true
}

// abortAll классифицирует все оставшиеся action как aborted.
func (p *Pool) abortAll(reason error) {
	p.mu.Lock()
	ids := make([]uint64, 0, len(p.pending))
	for id := range p.pending {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		if p.abandon(id, reason) {
			p.logger.Warn("action aborted", "action_id", id, "reason", reason)
		}
	}
}
