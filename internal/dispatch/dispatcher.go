package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Feedactions/internal/action"
	"github.com/shaiso/Feedactions/internal/catalog"
)

// Submitter — пул, принимающий action.
type Submitter interface {
	Submit(a *action.Action) (uint64, bool)
}

// Request — запрос на выполнение действия.
type Request struct {
	Action    string `json:"action"`
	URL       string `json:"url"`
	Signature string `json:"signature"`
}

// Accepted — принятый запрос.
type Accepted struct {
	ID     uint64 `json:"id"`
	Action string `json:"action"`
	URL    string `json:"url"`
}

// Dispatcher проверяет запросы и передаёт action пулу.
type Dispatcher struct {
	signer  *Signer
	catalog *catalog.Catalog
	pool    Submitter
	logger  *slog.Logger
}

// Config — конфигурация Dispatcher.
type Config struct {
	Signer  *Signer
	Catalog *catalog.Catalog
	Pool    Submitter
	Logger  *slog.Logger
}

// New создаёт Dispatcher.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		signer:  cfg.Signer,
		catalog: cfg.Catalog,
		pool:    cfg.Pool,
		logger:  logger,
	}
}

// Dispatch проверяет запрос и ставит action в пул.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Accepted, error) {
	if req.Action == "" || req.URL == "" {
		return Accepted{}, fmt.Errorf("%w: action and url are required", ErrMissingField)
	}

	// 1. Подпись
	if !d.signer.Verify(req.Action, req.URL, req.Signature) {
		d.logger.Warn("action request with wrong signature", "action", req.Action)
		return Accepted{}, ErrBadSignature
	}

	// 2-3. Каталог и проверка action
	a, err := d.catalog.Build(req.Action, req.URL)
	if err != nil {
		return Accepted{}, err
	}

	if err := ctx.Err(); err != nil {
		return Accepted{}, err
	}

	// 4. Пул
	id, ok := d.pool.Submit(a)
	if !ok {
		d.logger.Info("action rejected by pool", "action", req.Action, "action_id", id)
		return Accepted{}, ErrRejected
	}

	d.logger.Info("action accepted", "action", req.Action, "action_id", id)
	return Accepted{ID: id, Action: req.Action, URL: catalog.SanitizeURL(req.URL)}, nil
}

// Sign возвращает подпись для ссылки на действие.
func (d *Dispatcher) Sign(actionName, url string) string {
	return d.signer.Sign(actionName, url)
}

// Catalog возвращает каталог действий.
func (d *Dispatcher) Catalog() *catalog.Catalog {
	return d.catalog
}
