package api

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/Feedactions/internal/dispatch"
	"github.com/shaiso/Feedactions/internal/domain"
	"github.com/shaiso/Feedactions/internal/pool"
	"github.com/shaiso/Feedactions/internal/repo"
)

// StatsSource отдаёт снимок статистики пула.
type StatsSource interface {
	Statistic() pool.Statistic
}

// HistoryStore читает журнал action.
type HistoryStore interface {
	List(ctx context.Context, filter repo.OutcomeFilter) ([]domain.ActionRecord, error)
}

// Handler — обработчик API с зависимостями.
type Handler struct {
	dispatcher *dispatch.Dispatcher
	stats      StatsSource
	history    HistoryStore
	requests   *prometheus.CounterVec
	logger     *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Dispatcher *dispatch.Dispatcher
	Stats      StatsSource

	// History — журнал; nil отключает /history.
	History HistoryStore

	// Requests — счётчик запросов (метки route, status); опционально.
	Requests *prometheus.CounterVec

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		dispatcher: cfg.Dispatcher,
		stats:      cfg.Stats,
		history:    cfg.History,
		requests:   cfg.Requests,
		logger:     logger,
	}
}
