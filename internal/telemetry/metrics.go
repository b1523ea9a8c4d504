package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shaiso/Feedactions/internal/domain"
)

const namespace = "feedactions"

// PoolGauges — источники мгновенных значений пула. nil-функции пропускаются.
type PoolGauges struct {
	InFlight func() int
	Active   func() int
	Workers  func() int
}

// PoolMetrics — Prometheus метрики пула action.
// Реализует слушателя классификаций пула.
type PoolMetrics struct {
	actions  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPoolMetrics регистрирует метрики в reg.
// Если reg == nil, используется prometheus.DefaultRegisterer.
func NewPoolMetrics(reg prometheus.Registerer, gauges PoolGauges) *PoolMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &PoolMetrics{
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Actions classified by the pool, by status.",
		}, []string{"status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Time from action start to its classification.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 1800},
		}, []string{"status"}),
	}

	// Нулевые значения видны сразу, до первого action.
	for _, s := range domain.Statuses() {
		m.actions.WithLabelValues(string(s))
	}

	gauge := func(name, help string, fn func() int) {
		if fn == nil {
			return
		}
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(fn()) })
	}
	gauge("actions_in_flight", "Actions admitted and not yet classified.", gauges.InFlight)
	gauge("actions_active", "Actions running in a pool process.", gauges.Active)
	gauge("pool_workers", "Live pool processes.", gauges.Workers)

	return m
}

// ActionFinished учитывает классификацию action.
func (m *PoolMetrics) ActionFinished(rec domain.ActionRecord) {
	status := string(rec.Status)
	m.actions.WithLabelValues(status).Inc()

	// Отклонённые и не начатые action длительности не имеют.
	if rec.StartedAt != nil {
		m.duration.WithLabelValues(status).Observe(rec.Duration().Seconds())
	}
}

// NewHTTPRequests регистрирует счётчик HTTP запросов с метками route и status.
func NewHTTPRequests(reg prometheus.Registerer) *prometheus.CounterVec {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests handled by the API, by route and status.",
	}, []string{"route", "status"})
}
