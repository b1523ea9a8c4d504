package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Feedactions/internal/domain"
)

func TestLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	assert.Equal(t, "DEBUG", LogLevel().String())

	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, "INFO", LogLevel().String())
}

func TestNewLogger_WritesToGivenWriter(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")

	var buf bytes.Buffer
	logger := WithWorkerID(WithActionID(NewLogger(&buf), 42), "w-1")
	logger.Info("action started")

	out := buf.String()
	assert.Contains(t, out, `"action_id":42`)
	assert.Contains(t, out, `"worker_id":"w-1"`)
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestPoolMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPoolMetrics(reg, PoolGauges{
		InFlight: func() int { return 3 },
		Workers:  func() int { return 2 },
	})

	started := time.Now().Add(-2 * time.Second)
	m.ActionFinished(domain.ActionRecord{
		ID: 1, Status: domain.ActionStatusOK, StartedAt: &started, FinishedAt: time.Now(),
	})
	m.ActionFinished(domain.ActionRecord{ID: 2, Status: domain.ActionStatusSkipped})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("skipped")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.actions.WithLabelValues("failed")))

	// Длительность только у начатых action.
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["feedactions_actions_in_flight"])
	assert.True(t, names["feedactions_pool_workers"])
	assert.False(t, names["feedactions_actions_active"])
}
