package observability

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_Stop(t *testing.T) {
	t.Run("records the duration", func(t *testing.T) {
		m := NewInMemoryMetrics()

		StartTimer("inbox.sync").WithMetrics(m).Stop(nil)

		assert.Len(t, m.GetTimings(MetricSyncDuration), 1)
		assert.Zero(t, m.GetCounter("inbox.sync.errors"))
	})

	t.Run("counts errors and logs them", func(t *testing.T) {
		m := NewInMemoryMetrics()
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

		StartTimer("inbox.push").WithMetrics(m).WithLogger(logger).WithTags(T("attempt", "1")).Stop(errors.New("conflict"))

		require.Len(t, m.GetTimings(MetricPushDuration, T("attempt", "1")), 1)
		assert.Equal(t, int64(1), m.GetCounter("inbox.push.errors", T("attempt", "1")))
		assert.Contains(t, buf.String(), "operation failed")
		assert.Contains(t, buf.String(), "error=conflict")
	})

	t.Run("works without collectors", func(t *testing.T) {
		assert.NotPanics(t, func() { StartTimer("noop").Stop(errors.New("x")) })
	})
}
