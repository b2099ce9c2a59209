package observability

import (
	"log/slog"
	"time"
)

// Timer measures one run of an operation.
type Timer struct {
	operation string
	start     time.Time
	logger    *slog.Logger
	metrics   Metrics
	tags      []Tag
}

// StartTimer starts timing operation. Stop records <operation>.duration.
func StartTimer(operation string) *Timer {
	return &Timer{operation: operation, start: time.Now()}
}

func (t *Timer) WithLogger(logger *slog.Logger) *Timer {
	t.logger = logger
	return t
}

func (t *Timer) WithMetrics(metrics Metrics) *Timer {
	t.metrics = metrics
	return t
}

func (t *Timer) WithTags(tags ...Tag) *Timer {
	t.tags = append(t.tags, tags...)
	return t
}

// Stop records the elapsed time and, for a non-nil err, counts
// <operation>.errors.
func (t *Timer) Stop(err error) time.Duration {
	elapsed := time.Since(t.start)

	if t.metrics != nil {
		t.metrics.Timing(t.operation+".duration", elapsed, t.tags...)
		if err != nil {
			t.metrics.Counter(t.operation+".errors", 1, t.tags...)
		}
	}
	if t.logger == nil {
		return elapsed
	}

	attrs := []any{OperationKey, t.operation, DurationKey, elapsed.Milliseconds()}
	if err != nil {
		t.logger.Debug("operation failed", append(attrs, ErrorKey, err)...)
	} else {
		t.logger.Debug("operation completed", attrs...)
	}
	return elapsed
}

// Elapsed is the time since StartTimer.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
