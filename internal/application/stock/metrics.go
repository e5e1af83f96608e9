package stock

import "context"

// MetricsRecorder receives ledger business counters. The telemetry package
// provides the OpenTelemetry implementation; tests use the no-op.
type MetricsRecorder interface {
	MovementCreated(ctx context.Context, kind string)
	InsufficientBlocked(ctx context.Context)
	ExpiredBlocked(ctx context.Context)
	IdempotentReplay(ctx context.Context)
	Rollback(ctx context.Context)
}

// NoOpMetrics discards all counter increments
type NoOpMetrics struct{}

func (NoOpMetrics) MovementCreated(context.Context, string) {}
func (NoOpMetrics) InsufficientBlocked(context.Context)     {}
func (NoOpMetrics) ExpiredBlocked(context.Context)          {}
func (NoOpMetrics) IdempotentReplay(context.Context)        {}
func (NoOpMetrics) Rollback(context.Context)                {}
