package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/dmitrijs2005/authkeeper"

// Outcomes recorded for auth operations.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuthMetrics counts session operations by name and outcome.
type AuthMetrics struct {
	ops metric.Int64Counter
}

// NewAuthMetrics creates the instruments on the global meter provider, so it
// must be called after Setup.
func NewAuthMetrics() (*AuthMetrics, error) {
	ops, err := otel.Meter(instrumentationName).Int64Counter(
		"auth.operations",
		metric.WithDescription("Authentication operations by outcome"),
	)
	if err != nil {
		return nil, err
	}
	return &AuthMetrics{ops: ops}, nil
}

// RecordOutcome increments auth_operations_total{operation,outcome}.
func (m *AuthMetrics) RecordOutcome(ctx context.Context, operation, outcome string) {
	if m == nil {
		return
	}
	m.ops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}
