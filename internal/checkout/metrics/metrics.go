package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	tokenFetchesTotal metric.Int64Counter
	submissionsTotal  metric.Int64Counter
	submitDuration    metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.tokenFetchesTotal, err = meter.Int64Counter(
		"checkout_token_fetches_total",
		metric.WithDescription("Client token fetches against the payment gateway"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkout_token_fetches counter: %w", err)
	}

	m.submissionsTotal, err = meter.Int64Counter(
		"checkout_submissions_total",
		metric.WithDescription("Checkout submissions by outcome"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkout_submissions counter: %w", err)
	}

	m.submitDuration, err = meter.Float64Histogram(
		"checkout_submit_duration_seconds",
		metric.WithDescription("Duration of checkout submissions"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkout_submit_duration histogram: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordTokenFetch(ctx context.Context, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.tokenFetchesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
}

func (m *Metrics) RecordSubmission(ctx context.Context, outcome string) {
	m.submissionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordSubmitDuration(ctx context.Context, durationSeconds float64) {
	m.submitDuration.Record(ctx, durationSeconds)
}
