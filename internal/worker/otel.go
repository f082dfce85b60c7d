package worker

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/stats/internal/worker"

type metrics struct {
	files    metric.Int64Counter
	duration metric.Float64Histogram
}

func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)

	files, err := m.Int64Counter(
		"worker.files",
		metric.WithDescription("Replay files handled, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating files counter: %w", err)
	}

	duration, err := m.Float64Histogram(
		"worker.file.duration",
		metric.WithDescription("Time to process one replay file"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return &metrics{files: files, duration: duration}, nil
}

func (m *metrics) processed(ctx context.Context, d time.Duration) {
	m.files.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "processed")))
	m.duration.Record(ctx, d.Seconds())
}

func (m *metrics) skipped(ctx context.Context) {
	m.files.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "skipped")))
}

func (m *metrics) failed(ctx context.Context) {
	m.files.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
}
