// Package metrics provides the OpenTelemetry instruments for runs and jobs,
// exported in Prometheus format.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kiranshivaraju/postpilot/pkg/models"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/kiranshivaraju/postpilot"

// Init sets up a meter provider backed by a Prometheus exporter on a private
// registry. It returns the /metrics handler and a shutdown function.
func Init() (http.Handler, metric.MeterProvider, func(context.Context) error, error) {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return handler, provider, provider.Shutdown, nil
}

// Metrics records pipeline and scheduler activity.
type Metrics struct {
	meter       metric.Meter
	runs        metric.Int64Counter
	stages      metric.Float64Histogram
	fallbacks   metric.Int64Counter
	authExpired metric.Int64Counter
}

// New creates the instruments on provider.
func New(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName)
	m := &Metrics{meter: meter}

	var err error
	if m.runs, err = meter.Int64Counter("postpilot_runs",
		metric.WithDescription("Completed pipeline runs by outcome")); err != nil {
		return nil, fmt.Errorf("runs counter: %w", err)
	}
	if m.stages, err = meter.Float64Histogram("postpilot_stage_duration",
		metric.WithDescription("Time spent in each pipeline stage"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 15, 30, 60, 120, 300)); err != nil {
		return nil, fmt.Errorf("stage histogram: %w", err)
	}
	if m.fallbacks, err = meter.Int64Counter("postpilot_provider_fallbacks",
		metric.WithDescription("Provider failures that moved the chain to the next provider")); err != nil {
		return nil, fmt.Errorf("fallbacks counter: %w", err)
	}
	if m.authExpired, err = meter.Int64Counter("postpilot_auth_expired",
		metric.WithDescription("Publish attempts rejected because the access token expired")); err != nil {
		return nil, fmt.Errorf("auth expired counter: %w", err)
	}
	return m, nil
}

// NewNop returns Metrics that record nothing.
func NewNop() *Metrics {
	m, _ := New(noop.NewMeterProvider())
	return m
}

func (m *Metrics) RunCompleted(ctx context.Context, outcome models.Outcome) {
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
}

func (m *Metrics) StageObserved(ctx context.Context, stage models.Stage, d time.Duration) {
	m.stages.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", string(stage))))
}

func (m *Metrics) ProviderFallback(ctx context.Context, provider string) {
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}

func (m *Metrics) AuthExpired(ctx context.Context) {
	m.authExpired.Add(ctx, 1)
}

// ObserveJobs registers a gauge of jobs per status, computed by count only
// when scraped.
func (m *Metrics) ObserveJobs(count func(ctx context.Context) (map[models.JobStatus]int64, error)) error {
	_, err := m.meter.Int64ObservableGauge("postpilot_jobs",
		metric.WithDescription("Jobs in the store by status"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			counts, err := count(ctx)
			if err != nil {
				// A store hiccup must not fail the scrape.
				return nil
			}
			for status, n := range counts {
				obs.Observe(n, metric.WithAttributes(attribute.String("status", string(status))))
			}
			return nil
		}),
	)
	return err
}
