// Package telemetry wires the ambient otel metrics/tracing stack every node
// exports, regardless of which spec.md feature is in scope for a given
// build (spec's Non-goals exclude strong consistency and durable queues,
// not observability).
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Instruments holds the node-level metric instruments this repo exports.
// Names follow the please.<area>.<noun> convention.
type Instruments struct {
	Busyness       metric.Int64Gauge
	Pending        metric.Int64Gauge
	Handling       metric.Int64Gauge
	AssignedTotal  metric.Int64Counter
	DelegatedTotal metric.Int64Counter
	CompletedTotal metric.Int64Counter
	ErroredTotal   metric.Int64Counter
}

// SetPending, SetHandling, and SetBusyness satisfy internal/requests.Metrics,
// letting Store report its own gauges without importing otel directly.
func (i Instruments) SetPending(n int64)  { i.Pending.Record(context.Background(), n) }
func (i Instruments) SetHandling(n int64) { i.Handling.Record(context.Background(), n) }
func (i Instruments) SetBusyness(n int64) { i.Busyness.Record(context.Background(), n) }

// IncAssigned, IncDelegated, IncCompleted, and IncErrored bump the matching
// request-lifecycle counter by one. Called from internal/tasks as requests
// move through assign/handle.
func (i Instruments) IncAssigned()  { i.AssignedTotal.Add(context.Background(), 1) }
func (i Instruments) IncDelegated() { i.DelegatedTotal.Add(context.Background(), 1) }
func (i Instruments) IncCompleted() { i.CompletedTotal.Add(context.Background(), 1) }
func (i Instruments) IncErrored()   { i.ErroredTotal.Add(context.Background(), 1) }

// Provider bundles the tracer/meter providers installed as process globals
// and the node-specific instruments built from them.
type Provider struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Instruments    Instruments
}

// Setup installs a tracer provider and meter provider as the otel globals
// and returns the node's metric instruments, mirroring the teacher's
// sdktrace.NewTracerProvider()/otel.SetTracerProvider bootstrap extended to
// the sibling otel/sdk/metric package.
func Setup(serviceName string) (*Provider, error) {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	mp := sdkmetric.NewMeterProvider()
	otel.SetMeterProvider(mp)

	meter := mp.Meter(serviceName)

	busyness, err := meter.Int64Gauge("please.busyness")
	if err != nil {
		return nil, fmt.Errorf("telemetry: busyness gauge: %w", err)
	}
	pending, err := meter.Int64Gauge("please.requests.pending")
	if err != nil {
		return nil, fmt.Errorf("telemetry: pending gauge: %w", err)
	}
	handling, err := meter.Int64Gauge("please.requests.handling")
	if err != nil {
		return nil, fmt.Errorf("telemetry: handling gauge: %w", err)
	}
	assigned, err := meter.Int64Counter("please.requests.assigned_total")
	if err != nil {
		return nil, fmt.Errorf("telemetry: assigned_total counter: %w", err)
	}
	delegated, err := meter.Int64Counter("please.requests.delegated_total")
	if err != nil {
		return nil, fmt.Errorf("telemetry: delegated_total counter: %w", err)
	}
	completed, err := meter.Int64Counter("please.requests.completed_total")
	if err != nil {
		return nil, fmt.Errorf("telemetry: completed_total counter: %w", err)
	}
	errored, err := meter.Int64Counter("please.requests.errored_total")
	if err != nil {
		return nil, fmt.Errorf("telemetry: errored_total counter: %w", err)
	}

	return &Provider{
		TracerProvider: tp,
		MeterProvider:  mp,
		Instruments: Instruments{
			Busyness:       busyness,
			Pending:        pending,
			Handling:       handling,
			AssignedTotal:  assigned,
			DelegatedTotal: delegated,
			CompletedTotal: completed,
			ErroredTotal:   errored,
		},
	}, nil
}

// Shutdown flushes and stops the tracer and meter providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.TracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown tracer provider: %w", err)
	}
	if err := p.MeterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown meter provider: %w", err)
	}
	return nil
}
