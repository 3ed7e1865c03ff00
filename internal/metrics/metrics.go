// Package metrics wires dispatcher and pipeline activity into the
// OpenTelemetry Metrics API: a global MeterProvider (set by whatever
// exporter the deployment configures) feeds a small set of instruments
// that the rest of the module records against.
package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/livecap/livecap-core"

// Dispatch holds the OpenTelemetry instruments recording
// SharedEngineDispatcher activity.
type Dispatch struct {
	EngineCalls    metric.Int64Counter
	EngineDuration metric.Float64Histogram
	BreakerTrips   metric.Int64Counter
	CacheHits      metric.Int64Counter
	CacheMisses    metric.Int64Counter
}

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// NewDispatch creates a Dispatch instrument set against mp. Returns an
// error if any instrument fails to register.
func NewDispatch(mp metric.MeterProvider) (*Dispatch, error) {
	m := mp.Meter(meterName)
	d := &Dispatch{}
	var err error

	if d.EngineCalls, err = m.Int64Counter("livecap.dispatch.engine_calls",
		metric.WithDescription("Total calls into the shared ASR engine, by engine_id and status."),
	); err != nil {
		return nil, err
	}
	if d.EngineDuration, err = m.Float64Histogram("livecap.dispatch.engine_duration",
		metric.WithDescription("Latency of shared ASR engine calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if d.BreakerTrips, err = m.Int64Counter("livecap.dispatch.breaker_trips",
		metric.WithDescription("Requests rejected because the engine circuit breaker was open."),
	); err != nil {
		return nil, err
	}
	if d.CacheHits, err = m.Int64Counter("livecap.dispatch.cache_hits",
		metric.WithDescription("Engine-handle cache hits."),
	); err != nil {
		return nil, err
	}
	if d.CacheMisses, err = m.Int64Counter("livecap.dispatch.cache_misses",
		metric.WithDescription("Engine-handle cache misses."),
	); err != nil {
		return nil, err
	}
	return d, nil
}

// RecordEngineCall records one engine invocation's outcome and latency.
func (d *Dispatch) RecordEngineCall(ctx context.Context, engineID string, elapsedSeconds float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(attribute.String("engine_id", engineID), attribute.String("status", status))
	d.EngineCalls.Add(ctx, 1, attrs)
	d.EngineDuration.Record(ctx, elapsedSeconds, attrs)
}

// RecordBreakerTrip records a request rejected by an open circuit breaker.
func (d *Dispatch) RecordBreakerTrip(ctx context.Context, engineID string) {
	d.BreakerTrips.Add(ctx, 1, metric.WithAttributes(attribute.String("engine_id", engineID)))
}

var (
	defaultDispatch     *Dispatch
	defaultDispatchOnce sync.Once
)

// DefaultDispatch returns the package-level Dispatch instrument set,
// created on first use against the global MeterProvider. A deployment
// that never configures a metrics exporter gets OpenTelemetry's no-op
// provider, so these calls are safe but inert by default.
func DefaultDispatch() *Dispatch {
	defaultDispatchOnce.Do(func() {
		var err error
		defaultDispatch, err = NewDispatch(otel.GetMeterProvider())
		if err != nil {
			panic("metrics: failed to create default dispatch instruments: " + err.Error())
		}
	})
	return defaultDispatch
}
