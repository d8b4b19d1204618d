// Package observability provides a metrics extension for the points ledger
// that records operation counts and latencies via a MetricFactory.
package observability

import (
	"context"
	"errors"

	points "github.com/xraph/points"
	"github.com/xraph/points/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin            = (*MetricsExtension)(nil)
	_ plugin.OnInit            = (*MetricsExtension)(nil)
	_ plugin.OnPointsLoaded    = (*MetricsExtension)(nil)
	_ plugin.OnPointsAdded     = (*MetricsExtension)(nil)
	_ plugin.OnPointsSpent     = (*MetricsExtension)(nil)
	_ plugin.OnDailyClaimed    = (*MetricsExtension)(nil)
	_ plugin.OnClaimRejected   = (*MetricsExtension)(nil)
	_ plugin.OnOperationFailed = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger operation metrics.
// Register it as a Ledger plugin to track balances moving through the system.
type MetricsExtension struct {
	factory MetricFactory

	// Balance metrics
	Loaded           Counter
	PointsAdded      Counter
	FreeAdded        Counter
	PointsSpent      Counter
	FreeSpent        Counter
	PurchasedSpent   Counter
	SpendAmount      Histogram
	OperationLatency Histogram

	// Daily claim metrics
	DailyClaimed  Counter
	ClaimRejected Counter

	// Error metrics
	OperationFailed    Counter
	InsufficientPoints Counter
	StoreErrors        Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Balance metrics
		Loaded:           factory.Counter("points.loaded"),
		PointsAdded:      factory.Counter("points.added"),
		FreeAdded:        factory.Counter("points.added.free"),
		PointsSpent:      factory.Counter("points.spent"),
		FreeSpent:        factory.Counter("points.spent.free"),
		PurchasedSpent:   factory.Counter("points.spent.purchased"),
		SpendAmount:      factory.Histogram("points.spend.amount"),
		OperationLatency: factory.Histogram("points.operation.latency_ms"),

		// Daily claim metrics
		DailyClaimed:  factory.Counter("points.daily.claimed"),
		ClaimRejected: factory.Counter("points.daily.rejected"),

		// Error metrics
		OperationFailed:    factory.Counter("points.operation.failed"),
		InsufficientPoints: factory.Counter("points.insufficient"),
		StoreErrors:        factory.Counter("points.store.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnPointsLoaded implements plugin.OnPointsLoaded.
func (m *MetricsExtension) OnPointsLoaded(_ context.Context, evt *plugin.Event) error {
	m.Loaded.Inc()
	m.observeLatency(evt)
	return nil
}

// OnPointsAdded implements plugin.OnPointsAdded.
func (m *MetricsExtension) OnPointsAdded(_ context.Context, evt *plugin.Event) error {
	if evt.FreeDelta > 0 {
		m.FreeAdded.Add(float64(evt.FreeDelta))
	} else {
		m.PointsAdded.Add(float64(evt.PurchasedDelta))
	}
	m.observeLatency(evt)
	return nil
}

// OnPointsSpent implements plugin.OnPointsSpent.
func (m *MetricsExtension) OnPointsSpent(_ context.Context, evt *plugin.Event) error {
	m.PointsSpent.Add(float64(evt.Amount))
	if evt.FreeDelta < 0 {
		m.FreeSpent.Add(float64(-evt.FreeDelta))
	}
	if evt.PurchasedDelta < 0 {
		m.PurchasedSpent.Add(float64(-evt.PurchasedDelta))
	}
	m.SpendAmount.Observe(float64(evt.Amount))
	m.observeLatency(evt)
	return nil
}

// ──────────────────────────────────────────────────
// Daily claim hooks
// ──────────────────────────────────────────────────

// OnDailyClaimed implements plugin.OnDailyClaimed.
func (m *MetricsExtension) OnDailyClaimed(_ context.Context, evt *plugin.Event) error {
	m.DailyClaimed.Inc()
	m.observeLatency(evt)
	return nil
}

// OnClaimRejected implements plugin.OnClaimRejected.
func (m *MetricsExtension) OnClaimRejected(_ context.Context, _ string) error {
	m.ClaimRejected.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnOperationFailed implements plugin.OnOperationFailed.
func (m *MetricsExtension) OnOperationFailed(_ context.Context, _ *plugin.Event, err error) error {
	m.OperationFailed.Inc()
	switch {
	case errors.Is(err, points.ErrInsufficientPoints):
		m.InsufficientPoints.Inc()
	case points.IsRetryable(err):
		m.StoreErrors.Inc()
	}
	return nil
}

func (m *MetricsExtension) observeLatency(evt *plugin.Event) {
	if evt.Elapsed > 0 {
		m.OperationLatency.Observe(float64(evt.Elapsed.Milliseconds()))
	}
}
