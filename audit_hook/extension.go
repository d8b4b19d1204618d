// Package audithook bridges points ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any audit backend. Callers inject a RecorderFunc adapter at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	points "github.com/xraph/points"
	"github.com/xraph/points/id"
	"github.com/xraph/points/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin            = (*Extension)(nil)
	_ plugin.OnPointsLoaded    = (*Extension)(nil)
	_ plugin.OnPointsAdded     = (*Extension)(nil)
	_ plugin.OnPointsSpent     = (*Extension)(nil)
	_ plugin.OnDailyClaimed    = (*Extension)(nil)
	_ plugin.OnClaimRejected   = (*Extension)(nil)
	_ plugin.OnOperationFailed = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	ID         id.AuditID     `json:"id"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnPointsLoaded implements plugin.OnPointsLoaded.
func (e *Extension) OnPointsLoaded(ctx context.Context, evt *plugin.Event) error {
	return e.record(ctx, ActionPointsLoaded, SeverityInfo, OutcomeSuccess,
		ResourceAccount, evt.UserID, CategoryBalance, nil,
		balancePairs(evt)...,
	)
}

// OnPointsAdded implements plugin.OnPointsAdded.
func (e *Extension) OnPointsAdded(ctx context.Context, evt *plugin.Event) error {
	return e.record(ctx, ActionPointsAdded, SeverityInfo, OutcomeSuccess,
		ResourceAccount, evt.UserID, CategoryBalance, nil,
		append(balancePairs(evt),
			"amount", evt.Amount,
			"free", evt.FreeDelta > 0,
		)...,
	)
}

// OnPointsSpent implements plugin.OnPointsSpent.
func (e *Extension) OnPointsSpent(ctx context.Context, evt *plugin.Event) error {
	return e.record(ctx, ActionPointsSpent, SeverityInfo, OutcomeSuccess,
		ResourceAccount, evt.UserID, CategoryBalance, nil,
		append(balancePairs(evt),
			"amount", evt.Amount,
			"free_delta", evt.FreeDelta,
			"purchased_delta", evt.PurchasedDelta,
		)...,
	)
}

// ──────────────────────────────────────────────────
// Daily claim hooks
// ──────────────────────────────────────────────────

// OnDailyClaimed implements plugin.OnDailyClaimed.
func (e *Extension) OnDailyClaimed(ctx context.Context, evt *plugin.Event) error {
	pairs := append(balancePairs(evt), "grant", evt.Amount)
	if evt.LastClaimAt != nil {
		pairs = append(pairs, "claimed_at", *evt.LastClaimAt)
	}
	return e.record(ctx, ActionDailyClaimed, SeverityInfo, OutcomeSuccess,
		ResourceClaim, evt.UserID, CategoryReward, nil,
		pairs...,
	)
}

// OnClaimRejected implements plugin.OnClaimRejected.
func (e *Extension) OnClaimRejected(ctx context.Context, userID string) error {
	return e.record(ctx, ActionClaimRejected, SeverityWarning, OutcomeFailure,
		ResourceClaim, userID, CategoryReward, points.ErrClaimNotAvailable,
	)
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnOperationFailed implements plugin.OnOperationFailed.
func (e *Extension) OnOperationFailed(ctx context.Context, evt *plugin.Event, err error) error {
	severity := SeverityWarning
	if points.IsRetryable(err) {
		severity = SeverityError
	}
	return e.record(ctx, ActionOperationFailed, severity, OutcomeFailure,
		ResourceAccount, evt.UserID, CategoryError, err,
		"operation", evt.Operation,
		"operation_id", evt.OperationID,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func balancePairs(evt *plugin.Event) []any {
	return []any{
		"operation_id", evt.OperationID,
		"free_points", evt.FreePoints,
		"purchased_points", evt.PurchasedPoints,
	}
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		ID:         id.NewAuditID(),
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
