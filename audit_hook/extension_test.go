package audithook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	points "github.com/xraph/points"
	"github.com/xraph/points/id"
	"github.com/xraph/points/plugin"
)

type captured struct {
	events []*AuditEvent
}

func (c *captured) recorder() Recorder {
	return RecorderFunc(func(_ context.Context, evt *AuditEvent) error {
		c.events = append(c.events, evt)
		return nil
	})
}

func TestSpentEventCarriesDeltas(t *testing.T) {
	c := &captured{}
	ext := New(c.recorder())

	err := ext.OnPointsSpent(context.Background(), &plugin.Event{
		OperationID:    "pop_x",
		UserID:         "u1",
		Amount:         8,
		FreeDelta:      -5,
		PurchasedDelta: -3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(c.events) != 1 {
		t.Fatalf("events: got %d", len(c.events))
	}
	evt := c.events[0]
	if evt.Action != ActionPointsSpent || evt.ResourceID != "u1" || evt.Outcome != OutcomeSuccess {
		t.Errorf("unexpected event: %+v", evt)
	}
	if evt.ID.Prefix() != id.PrefixAudit {
		t.Errorf("ID: got %q", evt.ID)
	}
	if evt.Metadata["free_delta"] != int64(-5) || evt.Metadata["purchased_delta"] != int64(-3) {
		t.Errorf("metadata: %v", evt.Metadata)
	}
}

func TestAuditEventJSON(t *testing.T) {
	c := &captured{}
	ext := New(c.recorder())
	if err := ext.OnPointsAdded(context.Background(), &plugin.Event{UserID: "u1", Amount: 4, FreeDelta: 4}); err != nil {
		t.Fatal(err)
	}
	evt := c.events[0]

	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"id":"`+evt.ID.String()+`"`) {
		t.Errorf("id not rendered as text: %s", data)
	}

	var decoded AuditEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.ID.String() != evt.ID.String() {
		t.Errorf("ID: got %q, want %q", decoded.ID, evt.ID)
	}
	if decoded.Action != ActionPointsAdded || decoded.ResourceID != "u1" {
		t.Errorf("decoded: %+v", decoded)
	}
}

func TestFailureSeverity(t *testing.T) {
	c := &captured{}
	ext := New(c.recorder())
	ctx := context.Background()
	evt := &plugin.Event{Operation: "spend", UserID: "u1"}

	_ = ext.OnOperationFailed(ctx, evt, points.ErrInsufficientPoints)
	_ = ext.OnOperationFailed(ctx, evt, points.ErrStoreUnavailable)

	if c.events[0].Severity != SeverityWarning {
		t.Errorf("user error severity: got %s", c.events[0].Severity)
	}
	if c.events[1].Severity != SeverityError {
		t.Errorf("store error severity: got %s", c.events[1].Severity)
	}
	if c.events[1].Reason == "" {
		t.Error("failure reason missing")
	}
}

func TestDisabledActions(t *testing.T) {
	c := &captured{}
	ext := New(c.recorder(), WithDisabledActions(ActionPointsLoaded))
	ctx := context.Background()

	_ = ext.OnPointsLoaded(ctx, &plugin.Event{UserID: "u1"})
	_ = ext.OnClaimRejected(ctx, "u1")

	if len(c.events) != 1 || c.events[0].Action != ActionClaimRejected {
		t.Fatalf("events: %+v", c.events)
	}
}

func TestRecorderErrorIsSwallowed(t *testing.T) {
	ext := New(
		RecorderFunc(func(context.Context, *AuditEvent) error { return errors.New("backend down") }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err := ext.OnClaimRejected(context.Background(), "u1"); err != nil {
		t.Fatalf("got %v, want nil", err)
	}
}
