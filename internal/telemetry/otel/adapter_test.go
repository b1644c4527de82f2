package otel

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"inventory-mobile/client/internal/telemetry"
)

type recordCapture struct {
	recs []otellog.Record
}

func (r *recordCapture) Emit(ctx context.Context, rec otellog.Record) {
	r.recs = append(r.recs, rec)
}

func attrs(rec otellog.Record) map[string]otellog.Value {
	out := make(map[string]otellog.Value)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		out[kv.Key] = kv.Value
		return true
	})
	return out
}

func TestNewEventEmitter_NilProvider_ReturnsNoop(t *testing.T) {
	em := NewEventEmitter(nil)
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("noop Emit(ctx, nil): %v", err)
	}
	if err := em.Emit(context.Background(), &telemetry.Event{Type: telemetry.EventLogout}); err != nil {
		t.Errorf("noop Emit: %v", err)
	}
}

func TestNewEventEmitter_SDKProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	em := NewEventEmitter(provider)
	if err := em.Emit(context.Background(), &telemetry.Event{Type: telemetry.EventSessionValid}); err != nil {
		t.Errorf("Emit: %v", err)
	}
}

func TestEmit_NilEvent(t *testing.T) {
	c := &recordCapture{}
	if err := NewEventEmitterWithLogger(c).Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(ctx, nil): %v", err)
	}
	if len(c.recs) != 0 {
		t.Errorf("records = %d, want 0", len(c.recs))
	}
}

func TestEmit_AttributeMapping(t *testing.T) {
	c := &recordCapture{}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := NewEventEmitterWithLogger(c).Emit(context.Background(), &telemetry.Event{
		Type:    telemetry.EventForcedLogout,
		UserID:  42,
		Trigger: "timer",
		Reason:  "refresh rejected",
		At:      at,
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(c.recs) != 1 {
		t.Fatalf("records = %d, want 1", len(c.recs))
	}
	rec := c.recs[0]
	if !rec.Timestamp().Equal(at) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), at)
	}
	if rec.Severity() != otellog.SeverityWarn {
		t.Errorf("severity = %v, want warn", rec.Severity())
	}
	a := attrs(rec)
	if got := a["event_type"].AsString(); got != "forced_logout" {
		t.Errorf("event_type = %q, want forced_logout", got)
	}
	if got := a["user_id"].AsInt64(); got != 42 {
		t.Errorf("user_id = %d, want 42", got)
	}
	if got := a["trigger"].AsString(); got != "timer" {
		t.Errorf("trigger = %q, want timer", got)
	}
	if got := a["reason"].AsString(); got != "refresh rejected" {
		t.Errorf("reason = %q, want %q", got, "refresh rejected")
	}
}

func TestEmit_OmitsEmptyFields(t *testing.T) {
	c := &recordCapture{}
	_ = NewEventEmitterWithLogger(c).Emit(context.Background(), &telemetry.Event{Type: telemetry.EventSessionValid})
	a := attrs(c.recs[0])
	for _, k := range []string{"user_id", "trigger", "reason"} {
		if _, ok := a[k]; ok {
			t.Errorf("attribute %q set for empty field", k)
		}
	}
	if c.recs[0].Timestamp().IsZero() {
		t.Error("zero At should be stamped with the current time")
	}
	if c.recs[0].Severity() != otellog.SeverityInfo {
		t.Errorf("severity = %v, want info", c.recs[0].Severity())
	}
}
