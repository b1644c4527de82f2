package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"inventory-mobile/client/internal/telemetry"
)

const loggerName = "inventory-client.session"

// recordEmitter is the part of otellog.Logger the adapter uses.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends session events as OTel log records.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger(loggerName)}
}

// NewEventEmitterWithLogger wraps any record sink; used by tests.
func NewEventEmitterWithLogger(l recordEmitter) telemetry.EventEmitter {
	return &otelEmitter{logger: l}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *telemetry.Event) error { return nil }

type otelEmitter struct {
	logger recordEmitter
}

func (e *otelEmitter) Emit(ctx context.Context, event *telemetry.Event) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	at := event.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	rec.SetTimestamp(at)
	rec.SetEventName(string(event.Type))
	rec.SetBody(otellog.StringValue(string(event.Type)))
	if event.Type == telemetry.EventForcedLogout || event.Type == telemetry.EventRefreshFailed || event.Type == telemetry.EventLoginFailed {
		rec.SetSeverity(otellog.SeverityWarn)
	} else {
		rec.SetSeverity(otellog.SeverityInfo)
	}
	rec.AddAttributes(otellog.String("event_type", string(event.Type)))
	if event.UserID != 0 {
		rec.AddAttributes(otellog.Int64("user_id", event.UserID))
	}
	if event.Trigger != "" {
		rec.AddAttributes(otellog.String("trigger", event.Trigger))
	}
	if event.Reason != "" {
		rec.AddAttributes(otellog.String("reason", event.Reason))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
