package logging

import (
	"context"
	"log/slog"

	"dubline/internal/services"
)

// Structured field keys shared by every component. Log consumers (the logs
// command, history tooling) filter on these names.
const (
	FieldComponent     = "component"
	FieldRunID         = "run_id"
	FieldJobID         = "job_id"
	FieldStage         = "stage"
	FieldCorrelationID = "correlation_id"

	FieldEventType    = "event_type"
	FieldErrorHint    = "error_hint"
	FieldImpact       = "impact" // user-facing consequence of a warning
	FieldDecisionType = "decision_type"
)

// ContextFields returns the run, job, stage and request identifiers carried
// by ctx as attributes.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	lookups := []struct {
		key   string
		value func(context.Context) (string, bool)
	}{
		{FieldRunID, services.RunIDFromContext},
		{FieldJobID, services.JobIDFromContext},
		{FieldStage, services.StageFromContext},
		{FieldCorrelationID, services.RequestIDFromContext},
	}
	var fields []slog.Attr
	for _, l := range lookups {
		if v, ok := l.value(ctx); ok {
			fields = append(fields, slog.String(l.key, v))
		}
	}
	return fields
}

// WithContext decorates logger with ContextFields(ctx).
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return logger.With(Args(fields...)...)
	}
	return logger
}
