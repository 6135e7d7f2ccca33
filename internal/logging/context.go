package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldCycleID identifies the triage cycle a record belongs to.
	FieldCycleID = "cycle_id"
	// FieldPath is the absolute path of the file being handled.
	FieldPath = "path"
	// FieldType is the registry type name assigned to a file.
	FieldType = "type"
	// FieldEventType is a stable machine-readable tag for warnings and errors.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to do next.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldAttempt is the 1-based mover attempt number.
	FieldAttempt = "attempt"
	// FieldReason is the skip reason emitted by the classifier.
	FieldReason = "reason"
)

type cycleKey struct{}

// WithCycle returns a context carrying the triage cycle ID.
func WithCycle(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, cycleKey{}, id)
}

// CycleFromContext returns the cycle ID stored by WithCycle.
func CycleFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(cycleKey{}).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if id, ok := CycleFromContext(ctx); ok {
		return []slog.Attr{slog.String(FieldCycleID, id)}
	}
	return nil
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
