package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldObjectID is the standardized structured logging key for multimedia object identifiers.
	FieldObjectID = "object_id"
	// FieldMediaPackageID is the standardized structured logging key for remote media package identifiers.
	FieldMediaPackageID = "mediapackage_id"
	// FieldSeriesID is the standardized structured logging key for series identifiers.
	FieldSeriesID = "series_id"
)

type contextKey string

const (
	objectIDKey       contextKey = "object_id"
	mediaPackageIDKey contextKey = "mediapackage_id"
)

// WithObjectID annotates context with the multimedia object identifier.
func WithObjectID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, objectIDKey, id)
}

// WithMediaPackageID annotates context with the remote media package identifier.
func WithMediaPackageID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, mediaPackageIDKey, id)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := ctx.Value(objectIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldObjectID, id))
	}
	if id, ok := ctx.Value(mediaPackageIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldMediaPackageID, id))
	}
	return fields
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
	args := make([]any, 0, len(fields))
	for _, attr := range fields {
		args = append(args, attr)
	}
	return logger.With(args...)
}
