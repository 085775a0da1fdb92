package importer

import (
	"context"
	"log/slog"

	"castsync/internal/library"
	"castsync/internal/logging"
	"castsync/internal/notifications"
)

// EventSink receives the outcome of individual imports. Sinks must not fail
// the import: errors they return are logged and dropped.
type EventSink interface {
	ImportSucceeded(ctx context.Context, object *library.MultimediaObject, mediaPackageID string) error
	ImportFailed(ctx context.Context, err error, mediaPackageID string) error
}

// NotifierSink forwards import outcomes to the notification service.
type NotifierSink struct {
	notifier        notifications.Service
	defaultLanguage string
}

// NewNotifierSink creates a sink over the given notification service.
func NewNotifierSink(notifier notifications.Service, defaultLanguage string) *NotifierSink {
	return &NotifierSink{notifier: notifier, defaultLanguage: defaultLanguage}
}

func (n *NotifierSink) ImportSucceeded(ctx context.Context, object *library.MultimediaObject, mediaPackageID string) error {
	return n.notifier.NotifyImportCompleted(ctx, object.TitleIn(n.defaultLanguage), mediaPackageID)
}

func (n *NotifierSink) ImportFailed(ctx context.Context, err error, mediaPackageID string) error {
	return n.notifier.NotifyImportError(ctx, err, mediaPackageID)
}

func (s *Service) emitSucceeded(ctx context.Context, object *library.MultimediaObject, mediaPackageID string) {
	for _, sink := range s.sinks {
		if err := sink.ImportSucceeded(ctx, object, mediaPackageID); err != nil {
			s.logger.WarnContext(ctx, "import event sink failed",
				slog.String(logging.FieldComponent, "importer"),
				slog.String(logging.FieldMediaPackageID, mediaPackageID),
				slog.String("error", err.Error()))
		}
	}
}

func (s *Service) emitFailed(ctx context.Context, importErr error, mediaPackageID string) {
	for _, sink := range s.sinks {
		if err := sink.ImportFailed(ctx, importErr, mediaPackageID); err != nil {
			s.logger.WarnContext(ctx, "import event sink failed",
				slog.String(logging.FieldComponent, "importer"),
				slog.String(logging.FieldMediaPackageID, mediaPackageID),
				slog.String("error", err.Error()))
		}
	}
}
