package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"castsync/internal/config"
)

const userAgent = "castsync/0.1.0"

// Service defines the notification surface exposed to sync components.
type Service interface {
	NotifyImportCompleted(ctx context.Context, title, mediaPackageID string) error
	NotifyImportError(ctx context.Context, err error, mediaPackageID string) error
	NotifyBatchCompleted(ctx context.Context, imported, failed int, duration time.Duration) error
	NotifySeriesSynced(ctx context.Context, created, updated, deleted int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyImportCompleted(ctx context.Context, title, mediaPackageID string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		title = mediaPackageID
	}
	data := payload{
		title:   "castsync - Import Complete",
		message: fmt.Sprintf("Imported: %s (%s)", title, mediaPackageID),
		tags:    []string{"castsync", "import", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyImportError(ctx context.Context, err error, mediaPackageID string) error {
	var builder strings.Builder
	builder.WriteString("Import failed")
	if mediaPackageID = strings.TrimSpace(mediaPackageID); mediaPackageID != "" {
		builder.WriteString(" for ")
		builder.WriteString(mediaPackageID)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "castsync - Import Error",
		message:  builder.String(),
		tags:     []string{"castsync", "import", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, imported, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var title, message string
	if failed == 0 {
		title = "castsync - Batch Complete"
		message = fmt.Sprintf("Batch import complete: %d recordings imported in %s", imported, duration)
	} else {
		title = "castsync - Batch Complete (with errors)"
		message = fmt.Sprintf("Batch import complete: %d imported, %d failed in %s", imported, failed, duration)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"castsync", "batch", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySeriesSynced(ctx context.Context, created, updated, deleted int) error {
	data := payload{
		title:   "castsync - Series Synced",
		message: fmt.Sprintf("Series sync complete: %d created, %d updated, %d deleted", created, updated, deleted),
		tags:    []string{"castsync", "series", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "castsync - Test",
		message:  "Notification system test",
		tags:     []string{"castsync", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyImportCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifyImportError(context.Context, error, string) error      { return nil }
func (noopService) NotifyBatchCompleted(context.Context, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifySeriesSynced(context.Context, int, int, int) error { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }
