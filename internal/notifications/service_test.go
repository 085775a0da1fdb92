package notifications

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"castsync/internal/config"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T) (*httptest.Server, *captured) {
	t.Helper()

	got := &captured{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.title = r.Header.Get("Title")
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		got.body = string(body)
	}))
	t.Cleanup(server.Close)
	return server, got
}

func newNtfyService(topic string) Service {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	return NewService(&cfg)
}

func TestNewServiceWithoutTopicIsNoop(t *testing.T) {
	cfg := config.Default()
	service := NewService(&cfg)

	if _, ok := service.(noopService); !ok {
		t.Fatalf("service = %T, want noop without a topic", service)
	}
	if err := service.TestNotification(context.Background()); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
}

func TestNotifyImportCompleted(t *testing.T) {
	server, got := newNtfyServer(t)
	service := newNtfyService(server.URL)

	if err := service.NotifyImportCompleted(context.Background(), "Algebra lecture", "mp-1"); err != nil {
		t.Fatalf("NotifyImportCompleted: %v", err)
	}
	if !strings.Contains(got.body, "Algebra lecture") || !strings.Contains(got.body, "mp-1") {
		t.Errorf("body = %q", got.body)
	}
	if !strings.Contains(got.tags, "import") {
		t.Errorf("tags = %q", got.tags)
	}
}

func TestNotifyImportCompletedFallsBackToID(t *testing.T) {
	server, got := newNtfyServer(t)
	service := newNtfyService(server.URL)

	if err := service.NotifyImportCompleted(context.Background(), "  ", "mp-1"); err != nil {
		t.Fatalf("NotifyImportCompleted: %v", err)
	}
	if !strings.Contains(got.body, "mp-1 (mp-1)") {
		t.Errorf("body = %q", got.body)
	}
}

func TestNotifyImportErrorIsHighPriority(t *testing.T) {
	server, got := newNtfyServer(t)
	service := newNtfyService(server.URL)

	err := service.NotifyImportError(context.Background(), errors.New("episode not published"), "mp-1")
	if err != nil {
		t.Fatalf("NotifyImportError: %v", err)
	}
	if got.priority != "high" {
		t.Errorf("priority = %q", got.priority)
	}
	if !strings.Contains(got.body, "mp-1") || !strings.Contains(got.body, "episode not published") {
		t.Errorf("body = %q", got.body)
	}
}

func TestNotifyBatchCompletedMentionsFailures(t *testing.T) {
	server, got := newNtfyServer(t)
	service := newNtfyService(server.URL)

	if err := service.NotifyBatchCompleted(context.Background(), 8, 2, 90*time.Second); err != nil {
		t.Fatalf("NotifyBatchCompleted: %v", err)
	}
	if !strings.Contains(got.body, "8 imported") || !strings.Contains(got.body, "2 failed") {
		t.Errorf("body = %q", got.body)
	}
	if !strings.Contains(got.title, "with errors") {
		t.Errorf("title = %q", got.title)
	}
}

func TestSendReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)
	service := newNtfyService(server.URL)

	err := service.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("err = %v, want ntfy status error", err)
	}
}
