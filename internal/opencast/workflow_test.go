package opencast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"
)

func TestApplyWorkflowLegacyEndpoint(t *testing.T) {
	var form url.Values
	mux := http.NewServeMux()
	mux.HandleFunc("/episode/apply/retract", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		form = r.PostForm
		w.WriteHeader(http.StatusNoContent)
	})
	_, client := newPlatform(t, "1.6.0", mux)

	if err := client.ApplyWorkflow(context.Background(), []string{"mp-1", "mp-2"}, "retract"); err != nil {
		t.Fatalf("ApplyWorkflow: %v", err)
	}
	if got := form.Get("mediaPackageIds"); got != "mp-1,+mp-2" {
		t.Fatalf("mediaPackageIds = %q, want mp-1,+mp-2", got)
	}
	if got := form.Get("engage"); got != "Matterhorn+Engage+Player" {
		t.Fatalf("engage = %q", got)
	}
}

func TestApplyWorkflowTasksWithEventIDs(t *testing.T) {
	var metadata map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/admin-ng/tasks/new", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		json.Unmarshal([]byte(r.PostForm.Get("metadata")), &metadata)
		w.WriteHeader(http.StatusCreated)
	})
	_, client := newPlatform(t, "5.0.0", mux)

	if err := client.ApplyWorkflow(context.Background(), []string{"mp-1"}, "retract"); err != nil {
		t.Fatalf("ApplyWorkflow: %v", err)
	}
	if metadata["workflow"] != "retract" {
		t.Fatalf("workflow = %v", metadata["workflow"])
	}
	ids, ok := metadata["eventIds"].([]any)
	if !ok || len(ids) != 1 || ids[0] != "mp-1" {
		t.Fatalf("eventIds = %v, want [mp-1]", metadata["eventIds"])
	}
	configuration, ok := metadata["configuration"].(map[string]any)
	if !ok || configuration["retractFromEngage"] != "true" {
		t.Fatalf("configuration = %v, want shared retract parameters", metadata["configuration"])
	}
}

func TestApplyWorkflowTasksPerEvent(t *testing.T) {
	var metadata map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/admin-ng/tasks/new", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		json.Unmarshal([]byte(r.PostForm.Get("metadata")), &metadata)
		w.WriteHeader(http.StatusCreated)
	})
	_, client := newPlatform(t, "13.5.0", mux)

	if err := client.ApplyWorkflow(context.Background(), []string{"mp-1", "mp-2"}, "retract"); err != nil {
		t.Fatalf("ApplyWorkflow: %v", err)
	}
	if _, ok := metadata["eventIds"]; ok {
		t.Fatal("eventIds present, want per-event configuration shape")
	}
	configuration, ok := metadata["configuration"].(map[string]any)
	if !ok || len(configuration) != 2 {
		t.Fatalf("configuration = %v, want one entry per media package", metadata["configuration"])
	}
	entry, ok := configuration["mp-2"].(map[string]any)
	if !ok || entry["retractPreview"] != "true" {
		t.Fatalf("configuration[mp-2] = %v", configuration["mp-2"])
	}
}

func TestApplyWorkflowDeletionRequiresFlag(t *testing.T) {
	_, client := newPlatform(t, "13.5.0", nil)

	err := client.ApplyWorkflow(context.Background(), []string{"mp-1"}, "")
	if !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("ApplyWorkflow error = %v, want ErrNotAllowed", err)
	}
}

func TestApplyWorkflowRequiresMediaPackages(t *testing.T) {
	_, client := newPlatform(t, "13.5.0", nil)

	err := client.ApplyWorkflow(context.Background(), nil, "retract")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ApplyWorkflow error = %v, want ErrValidation", err)
	}
}

func TestStopWorkflowDisabled(t *testing.T) {
	_, client := newPlatform(t, "13.5.0", nil)

	stopped, err := client.StopWorkflow(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("StopWorkflow: %v", err)
	}
	if stopped {
		t.Fatal("StopWorkflow stopped = true with deletion disabled")
	}
}

func TestStopWorkflowEnabled(t *testing.T) {
	var form url.Values
	mux := http.NewServeMux()
	mux.HandleFunc("/workflow/stop", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		form = r.PostForm
		w.WriteHeader(http.StatusOK)
	})
	server := newServerWith(t, "13.5.0", mux)
	client := New(server.URL, WithDeletionPolicy("retract", true))

	stopped, err := client.StopWorkflow(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("StopWorkflow: %v", err)
	}
	if !stopped {
		t.Fatal("StopWorkflow stopped = false")
	}
	if form.Get("id") != "wf-1" {
		t.Fatalf("id = %q, want wf-1", form.Get("id"))
	}
}

func TestRemoveEventLegacyEndpoint(t *testing.T) {
	var path string
	mux := http.NewServeMux()
	mux.HandleFunc("/admin-ng/event/mp-1", func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})
	_, client := newPlatform(t, "8.9.9", mux)

	if err := client.RemoveEvent(context.Background(), "mp-1"); err != nil {
		t.Fatalf("RemoveEvent: %v", err)
	}
	if path != "/admin-ng/event/mp-1" {
		t.Fatalf("path = %q", path)
	}
}

func TestRemoveEventExternalAPI(t *testing.T) {
	var method, path string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/events/mp-1", func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusAccepted)
	})
	_, client := newPlatform(t, "9.0.0", mux)

	if err := client.RemoveEvent(context.Background(), "mp-1"); err != nil {
		t.Fatalf("RemoveEvent: %v", err)
	}
	if method != http.MethodDelete || path != "/api/events/mp-1" {
		t.Fatalf("request = %s %s", method, path)
	}
}

func TestRemoveEventExternalAPIRejectsOtherStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/events/mp-1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	_, client := newPlatform(t, "9.0.0", mux)

	if err := client.RemoveEvent(context.Background(), "mp-1"); err == nil {
		t.Fatal("RemoveEvent accepted status 200, want error")
	}
}
