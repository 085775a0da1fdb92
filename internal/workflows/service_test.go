package workflows

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"castsync/internal/library"
	"castsync/internal/logging"
	"castsync/internal/opencast"
	"castsync/internal/testsupport"
)

func newWorkflowFixture(t *testing.T, version string, deleteArchive bool, mux *http.ServeMux) (*Service, *library.Store) {
	t.Helper()

	if mux == nil {
		mux = http.NewServeMux()
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	mux.HandleFunc("/info/components.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"admin": server.URL,
			"rest":  []any{map[string]any{"version": version}},
		})
	})

	cfgOpts := []testsupport.ConfigOption{testsupport.WithHost(server.URL)}
	if deleteArchive {
		cfgOpts = append(cfgOpts, testsupport.WithArchiveDeletion("retract"))
	}
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t, cfgOpts...))

	client := opencast.New(server.URL,
		opencast.WithLogger(logging.NewNop()),
		opencast.WithDeletionPolicy("retract", deleteArchive))
	return New(client, store, deleteArchive, "retract", logging.NewNop()), store
}

func TestStopSucceededWorkflowsDisabled(t *testing.T) {
	service, _ := newWorkflowFixture(t, "13.5.0", false, nil)

	clean, err := service.StopSucceededWorkflows(context.Background(), "")
	if err != nil {
		t.Fatalf("StopSucceededWorkflows: %v", err)
	}
	if !clean {
		t.Fatal("clean = false for deployment without archive management")
	}
}

func TestStopSucceededWorkflowsScoped(t *testing.T) {
	var stopped atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/workflow/statistics.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"statistics": {"total": "5"}}`))
	})
	mux.HandleFunc("/workflow/instances.json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("workflowdefinition") == "retract" {
			w.Write([]byte(`{"workflows": {"workflow": {"id": "wf-1", "state": "SUCCEEDED", "mediapackage": {"id": "mp-1"}}}}`))
			return
		}
		w.Write([]byte(`{"workflows": {"workflow": [
			{"id": "wf-1", "state": "SUCCEEDED", "mediapackage": {"id": "mp-1"}},
			{"id": "wf-2", "state": "RUNNING", "mediapackage": {"id": "mp-1"}}
		]}}`))
	})
	mux.HandleFunc("/workflow/stop", func(w http.ResponseWriter, r *http.Request) {
		stopped.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	service, _ := newWorkflowFixture(t, "13.5.0", true, mux)

	clean, err := service.StopSucceededWorkflows(context.Background(), "mp-1")
	if err != nil {
		t.Fatalf("StopSucceededWorkflows: %v", err)
	}
	if !clean {
		t.Fatal("clean = false")
	}
	// wf-1 appears in both the deletion-scoped and the unscoped listing;
	// wf-2 is still running and must not be stopped.
	if got := stopped.Load(); got != 2 {
		t.Fatalf("stop calls = %d, want 2", got)
	}
}

func TestHandleObjectDeletedStillReferenced(t *testing.T) {
	var retractions atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/events/", func(w http.ResponseWriter, r *http.Request) {
		retractions.Add(1)
		w.WriteHeader(http.StatusAccepted)
	})
	service, store := newWorkflowFixture(t, "13.5.0", true, mux)
	ctx := context.Background()

	testsupport.NewImportedObject(t, store, "Algebra lecture", "mp-1")

	service.HandleObjectDeleted(ctx, "mp-1")
	if retractions.Load() != 0 {
		t.Fatal("episode retracted while still referenced locally")
	}
}

func TestHandleObjectDeletedRemovesEvent(t *testing.T) {
	var method, path string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/events/mp-1", func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusAccepted)
	})
	service, _ := newWorkflowFixture(t, "13.5.0", true, mux)

	service.HandleObjectDeleted(context.Background(), "mp-1")
	if method != http.MethodDelete || path != "/api/events/mp-1" {
		t.Fatalf("request = %s %s, want DELETE /api/events/mp-1", method, path)
	}
}

func TestHandleObjectDeletedLegacyRunsDeletionWorkflow(t *testing.T) {
	var hit atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/admin-ng/tasks/new", func(w http.ResponseWriter, r *http.Request) {
		hit.Add(1)
		w.WriteHeader(http.StatusCreated)
	})
	service, _ := newWorkflowFixture(t, "8.0.0", true, mux)

	service.HandleObjectDeleted(context.Background(), "mp-1")
	if hit.Load() != 1 {
		t.Fatalf("deletion workflow runs = %d, want 1", hit.Load())
	}
}
