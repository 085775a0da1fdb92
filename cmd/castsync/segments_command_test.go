package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"castsync/internal/library"
)

type segmentsCommandFixture struct {
	configPath string
	dataDir    string
	searches   *atomic.Int64
}

func newSegmentsCommandFixture(t *testing.T) *segmentsCommandFixture {
	t.Helper()

	var searches atomic.Int64
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	mux.HandleFunc("/info/components.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"admin": server.URL,
			"rest":  []any{map[string]any{"version": "13.5.0"}},
		})
	})
	mux.HandleFunc("/search/episode.json", func(w http.ResponseWriter, r *http.Request) {
		searches.Add(1)
		w.Write([]byte(`{"search-results": {"total": 1, "result": {
			"mediapackage": {"id": "mp-1"},
			"segments": {"segment": [
				{"index": 0, "time": 0, "duration": 30000, "text": "intro"},
				{"index": 1, "time": 30000, "duration": 45000, "text": "theorem"}
			]}
		}}}`))
	})

	base := t.TempDir()
	dataDir := filepath.Join(base, "data")
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf("[paths]\ndata_dir = %q\nlog_dir = %q\n\n[opencast]\nhost = %q\n",
		dataDir, filepath.Join(base, "logs"), server.URL)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &segmentsCommandFixture{configPath: configPath, dataDir: dataDir, searches: &searches}
}

func (f *segmentsCommandFixture) seedObject(t *testing.T) *library.MultimediaObject {
	t.Helper()

	if err := os.MkdirAll(f.dataDir, 0o755); err != nil {
		t.Fatalf("mkdir data dir: %v", err)
	}
	store, err := library.OpenPath(filepath.Join(f.dataDir, "library.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer store.Close()

	object := library.NewMultimediaObject()
	object.SetProperty(library.PropOpencast, "mp-1")
	if err := store.SaveObject(context.Background(), object); err != nil {
		t.Fatalf("SaveObject: %v", err)
	}
	return object
}

func (f *segmentsCommandFixture) run(t *testing.T, args ...string) string {
	t.Helper()

	cmd := newImportSegmentsCommand(newCommandContext(&f.configPath))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{}, args...))
	if err := cmd.Execute(); err != nil {
		t.Fatalf("import-segments %v: %v", args, err)
	}
	return out.String()
}

func TestImportSegmentsCommandDryRunByDefault(t *testing.T) {
	f := newSegmentsCommandFixture(t)
	object := f.seedObject(t)

	out := f.run(t)
	if !strings.Contains(out, "Would fetch segments for "+object.ID) {
		t.Fatalf("output = %q, want dry-run report for the object", out)
	}
	if !strings.Contains(out, "Dry run: pass --force to apply") {
		t.Fatalf("output = %q, want dry-run notice", out)
	}
	if f.searches.Load() != 0 {
		t.Fatalf("remote calls = %d without --force, want 0", f.searches.Load())
	}
}

func TestImportSegmentsCommandForceApplies(t *testing.T) {
	f := newSegmentsCommandFixture(t)
	object := f.seedObject(t)

	out := f.run(t, "--force")
	if !strings.Contains(out, "Stored 2 segments for "+object.ID) {
		t.Fatalf("output = %q, want stored segments", out)
	}
	if f.searches.Load() == 0 {
		t.Fatal("no remote calls with --force")
	}

	store, err := library.OpenPath(filepath.Join(f.dataDir, "library.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer store.Close()
	saved, err := store.ObjectByID(context.Background(), object.ID)
	if err != nil {
		t.Fatalf("ObjectByID: %v", err)
	}
	if len(saved.Segments) != 2 || saved.Segments[1].Text != "theorem" {
		t.Fatalf("segments = %+v", saved.Segments)
	}
}
