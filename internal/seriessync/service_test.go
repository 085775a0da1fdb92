package seriessync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"castsync/internal/library"
	"castsync/internal/logging"
	"castsync/internal/mediapkg"
	"castsync/internal/opencast"
)

type fixture struct {
	store   *library.Store
	service *Service
}

func newFixture(t *testing.T, mux *http.ServeMux) *fixture {
	t.Helper()

	if mux == nil {
		mux = http.NewServeMux()
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	mux.HandleFunc("/info/components.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"admin": server.URL,
			"rest":  []any{map[string]any{"version": "13.5.0"}},
		})
	})

	store, err := library.OpenPath(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	client := opencast.New(server.URL, opencast.WithLogger(logging.NewNop()))
	return &fixture{
		store:   store,
		service: New(store, client, "en", []string{"es"}, logging.NewNop()),
	}
}

func TestCreateSeriesSkipsUnlinkedSentinel(t *testing.T) {
	var calls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/series", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"identifier": "should-not-happen"}`))
	})
	f := newFixture(t, mux)

	series := library.NewSeries()
	series.SetProperty(library.PropOpencast, UnlinkedSentinel)
	if err := f.service.CreateSeries(context.Background(), series); err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("remote create called for sentinel series")
	}
	if value, _ := series.Property(library.PropOpencast); value != UnlinkedSentinel {
		t.Fatalf("sentinel overwritten: %q", value)
	}
}

func TestCreateSeriesStoresIdentifier(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/series", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"identifier": "oc-series-7"}`))
	})
	f := newFixture(t, mux)
	ctx := context.Background()

	series := library.NewSeries()
	series.Title["en"] = "Linear Algebra"
	if err := f.store.SaveSeries(ctx, series); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}

	if err := f.service.CreateSeries(ctx, series); err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	if value, _ := series.Property(library.PropOpencast); value != "oc-series-7" {
		t.Fatalf("remote id = %q, want oc-series-7", value)
	}

	persisted, err := f.store.SeriesByID(ctx, series.ID)
	if err != nil {
		t.Fatalf("SeriesByID: %v", err)
	}
	if value, _ := persisted.Property(library.PropOpencast); value != "oc-series-7" {
		t.Fatalf("persisted remote id = %q", value)
	}
}

func TestUpdateSeriesRecreatesMissingRemote(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/series/gone/metadata", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/api/series", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"identifier": "oc-series-8"}`))
	})
	f := newFixture(t, mux)
	ctx := context.Background()

	series := library.NewSeries()
	series.SetProperty(library.PropOpencast, "gone")
	if err := f.store.SaveSeries(ctx, series); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}

	if err := f.service.UpdateSeries(ctx, series); err != nil {
		t.Fatalf("UpdateSeries: %v", err)
	}
	if value, _ := series.Property(library.PropOpencast); value != "oc-series-8" {
		t.Fatalf("remote id = %q, want re-created oc-series-8", value)
	}
}

func TestDeleteSeriesBestEffort(t *testing.T) {
	var calls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/series/oc-series-7", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	f := newFixture(t, mux)
	ctx := context.Background()

	sentinel := library.NewSeries()
	sentinel.SetProperty(library.PropOpencast, UnlinkedSentinel)
	f.service.DeleteSeries(ctx, sentinel)
	if calls.Load() != 0 {
		t.Fatal("remote delete called for sentinel series")
	}

	// Remote failure is logged, never propagated.
	linked := library.NewSeries()
	linked.SetProperty(library.PropOpencast, "oc-series-7")
	f.service.DeleteSeries(ctx, linked)
	if calls.Load() != 1 {
		t.Fatalf("remote delete calls = %d, want 1", calls.Load())
	}
}

func TestResolveSeriesCreatesLocalCounterpart(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	mp := mediapkg.MediaPackage{
		"id":          "mp-1",
		"series":      "oc-series-7",
		"seriestitle": "Linear Algebra",
	}

	series, err := f.service.ResolveSeries(ctx, mp)
	if err != nil {
		t.Fatalf("ResolveSeries: %v", err)
	}
	if series.TitleIn("en") != "Linear Algebra" || series.TitleIn("es") != "Linear Algebra" {
		t.Fatalf("series titles = %v", series.Title)
	}
	if value, _ := series.Property(library.PropOpencast); value != "oc-series-7" {
		t.Fatalf("remote id = %q", value)
	}

	again, err := f.service.ResolveSeries(ctx, mp)
	if err != nil {
		t.Fatalf("ResolveSeries (second): %v", err)
	}
	if again.ID != series.ID {
		t.Fatalf("second resolve created a new series: %s vs %s", again.ID, series.ID)
	}
}

func TestResolveSeriesWithoutSeriesUsesUnlinked(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	mp := mediapkg.MediaPackage{"id": "mp-1"}

	first, err := f.service.ResolveSeries(ctx, mp)
	if err != nil {
		t.Fatalf("ResolveSeries: %v", err)
	}
	if value, _ := first.Property(library.PropOpencast); value != UnlinkedSentinel {
		t.Fatalf("unlinked property = %q, want sentinel", value)
	}

	second, err := f.service.ResolveSeries(ctx, mediapkg.MediaPackage{"id": "mp-2"})
	if err != nil {
		t.Fatalf("ResolveSeries: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("unlinked series not shared between episodes")
	}
}
