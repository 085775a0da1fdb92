package opencast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestCreateSeries(t *testing.T) {
	var metadata []map[string]any
	var acl string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/series", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		json.Unmarshal([]byte(r.PostForm.Get("metadata")), &metadata)
		acl = r.PostForm.Get("acl")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"identifier": "oc-series-7"}`))
	})
	_, client := newPlatform(t, "13.5.0", mux)

	identifier, err := client.CreateSeries(context.Background(), "Linear Algebra", "Spring term")
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	if identifier != "oc-series-7" {
		t.Fatalf("identifier = %q, want oc-series-7", identifier)
	}
	if acl != "[]" {
		t.Fatalf("acl = %q, want []", acl)
	}
	if len(metadata) != 1 || metadata[0]["flavor"] != "dublincore/series" {
		t.Fatalf("metadata = %v", metadata)
	}
}

func TestUpdateSeriesMetadataSendsTypeTwice(t *testing.T) {
	var queryType, formType string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/series/oc-series-7/metadata", func(w http.ResponseWriter, r *http.Request) {
		queryType = r.URL.Query().Get("type")
		r.ParseForm()
		formType = r.PostForm.Get("type")
		w.WriteHeader(http.StatusOK)
	})
	_, client := newPlatform(t, "13.5.0", mux)

	if err := client.UpdateSeriesMetadata(context.Background(), "oc-series-7", "Linear Algebra", ""); err != nil {
		t.Fatalf("UpdateSeriesMetadata: %v", err)
	}
	if queryType != "dublincore/series" || formType != "dublincore/series" {
		t.Fatalf("type query=%q form=%q, want dublincore/series in both", queryType, formType)
	}
}

func TestUpdateSeriesMetadataMissingSeries(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/series/gone/metadata", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	_, client := newPlatform(t, "13.5.0", mux)

	err := client.UpdateSeriesMetadata(context.Background(), "gone", "t", "d")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateSeriesMetadata error = %v, want ErrNotFound", err)
	}
}

func TestUpdateSeriesMetadataEmptyIdentifier(t *testing.T) {
	_, client := newPlatform(t, "13.5.0", nil)

	err := client.UpdateSeriesMetadata(context.Background(), "", "t", "d")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateSeriesMetadata error = %v, want ErrNotFound", err)
	}
}

func TestDeleteSeries(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/series/oc-series-7", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	_, client := newPlatform(t, "13.5.0", mux)

	if err := client.DeleteSeries(context.Background(), "oc-series-7"); err != nil {
		t.Fatalf("DeleteSeries: %v", err)
	}
}

func TestSeriesAbsence(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/series/gone", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	_, client := newPlatform(t, "13.5.0", mux)

	_, found, err := client.Series(context.Background(), "gone")
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if found {
		t.Fatal("Series found = true for 404")
	}
}
