package library

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := OpenPath(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestObjectRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	object := NewMultimediaObject()
	object.SetTitle("en", "Algebra lecture")
	object.SetTitle("es", "Clase de álgebra")
	object.Status = StatusPublished
	object.Owner = "jdoe"
	object.SetProperty(PropOpencast, "mp-1")
	object.SetProperty(PropPaellaLayout, "slide_professor")
	object.RecordDate = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	object.AddTrack(Track{URL: "http://cdn/a.mp4", Tags: []string{"opencast", "presenter/delivery"}, DurationMS: 600000})
	object.AddPic(Pic{URL: "http://cdn/preview.png", Tags: []string{"presenter/search+preview"}})
	object.Segments = []Segment{{Index: 0, TimeMS: 0, DurationMS: 30000, Text: "intro"}}

	if err := store.SaveObject(ctx, object); err != nil {
		t.Fatalf("SaveObject: %v", err)
	}
	if object.NumericalID == 0 {
		t.Fatal("NumericalID not assigned on first save")
	}

	loaded, err := store.ObjectByID(ctx, object.ID)
	if err != nil {
		t.Fatalf("ObjectByID: %v", err)
	}
	if loaded == nil {
		t.Fatal("ObjectByID returned nil")
	}
	if loaded.TitleIn("es") != "Clase de álgebra" {
		t.Errorf("title[es] = %q", loaded.TitleIn("es"))
	}
	if loaded.Status != StatusPublished || loaded.Owner != "jdoe" {
		t.Errorf("status/owner = %v/%v", loaded.Status, loaded.Owner)
	}
	if value, _ := loaded.Property(PropOpencast); value != "mp-1" {
		t.Errorf("opencast property = %q", value)
	}
	if len(loaded.Tracks) != 1 || loaded.Tracks[0].DurationMS != 600000 {
		t.Errorf("tracks = %+v", loaded.Tracks)
	}
	if len(loaded.Pics) != 1 || len(loaded.Segments) != 1 {
		t.Errorf("pics = %d, segments = %d", len(loaded.Pics), len(loaded.Segments))
	}
	if !loaded.RecordDate.Equal(object.RecordDate) {
		t.Errorf("record date = %v, want %v", loaded.RecordDate, object.RecordDate)
	}
}

func TestFindObjectByProperty(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := NewMultimediaObject()
	first.SetProperty(PropOpencast, "mp-1")
	second := NewMultimediaObject()
	second.SetProperty(PropOpencast, "mp-2")
	for _, object := range []*MultimediaObject{first, second} {
		if err := store.SaveObject(ctx, object); err != nil {
			t.Fatalf("SaveObject: %v", err)
		}
	}

	found, err := store.FindObjectByProperty(ctx, PropOpencast, "mp-2")
	if err != nil {
		t.Fatalf("FindObjectByProperty: %v", err)
	}
	if found == nil || found.ID != second.ID {
		t.Fatalf("found = %v, want %s", found, second.ID)
	}

	missing, err := store.FindObjectByProperty(ctx, PropOpencast, "mp-9")
	if err != nil {
		t.Fatalf("FindObjectByProperty: %v", err)
	}
	if missing != nil {
		t.Fatal("found object for unknown property value")
	}

	count, err := store.CountObjectsByProperty(ctx, PropOpencast, "mp-1")
	if err != nil {
		t.Fatalf("CountObjectsByProperty: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestObjectListings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	series := NewSeries()
	if err := store.SaveSeries(ctx, series); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}

	inSeries := NewMultimediaObject()
	inSeries.SeriesID = series.ID
	inSeries.SetProperty(PropOpencast, "mp-1")
	duplicate := NewMultimediaObject()
	duplicate.SetProperty(PropOpencast, "mp-1")
	other := NewMultimediaObject()
	for _, object := range []*MultimediaObject{inSeries, duplicate, other} {
		if err := store.SaveObject(ctx, object); err != nil {
			t.Fatalf("SaveObject: %v", err)
		}
	}

	byProperty, err := store.ObjectsByProperty(ctx, PropOpencast, "mp-1")
	if err != nil {
		t.Fatalf("ObjectsByProperty: %v", err)
	}
	if len(byProperty) != 2 {
		t.Fatalf("objects by property = %d, want 2", len(byProperty))
	}

	bySeries, err := store.ObjectsBySeries(ctx, series.ID)
	if err != nil {
		t.Fatalf("ObjectsBySeries: %v", err)
	}
	if len(bySeries) != 1 || bySeries[0].ID != inSeries.ID {
		t.Fatalf("objects by series = %+v", bySeries)
	}

	withProperty, err := store.ObjectsWithProperty(ctx, PropOpencast)
	if err != nil {
		t.Fatalf("ObjectsWithProperty: %v", err)
	}
	if len(withProperty) != 2 {
		t.Fatalf("objects with property = %d, want 2", len(withProperty))
	}
}

func TestNumericalIDIncrements(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := NewMultimediaObject()
	second := NewMultimediaObject()
	if err := store.SaveObject(ctx, first); err != nil {
		t.Fatalf("SaveObject: %v", err)
	}
	if err := store.SaveObject(ctx, second); err != nil {
		t.Fatalf("SaveObject: %v", err)
	}
	if second.NumericalID != first.NumericalID+1 {
		t.Fatalf("numerical ids = %d, %d, want consecutive", first.NumericalID, second.NumericalID)
	}

	// Re-saving keeps the assigned id stable.
	assigned := first.NumericalID
	if err := store.SaveObject(ctx, first); err != nil {
		t.Fatalf("SaveObject: %v", err)
	}
	if first.NumericalID != assigned {
		t.Fatalf("numerical id changed on update: %d -> %d", assigned, first.NumericalID)
	}
}

func TestPrototypeBySeries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	series := NewSeries()
	if err := store.SaveSeries(ctx, series); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}

	prototype := NewMultimediaObject()
	prototype.SeriesID = series.ID
	prototype.Status = StatusPrototype
	prototype.Owner = "prof"
	regular := NewMultimediaObject()
	regular.SeriesID = series.ID
	for _, object := range []*MultimediaObject{prototype, regular} {
		if err := store.SaveObject(ctx, object); err != nil {
			t.Fatalf("SaveObject: %v", err)
		}
	}

	found, err := store.PrototypeBySeries(ctx, series.ID)
	if err != nil {
		t.Fatalf("PrototypeBySeries: %v", err)
	}
	if found == nil || found.ID != prototype.ID || found.Owner != "prof" {
		t.Fatalf("prototype = %v", found)
	}
}

func TestDeleteObject(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	object := NewMultimediaObject()
	if err := store.SaveObject(ctx, object); err != nil {
		t.Fatalf("SaveObject: %v", err)
	}

	deleted, err := store.DeleteObject(ctx, object.ID)
	if err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if !deleted {
		t.Fatal("DeleteObject deleted = false")
	}

	again, err := store.DeleteObject(ctx, object.ID)
	if err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if again {
		t.Fatal("DeleteObject deleted = true for missing row")
	}
}

func TestSeriesRoundTripAndPropertyLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	series := NewSeries()
	series.Title["en"] = "Linear Algebra"
	series.Description["en"] = "Spring term"
	series.SetProperty(PropOpencast, "oc-series-7")
	if err := store.SaveSeries(ctx, series); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}

	found, err := store.FindSeriesByProperty(ctx, PropOpencast, "oc-series-7")
	if err != nil {
		t.Fatalf("FindSeriesByProperty: %v", err)
	}
	if found == nil || found.ID != series.ID {
		t.Fatalf("found = %v", found)
	}
	if found.TitleIn("en") != "Linear Algebra" || found.DescriptionIn("en") != "Spring term" {
		t.Fatalf("series = %+v", found)
	}

	deleted, err := store.DeleteSeries(ctx, series.ID)
	if err != nil {
		t.Fatalf("DeleteSeries: %v", err)
	}
	if !deleted {
		t.Fatal("DeleteSeries deleted = false")
	}
	if missing, err := store.SeriesByID(ctx, series.ID); err != nil || missing != nil {
		t.Fatalf("series still present after delete: %v %v", missing, err)
	}
}

func TestTags(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.EnsureTag(ctx, "IMPORTED", "Imported recordings"); err != nil {
		t.Fatalf("EnsureTag: %v", err)
	}
	if err := store.EnsureTag(ctx, "IMPORTED", "Imported recordings"); err != nil {
		t.Fatalf("EnsureTag (repeat): %v", err)
	}

	exists, err := store.TagExists(ctx, "IMPORTED")
	if err != nil {
		t.Fatalf("TagExists: %v", err)
	}
	if !exists {
		t.Fatal("TagExists = false after EnsureTag")
	}
	exists, err = store.TagExists(ctx, "MISSING")
	if err != nil {
		t.Fatalf("TagExists: %v", err)
	}
	if exists {
		t.Fatal("TagExists = true for unknown code")
	}
}
