package testsupport

import (
	"context"
	"testing"

	"castsync/internal/config"
	"castsync/internal/library"
)

// MustOpenStore opens a library.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewImportedObject creates and persists an object linked to a remote
// episode for tests.
func NewImportedObject(t testing.TB, store *library.Store, title, mediaPackageID string) *library.MultimediaObject {
	t.Helper()

	object := library.NewMultimediaObject()
	object.SetTitle("en", title)
	object.SetProperty(library.PropOpencast, mediaPackageID)
	if err := store.SaveObject(context.Background(), object); err != nil {
		t.Fatalf("store.SaveObject: %v", err)
	}
	return object
}
