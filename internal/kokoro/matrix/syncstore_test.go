package matrix

import (
	"context"
	"path/filepath"
	"testing"

	"maunium.net/go/mautrix/id"

	"github.com/bdobrica/kokoro/internal/kokoro/store"
)

func newTestSyncStore(t *testing.T) *syncStore {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "kokoro.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return newSyncStore(s.DB())
}

func TestSyncStore_EmptyBeforeFirstSave(t *testing.T) {
	s := newTestSyncStore(t)
	ctx := context.Background()
	userID := id.UserID("@kokoro:example.com")

	batch, err := s.LoadNextBatch(ctx, userID)
	if err != nil {
		t.Fatalf("LoadNextBatch: %v", err)
	}
	if batch != "" {
		t.Errorf("expected empty next_batch before first save, got %q", batch)
	}

	filter, err := s.LoadFilterID(ctx, userID)
	if err != nil {
		t.Fatalf("LoadFilterID: %v", err)
	}
	if filter != "" {
		t.Errorf("expected empty filter id before first save, got %q", filter)
	}
}

func TestSyncStore_RoundTripAndOverwrite(t *testing.T) {
	s := newTestSyncStore(t)
	ctx := context.Background()
	userID := id.UserID("@kokoro:example.com")

	if err := s.SaveNextBatch(ctx, userID, "s111"); err != nil {
		t.Fatalf("SaveNextBatch: %v", err)
	}
	if err := s.SaveNextBatch(ctx, userID, "s222"); err != nil {
		t.Fatalf("SaveNextBatch (overwrite): %v", err)
	}

	batch, err := s.LoadNextBatch(ctx, userID)
	if err != nil {
		t.Fatalf("LoadNextBatch: %v", err)
	}
	if batch != "s222" {
		t.Errorf("expected latest token, got %q", batch)
	}

	// Keys are independent per user.
	other, err := s.LoadNextBatch(ctx, id.UserID("@other:example.com"))
	if err != nil {
		t.Fatalf("LoadNextBatch (other): %v", err)
	}
	if other != "" {
		t.Errorf("expected no token for other user, got %q", other)
	}
}
