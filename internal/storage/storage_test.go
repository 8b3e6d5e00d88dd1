package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hyperjump/kiku/internal/models"
)

func backends(t *testing.T) map[string]Storage {
	t.Helper()
	sqlStore, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "kiku.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = sqlStore.Close() })
	return map[string]Storage{
		"memory": NewMemoryStorage(),
		"sqlite": sqlStore,
	}
}

func TestStorage_Assets(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			asset := &models.Asset{ID: "a1", Filename: "fox.txt", Text: "The fox won 3 awards."}
			if err := store.CreateAsset(ctx, asset); err != nil {
				t.Fatal(err)
			}
			if asset.CreatedAt.IsZero() {
				t.Error("CreatedAt should be set")
			}
			got, err := store.GetAsset(ctx, "a1")
			if err != nil {
				t.Fatal(err)
			}
			if got.Text != asset.Text || got.Filename != "fox.txt" {
				t.Errorf("got %+v", got)
			}

			err = store.CreateAsset(ctx, &models.Asset{ID: "a1", Filename: "other.txt", Text: "other"})
			if !errors.Is(err, ErrDuplicate) {
				t.Errorf("duplicate create: got %v, want ErrDuplicate", err)
			}
			got, _ = store.GetAsset(ctx, "a1")
			if got.Text != asset.Text {
				t.Errorf("first write should win, got %q", got.Text)
			}

			if n, err := store.CountAssets(ctx); err != nil || n != 1 {
				t.Errorf("CountAssets: %d, %v", n, err)
			}
			if err := store.DeleteAsset(ctx, "a1"); err != nil {
				t.Fatal(err)
			}
			if _, err := store.GetAsset(ctx, "a1"); !errors.Is(err, ErrNotFound) {
				t.Errorf("after delete: got %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStorage_Sessions(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.GetSession(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("missing session: got %v", err)
			}
			// binding to an asset that was never stored is allowed
			sess := &models.ChatSession{ID: "c1", AssetID: "no-such-asset"}
			if err := store.CreateSession(ctx, sess); err != nil {
				t.Fatal(err)
			}
			got, err := store.GetSession(ctx, "c1")
			if err != nil {
				t.Fatal(err)
			}
			if got.AssetID != "no-such-asset" {
				t.Errorf("asset id: got %q", got.AssetID)
			}
			if err := store.CreateSession(ctx, &models.ChatSession{ID: "c1", AssetID: "x"}); !errors.Is(err, ErrDuplicate) {
				t.Errorf("duplicate session: got %v", err)
			}
			if n, _ := store.CountSessions(ctx); n != 1 {
				t.Errorf("CountSessions = %d", n)
			}
		})
	}
}

func TestStorage_HistoryOrder(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			empty, err := store.GetHistory(ctx, "c1")
			if err != nil {
				t.Fatal(err)
			}
			if len(empty) != 0 {
				t.Errorf("expected empty history, got %d", len(empty))
			}
			for i := 0; i < 5; i++ {
				e := &models.HistoryEntry{ChatID: "c1", User: fmt.Sprintf("q%d", i), Bot: fmt.Sprintf("a%d", i)}
				if err := store.AppendHistory(ctx, e); err != nil {
					t.Fatal(err)
				}
			}
			_ = store.AppendHistory(ctx, &models.HistoryEntry{ChatID: "c2", User: "other", Bot: "chat"})

			got, err := store.GetHistory(ctx, "c1")
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 5 {
				t.Fatalf("expected 5 entries, got %d", len(got))
			}
			for i, e := range got {
				if e.User != fmt.Sprintf("q%d", i) || e.Bot != fmt.Sprintf("a%d", i) {
					t.Errorf("entry %d: got %+v", i, e)
				}
			}
			if n, _ := store.CountHistory(ctx); n != 6 {
				t.Errorf("CountHistory = %d, want 6", n)
			}
		})
	}
}

func TestStorage_HistoryConcurrentAppend(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const workers, perWorker = 8, 25
			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWorker; i++ {
						e := &models.HistoryEntry{ChatID: "shared", User: fmt.Sprintf("w%d-%d", w, i), Bot: "ok"}
						if err := store.AppendHistory(ctx, e); err != nil {
							t.Error(err)
							return
						}
					}
				}(w)
			}
			wg.Wait()
			got, err := store.GetHistory(ctx, "shared")
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != workers*perWorker {
				t.Errorf("lost updates: got %d entries, want %d", len(got), workers*perWorker)
			}
		})
	}
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	_ = store.CreateAsset(ctx, &models.Asset{ID: "a", Text: "original"})
	got, _ := store.GetAsset(ctx, "a")
	got.Text = "mutated"
	again, _ := store.GetAsset(ctx, "a")
	if again.Text != "original" {
		t.Errorf("stored asset was mutated through returned pointer")
	}

	_ = store.AppendHistory(ctx, &models.HistoryEntry{ChatID: "c", User: "u", Bot: "b"})
	h, _ := store.GetHistory(ctx, "c")
	h[0].Bot = "changed"
	h2, _ := store.GetHistory(ctx, "c")
	if h2[0].Bot != "b" {
		t.Errorf("history entry was mutated through returned pointer")
	}
}

func TestSQLiteStorage_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = store.CreateAsset(ctx, &models.Asset{ID: "a", Filename: "a.txt", Text: "kept"})
	_ = store.AppendHistory(ctx, &models.HistoryEntry{ChatID: "c", User: "u", Bot: "b"})
	if store.SizeBytes() == 0 {
		t.Error("expected non-zero database size")
	}
	_ = store.Close()

	store, err = NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if a, err := store.GetAsset(ctx, "a"); err != nil || a.Text != "kept" {
		t.Errorf("after reopen: %+v, %v", a, err)
	}
	_ = store.AppendHistory(ctx, &models.HistoryEntry{ChatID: "c", User: "u2", Bot: "b2"})
	h, _ := store.GetHistory(ctx, "c")
	if len(h) != 2 || h[1].User != "u2" {
		t.Errorf("history after reopen: %+v", h)
	}
}

func TestSQLiteStorage_Memory(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()
	if err := store.CreateAsset(ctx, &models.Asset{ID: "m", Filename: "m.txt", Text: "t"}); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.CountAssets(ctx); n != 1 {
		t.Errorf("CountAssets = %d", n)
	}
	if store.SizeBytes() != 0 {
		t.Error("in-memory database should report zero size")
	}
}
