package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/store"
)

type backendCase struct {
	name string
	open func(t *testing.T) store.Repository
}

func backends() []backendCase {
	return []backendCase{
		{name: "memory", open: func(t *testing.T) store.Repository {
			t.Helper()

			return openRepo(t, store.Options{Backend: store.BackendMemory})
		}},
		{name: "file", open: func(t *testing.T) store.Repository {
			t.Helper()

			return openRepo(t, store.Options{Backend: store.BackendFile, Path: t.TempDir()})
		}},
		{name: "sqlite", open: func(t *testing.T) store.Repository {
			t.Helper()

			return openRepo(t, store.Options{Backend: store.BackendSQLite, Path: filepath.Join(t.TempDir(), "pm.sqlite")})
		}},
	}
}

func openRepo(t *testing.T, opts store.Options) store.Repository {
	t.Helper()

	repo, err := store.Open(t.Context(), opts)
	if err != nil {
		t.Fatalf("open %s: %v", opts.Backend, err)
	}

	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func mustSave(t *testing.T, repo store.Repository, item store.Item) store.Item {
	t.Helper()

	saved, err := repo.Save(t.Context(), item)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	return saved
}

func ids(items []store.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}

	return out
}

// Contract: every backend assigns UUIDv7 ids, filters by parent and kind, and lists oldest first.
func Test_Repository_Saves_And_Lists_Items_When_Backend_Open(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			t.Parallel()

			repo := bc.open(t)

			late := mustSave(t, repo, store.Item{ParentID: "t1", Kind: store.Subtask, CreatedAt: base.Add(time.Hour),
				Fields: map[string]string{"title": "later"}})
			early := mustSave(t, repo, store.Item{ParentID: "t1", Kind: store.Attachment, CreatedAt: base,
				Fields: map[string]string{"name": "spec.pdf"}})
			other := mustSave(t, repo, store.Item{ParentID: "r9", Kind: "Allocation", CreatedAt: base})

			if !store.ValidID(late.ID) || !store.ValidID(early.ID) {
				t.Fatalf("ids not uuidv7: %q %q", late.ID, early.ID)
			}

			if other.Kind != store.Allocation {
				t.Fatalf("kind = %q, want allocation", other.Kind)
			}

			all, err := repo.List(t.Context(), store.Filter{ParentID: "t1"})
			if err != nil {
				t.Fatalf("list: %v", err)
			}

			if diff := cmp.Diff([]string{early.ID, late.ID}, ids(all)); diff != "" {
				t.Fatalf("list mismatch (-want +got):\n%s", diff)
			}

			subtasks, err := repo.List(t.Context(), store.Filter{ParentID: "t1", Kind: store.Subtask})
			if err != nil {
				t.Fatalf("list subtasks: %v", err)
			}

			if diff := cmp.Diff([]store.Item{late}, subtasks); diff != "" {
				t.Fatalf("subtasks mismatch (-want +got):\n%s", diff)
			}

			got, err := repo.Get(t.Context(), early.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}

			if diff := cmp.Diff(early, got); diff != "" {
				t.Fatalf("get mismatch (-want +got):\n%s", diff)
			}

			everything, err := repo.List(t.Context(), store.Filter{})
			if err != nil || len(everything) != 3 {
				t.Fatalf("list all = %d items, %v", len(everything), err)
			}
		})
	}
}

func Test_Repository_Updates_And_Deletes_When_Id_Known(t *testing.T) {
	t.Parallel()

	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			t.Parallel()

			repo := bc.open(t)

			it := mustSave(t, repo, store.Item{ParentID: "p", Kind: store.Subtask, Fields: map[string]string{"title": "a"}})
			it.Fields["title"] = "b"
			mustSave(t, repo, it)

			got, err := repo.Get(t.Context(), it.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}

			if got.Fields["title"] != "b" {
				t.Fatalf("title = %q, want b", got.Fields["title"])
			}

			if err := repo.Delete(t.Context(), it.ID); err != nil {
				t.Fatalf("delete: %v", err)
			}

			if _, err := repo.Get(t.Context(), it.ID); !errors.Is(err, store.ErrNotFound) {
				t.Fatalf("get after delete err = %v, want ErrNotFound", err)
			}

			if err := repo.Delete(t.Context(), it.ID); !errors.Is(err, store.ErrNotFound) {
				t.Fatalf("second delete err = %v, want ErrNotFound", err)
			}
		})
	}
}

// Contract: re-saving an existing id without a creation time keeps the
// stored one, so updates do not move the item in the list.
func Test_Repository_Keeps_CreatedAt_When_Updating_Without_One(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			t.Parallel()

			repo := bc.open(t)

			first := mustSave(t, repo, store.Item{ParentID: "p", Kind: store.Subtask, CreatedAt: base,
				Fields: map[string]string{"title": "first"}})
			second := mustSave(t, repo, store.Item{ParentID: "p", Kind: store.Subtask, CreatedAt: base.Add(time.Hour),
				Fields: map[string]string{"title": "second"}})

			updated := mustSave(t, repo, store.Item{ID: first.ID, ParentID: "p", Kind: store.Subtask,
				Fields: map[string]string{"title": "first, edited"}})

			if !updated.CreatedAt.Equal(base) {
				t.Fatalf("created_at = %s, want %s", updated.CreatedAt, base)
			}

			got, err := repo.Get(t.Context(), first.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}

			if !got.CreatedAt.Equal(base) || got.Fields["title"] != "first, edited" {
				t.Fatalf("stored = %s %q, want %s %q", got.CreatedAt, got.Fields["title"], base, "first, edited")
			}

			all, err := repo.List(t.Context(), store.Filter{ParentID: "p"})
			if err != nil {
				t.Fatalf("list: %v", err)
			}

			if diff := cmp.Diff([]string{first.ID, second.ID}, ids(all)); diff != "" {
				t.Fatalf("list mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func Test_Repository_Rejects_Invalid_Items_When_Saving(t *testing.T) {
	t.Parallel()

	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			t.Parallel()

			repo := bc.open(t)

			if _, err := repo.Save(t.Context(), store.Item{Kind: store.Subtask}); !errors.Is(err, store.ErrParentRequired) {
				t.Fatalf("missing parent err = %v", err)
			}

			if _, err := repo.Save(t.Context(), store.Item{ParentID: "p", Kind: "comment"}); !errors.Is(err, store.ErrInvalidKind) {
				t.Fatalf("bad kind err = %v", err)
			}
		})
	}
}

// Contract: concurrent writers on the file backend never lose items.
func Test_File_Serializes_Writers_When_Saving_Concurrently(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	const writers = 10

	var wg sync.WaitGroup

	errs := make(chan error, writers)

	for i := range writers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			repo, err := store.OpenFile(dir)
			if err != nil {
				errs <- err

				return
			}

			_, err = repo.Save(context.Background(), store.Item{ParentID: "p", Kind: store.Subtask,
				Fields: map[string]string{"n": string(rune('a' + i))}})
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent save: %v", err)
		}
	}

	repo, err := store.OpenFile(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	items, err := repo.List(t.Context(), store.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(items) != writers {
		t.Fatalf("items = %d, want %d", len(items), writers)
	}

	if _, err := os.Stat(repo.Path()); err != nil {
		t.Fatalf("stat items file: %v", err)
	}
}

func Test_SQLite_Persists_Items_When_Reopened(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "pm.sqlite")

	first, err := store.OpenSQLite(t.Context(), path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	saved, err := first.Save(t.Context(), store.Item{ParentID: "p", Kind: store.Attachment})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := store.OpenSQLite(t.Context(), path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	defer func() { _ = second.Close() }()

	got, err := second.Get(t.Context(), saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if diff := cmp.Diff(saved, got); diff != "" {
		t.Fatalf("reopened item mismatch (-want +got):\n%s", diff)
	}
}

func Test_Open_Fails_When_Backend_Unknown_Or_Path_Missing(t *testing.T) {
	t.Parallel()

	if _, err := store.Open(t.Context(), store.Options{Backend: "postgres"}); !errors.Is(err, store.ErrUnknownBackend) {
		t.Fatalf("unknown backend err = %v", err)
	}

	if _, err := store.Open(t.Context(), store.Options{Backend: store.BackendFile}); err == nil {
		t.Fatal("expected error for empty file path")
	}

	if _, err := store.ParseItemKind("Subtask"); err != nil {
		t.Fatalf("ParseItemKind: %v", err)
	}
}
