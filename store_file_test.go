package flyweight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestFileStore(t *testing.T) *fileStore {
	t.Helper()
	store, err := newFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	return store.(*fileStore)
}

func TestFileStoreContract(t *testing.T) {
	runStoreContract(t, newTestFileStore(t))
}

func TestFileStoreConcurrentIncr(t *testing.T) {
	runConcurrentIncr(t, newTestFileStore(t), 4, 25)
}

func TestFileStoreSharesRecordsBetweenInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := newFileStore(dir)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	second, err := newFileStore(dir)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}

	if created, err := first.SaveNew(ctx, "shape:Red", []byte("a")); err != nil || !created {
		t.Fatalf("first save new: created=%v err=%v", created, err)
	}
	if created, err := second.SaveNew(ctx, "shape:Red", []byte("b")); err != nil || created {
		t.Fatalf("second save new should lose: created=%v err=%v", created, err)
	}
	body, ok, err := second.Load(ctx, "shape:Red")
	if err != nil || !ok || string(body) != "a" {
		t.Fatalf("expected first writer's value, got %q ok=%v err=%v", body, ok, err)
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	_, _ = store.SaveNew(ctx, "shape:Red", []byte("a"))
	_, _ = store.SaveNew(ctx, "shape:Red", []byte("b"))
	_ = store.Save(ctx, "shape:Blue", []byte("c"))

	matches, err := filepath.Glob(filepath.Join(store.dir, "*.tmp"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected temp files cleaned up, found %v", matches)
	}
}

func TestFileStoreCorruptRecord(t *testing.T) {
	store := newTestFileStore(t)
	if err := os.WriteFile(store.path("bad"), []byte("nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := store.Load(context.Background(), "bad"); err == nil {
		t.Fatalf("expected corrupt record error")
	}
}

func TestFileStoreClearKeepsForeignFiles(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()
	foreign := filepath.Join(store.dir, "notes.txt")
	if err := os.WriteFile(foreign, []byte("keep"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = store.Save(ctx, "shape:Red", []byte("a"))

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Fatalf("expected foreign file to survive: %v", err)
	}
}

func TestFileStoreWriteErrors(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	origCreate, origRename, origLink := createTempFile, renameFile, linkFile
	t.Cleanup(func() {
		createTempFile, renameFile, linkFile = origCreate, origRename, origLink
	})

	createTempFile = func(string, string) (*os.File, error) { return nil, boom }
	if err := store.Save(ctx, "k", []byte("v")); !errors.Is(err, boom) {
		t.Fatalf("expected create error, got %v", err)
	}
	createTempFile = origCreate

	renameFile = func(string, string) error { return boom }
	if err := store.Save(ctx, "k", []byte("v")); !errors.Is(err, boom) {
		t.Fatalf("expected rename error, got %v", err)
	}
	renameFile = origRename

	linkFile = func(string, string) error { return boom }
	if _, err := store.SaveNew(ctx, "k", []byte("v")); !errors.Is(err, boom) {
		t.Fatalf("expected link error, got %v", err)
	}
}
