package flyweight

import (
	"context"
	"strconv"
	"sync"
	"testing"
)

// runStoreContract exercises the behaviour every persistent Store must share.
func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	if _, ok, err := store.Load(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	body := []byte(`{"color":"Red"}`)
	if err := store.Save(ctx, "shape:Red", body); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	body[2] = 'X'
	got, ok, err := store.Load(ctx, "shape:Red")
	if err != nil || !ok {
		t.Fatalf("load failed: ok=%v err=%v", ok, err)
	}
	if string(got) != `{"color":"Red"}` {
		t.Fatalf("expected stored copy to be unchanged, got %q", got)
	}

	created, err := store.SaveNew(ctx, "shape:Red", []byte("other"))
	if err != nil {
		t.Fatalf("save new failed: %v", err)
	}
	if created {
		t.Fatalf("expected save new to refuse an existing key")
	}
	created, err = store.SaveNew(ctx, "shape:Blue", []byte("blue"))
	if err != nil || !created {
		t.Fatalf("expected save new to create, got created=%v err=%v", created, err)
	}

	n, err := store.Incr(ctx, "requests:Red", 1)
	if err != nil || n != 1 {
		t.Fatalf("first incr: n=%d err=%v", n, err)
	}
	n, err = store.Incr(ctx, "requests:Red", 4)
	if err != nil || n != 5 {
		t.Fatalf("second incr: n=%d err=%v", n, err)
	}
	n, err = store.Incr(ctx, "requests:Red", -2)
	if err != nil || n != 3 {
		t.Fatalf("negative incr: n=%d err=%v", n, err)
	}
	raw, ok, err := store.Load(ctx, "requests:Red")
	if err != nil || !ok || string(raw) != "3" {
		t.Fatalf("expected counter text 3, got %q ok=%v err=%v", raw, ok, err)
	}

	if err := store.Remove(ctx, "shape:Red", "requests:Red", "never-set"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, ok, _ := store.Load(ctx, "shape:Red"); ok {
		t.Fatalf("expected shape:Red removed")
	}
	if err := store.Remove(ctx); err != nil {
		t.Fatalf("empty remove failed: %v", err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, ok, _ := store.Load(ctx, "shape:Blue"); ok {
		t.Fatalf("expected shape:Blue cleared")
	}
}

// runConcurrentIncr checks that parallel increments are not lost.
func runConcurrentIncr(t *testing.T, store Store, workers, perWorker int) {
	t.Helper()
	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := store.Incr(ctx, "requests:shared", 1); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent incr failed: %v", err)
	}
	raw, ok, err := store.Load(ctx, "requests:shared")
	if err != nil || !ok {
		t.Fatalf("load counter: ok=%v err=%v", ok, err)
	}
	want := workers * perWorker
	if string(raw) != strconv.Itoa(want) {
		t.Fatalf("expected %d increments, got %s", want, raw)
	}
}
