package flyweight

import (
	"context"
	"errors"
	"testing"
)

type countingStore struct {
	Store
	loads int
}

func (s *countingStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	s.loads++
	return s.Store.Load(ctx, key)
}

// hookStore runs onLoad after reading from the wrapped store, before the
// result is returned.
type hookStore struct {
	Store
	onLoad func()
}

func (s *hookStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	body, ok, err := s.Store.Load(ctx, key)
	if s.onLoad != nil {
		hook := s.onLoad
		s.onLoad = nil
		hook()
	}
	return body, ok, err
}

func TestMemoStoreContract(t *testing.T) {
	runStoreContract(t, NewMemoStore(NewMemoryStore(context.Background())))
}

func TestMemoStoreMemoizesReads(t *testing.T) {
	ctx := context.Background()
	base := &countingStore{Store: NewMemoryStore(ctx)}
	memo := NewMemoStore(base)

	_ = base.Save(ctx, "shape:Red", []byte("red"))
	for i := 0; i < 3; i++ {
		body, ok, err := memo.Load(ctx, "shape:Red")
		if err != nil || !ok || string(body) != "red" {
			t.Fatalf("load %d: body=%q ok=%v err=%v", i, body, ok, err)
		}
		body[0] = 'X'
	}
	if base.loads != 1 {
		t.Fatalf("expected one backing load, got %d", base.loads)
	}
	if memo.Driver() != DriverMemory {
		t.Fatalf("expected wrapped driver, got %q", memo.Driver())
	}
}

func TestMemoStoreForgetsOnWrite(t *testing.T) {
	ctx := context.Background()
	base := &countingStore{Store: NewMemoryStore(ctx)}
	memo := NewMemoStore(base)

	if _, ok, _ := memo.Load(ctx, "shape:Red"); ok {
		t.Fatalf("expected miss")
	}
	// another writer fills the key behind the memo
	_ = base.Save(ctx, "shape:Red", []byte("red"))
	if _, ok, _ := memo.Load(ctx, "shape:Red"); ok {
		t.Fatalf("expected memoized miss")
	}
	if created, err := memo.SaveNew(ctx, "shape:Red", []byte("again")); err != nil || created {
		t.Fatalf("expected existing key, got created=%v err=%v", created, err)
	}
	body, ok, _ := memo.Load(ctx, "shape:Red")
	if !ok || string(body) != "red" {
		t.Fatalf("expected refreshed record after SaveNew, got %q ok=%v", body, ok)
	}

	_, _ = memo.Incr(ctx, "requests:Red", 1)
	_, _, _ = memo.Load(ctx, "requests:Red")
	_, _ = memo.Incr(ctx, "requests:Red", 1)
	raw, _, _ := memo.Load(ctx, "requests:Red")
	if string(raw) != "2" {
		t.Fatalf("expected counter refreshed after incr, got %q", raw)
	}
}

func TestMemoStoreDoesNotMemoizeErrors(t *testing.T) {
	boom := errors.New("down")
	memo := NewMemoStore(&errorStore{driver: DriverRedis, err: boom})
	if _, _, err := memo.Load(context.Background(), "k"); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if n := len(memo.(*memoStore).items); n != 0 {
		t.Fatalf("expected no memo entries, got %d", n)
	}
}

func TestMemoStoreSkipsLoadRacedByWrite(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name  string
		write func(Store) error
		want  string
		found bool
	}{
		{"save", func(s Store) error { return s.Save(ctx, "requests:Red", []byte("9")) }, "9", true},
		{"incr", func(s Store) error { _, err := s.Incr(ctx, "requests:Red", 1); return err }, "2", true},
		{"remove", func(s Store) error { return s.Remove(ctx, "requests:Red") }, "", false},
		{"clear", func(s Store) error { return s.Clear(ctx) }, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			base := &hookStore{Store: NewMemoryStore(ctx)}
			memo := NewMemoStore(base)
			if _, err := base.Incr(ctx, "requests:Red", 1); err != nil {
				t.Fatalf("seed: %v", err)
			}

			base.onLoad = func() {
				if err := tc.write(memo); err != nil {
					t.Fatalf("write: %v", err)
				}
			}
			if body, ok, err := memo.Load(ctx, "requests:Red"); err != nil || !ok || string(body) != "1" {
				t.Fatalf("racing load: body=%q ok=%v err=%v", body, ok, err)
			}

			body, ok, err := memo.Load(ctx, "requests:Red")
			if err != nil || ok != tc.found || string(body) != tc.want {
				t.Fatalf("expected %q found=%v after write, got %q ok=%v err=%v", tc.want, tc.found, body, ok, err)
			}
		})
	}
}
