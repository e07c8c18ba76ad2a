package flyweight

import (
	"context"
	"sync"
)

type memoEntry struct {
	body []byte
	ok   bool
}

// NewMemoStore decorates store with per-process read memoization.
// Writes made through the returned store drop the affected keys; writes made
// by other processes are not observed until then.
//
// Example: memoize a shared registry store
//
//	ctx := context.Background()
//	base := flyweight.NewStore(ctx, flyweight.StoreConfig{Driver: flyweight.DriverMemory})
//	reg := flyweight.NewRegistry(flyweight.NewMemoStore(base))
//	_ = reg
func NewMemoStore(store Store) Store {
	return &memoStore{
		store: store,
		items: make(map[string]memoEntry),
	}
}

type memoStore struct {
	store Store
	mu    sync.RWMutex
	items map[string]memoEntry
	// gen advances on every invalidation; a load only memoizes when no
	// invalidation raced it.
	gen uint64
}

func (s *memoStore) Driver() Driver {
	return s.store.Driver()
}

func (s *memoStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.items[key]
	gen := s.gen
	s.mu.RUnlock()
	if ok {
		return cloneBytes(entry.body), entry.ok, nil
	}

	body, exists, err := s.store.Load(ctx, key)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	if s.gen == gen {
		s.items[key] = memoEntry{body: cloneBytes(body), ok: exists}
	}
	s.mu.Unlock()

	return cloneBytes(body), exists, nil
}

func (s *memoStore) Save(ctx context.Context, key string, value []byte) error {
	if err := s.store.Save(ctx, key, value); err != nil {
		return err
	}
	s.forget(key)
	return nil
}

// SaveNew forgets the key even when it already existed, since a memoized
// miss is stale either way.
func (s *memoStore) SaveNew(ctx context.Context, key string, value []byte) (bool, error) {
	created, err := s.store.SaveNew(ctx, key, value)
	if err != nil {
		return false, err
	}
	s.forget(key)
	return created, nil
}

func (s *memoStore) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	value, err := s.store.Incr(ctx, key, delta)
	if err != nil {
		return 0, err
	}
	s.forget(key)
	return value, nil
}

func (s *memoStore) Remove(ctx context.Context, keys ...string) error {
	if err := s.store.Remove(ctx, keys...); err != nil {
		return err
	}
	s.mu.Lock()
	s.gen++
	for _, key := range keys {
		delete(s.items, key)
	}
	s.mu.Unlock()
	return nil
}

func (s *memoStore) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.gen++
	s.items = make(map[string]memoEntry)
	s.mu.Unlock()
	return nil
}

// Close releases the wrapped store when it holds connections.
func (s *memoStore) Close() error {
	if c, ok := s.store.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (s *memoStore) forget(key string) {
	s.mu.Lock()
	s.gen++
	delete(s.items, key)
	s.mu.Unlock()
}
