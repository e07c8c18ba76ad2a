package flyweight

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	gocache "github.com/patrickmn/go-cache"
)

// memoryStore keeps records for the life of the process. Counters are held as
// int64 items so go-cache can bump them in place.
type memoryStore struct {
	cache *gocache.Cache
	mu    sync.Mutex
}

func newMemoryStore() Store {
	return &memoryStore{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

func (s *memoryStore) Driver() Driver {
	return DriverMemory
}

func (s *memoryStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	item, ok := s.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	switch value := item.(type) {
	case []byte:
		return cloneBytes(value), true, nil
	case int64:
		return []byte(strconv.FormatInt(value, 10)), true, nil
	default:
		return nil, false, fmt.Errorf("registry key %q holds unexpected %T", key, item)
	}
}

func (s *memoryStore) Save(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Set(key, cloneBytes(value), gocache.NoExpiration)
	return nil
}

func (s *memoryStore) SaveNew(_ context.Context, key string, value []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.cache.Get(key); found {
		return false, nil
	}
	if err := s.cache.Add(key, cloneBytes(value), gocache.NoExpiration); err != nil {
		return false, err
	}
	return true, nil
}

func (s *memoryStore) Incr(_ context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, found := s.cache.Get(key)
	if !found {
		s.cache.Set(key, delta, gocache.NoExpiration)
		return delta, nil
	}
	switch value := item.(type) {
	case int64:
		return s.cache.IncrementInt64(key, delta)
	case []byte:
		// A counter written through Save arrives as text.
		n, err := strconv.ParseInt(string(value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("registry key %q does not contain a numeric value", key)
		}
		next := n + delta
		s.cache.Set(key, next, gocache.NoExpiration)
		return next, nil
	default:
		return 0, fmt.Errorf("registry key %q does not contain a numeric value", key)
	}
}

func (s *memoryStore) Remove(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		s.cache.Delete(key)
	}
	return nil
}

func (s *memoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Flush()
	return nil
}
