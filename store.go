package flyweight

import "context"

// Store is the persistence contract behind a Registry.
// Records never expire; a key lives until Remove or Clear.
type Store interface {
	Driver() Driver
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
	// SaveNew writes value only when key is absent and reports whether it did.
	SaveNew(ctx context.Context, key string, value []byte) (bool, error)
	Incr(ctx context.Context, key string, delta int64) (int64, error)
	Remove(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
