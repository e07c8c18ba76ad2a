package flyweight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	recordKeyPrefix  = "shape:"
	counterKeyPrefix = "requests:"
)

// Record is the persisted intrinsic state of a flyweight.
type Record struct {
	Kind      string    `json:"kind"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats is a Record plus the number of times the colour was requested.
type Stats struct {
	Record
	Requests int64 `json:"requests"`
}

// Registry persists which flyweights exist and how often they were requested.
// It lets separate processes share that view through a common Store.
type Registry struct {
	store Store
	now   func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock overrides the time source used to stamp new records.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry creates a registry bound to a concrete store.
//
// Example: registry over memory
//
//	ctx := context.Background()
//	reg := flyweight.NewRegistry(flyweight.NewMemoryStore(ctx))
//	fmt.Println(reg.Store().Driver()) // memory
func NewRegistry(store Store, opts ...RegistryOption) *Registry {
	r := &Registry{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the underlying store implementation.
func (r *Registry) Store() Store {
	return r.store
}

// Record stores the shape's intrinsic state unless it is already known.
// It reports true when this call wrote the record.
func (r *Registry) Record(ctx context.Context, shape Shape) (bool, error) {
	if shape == nil {
		return false, ErrNilShape
	}
	body, err := json.Marshal(Record{
		Kind:      shape.Kind(),
		Color:     shape.Color(),
		CreatedAt: r.now().UTC(),
	})
	if err != nil {
		return false, err
	}
	created, err := r.store.SaveNew(ctx, recordKey(shape.Color()), body)
	if err != nil {
		return false, fmt.Errorf("record %s: %w", shape.Color(), err)
	}
	return created, nil
}

// Hit bumps the request counter for color and returns the new total.
func (r *Registry) Hit(ctx context.Context, color string) (int64, error) {
	n, err := r.store.Incr(ctx, counterKey(color), 1)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", color, err)
	}
	return n, nil
}

// Stats returns the stored record and request count for color.
func (r *Registry) Stats(ctx context.Context, color string) (Stats, bool, error) {
	body, ok, err := r.store.Load(ctx, recordKey(color))
	if err != nil || !ok {
		return Stats{}, false, err
	}
	var out Stats
	if err := json.Unmarshal(body, &out.Record); err != nil {
		return Stats{}, false, fmt.Errorf("decode record %s: %w", color, err)
	}
	raw, ok, err := r.store.Load(ctx, counterKey(color))
	if err != nil {
		return Stats{}, false, err
	}
	if ok {
		if err := json.Unmarshal(raw, &out.Requests); err != nil {
			return Stats{}, false, fmt.Errorf("decode counter %s: %w", color, err)
		}
	}
	return out, true, nil
}

// Forget removes the record and counter for each colour.
func (r *Registry) Forget(ctx context.Context, colors ...string) error {
	if len(colors) == 0 {
		return nil
	}
	keys := make([]string, 0, len(colors)*2)
	for _, color := range colors {
		if strings.TrimSpace(color) == "" {
			return ErrEmptyColor
		}
		keys = append(keys, recordKey(color), counterKey(color))
	}
	return r.store.Remove(ctx, keys...)
}

// Reset clears every record in the store scope.
func (r *Registry) Reset(ctx context.Context) error {
	return r.store.Clear(ctx)
}

func recordKey(color string) string  { return recordKeyPrefix + color }
func counterKey(color string) string { return counterKeyPrefix + color }
