package flyweight

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Factory hands out shared shapes keyed by colour. The first request for a
// colour builds the shape; later requests return that same value.
type Factory struct {
	mu        sync.RWMutex
	pool      map[string]Shape
	group     singleflight.Group
	construct Constructor
	observer  Observer
	registry  *Registry
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithConstructor replaces the default circle constructor.
func WithConstructor(fn Constructor) FactoryOption {
	return func(f *Factory) {
		if fn != nil {
			f.construct = fn
		}
	}
}

// WithObserver attaches an observer to receive operation events.
func WithObserver(o Observer) FactoryOption {
	return func(f *Factory) {
		f.observer = o
	}
}

// WithRegistry records created shapes and request counts in r.
func WithRegistry(r *Registry) FactoryOption {
	return func(f *Factory) {
		f.registry = r
	}
}

// NewFactory creates an empty factory that builds circles unless told otherwise.
//
// Example: shared circles
//
//	f := flyweight.NewFactory(flyweight.WithObserver(flyweight.AnnounceTo(os.Stdout)))
//	red := f.Must("Red")   // Creating Red Circle
//	again := f.Must("Red") // no output
//	fmt.Println(red == again) // true
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		pool:      make(map[string]Shape),
		construct: circleConstructor,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type buildResult struct {
	shape   Shape
	created bool
}

// Get returns the shared shape for color, building it on first use.
// Concurrent first requests for the same colour share a single construction.
func (f *Factory) Get(ctx context.Context, color string) (Shape, error) {
	if strings.TrimSpace(color) == "" {
		return nil, ErrEmptyColor
	}
	start := time.Now()

	shape, ok := f.lookup(color)
	created := false
	if !ok {
		ran := false
		v, err, _ := f.group.Do(color, func() (any, error) {
			ran = true
			return f.build(ctx, color)
		})
		if err != nil {
			f.observe(ctx, OpGet, "", color, false, err, start)
			return nil, err
		}
		res := v.(buildResult)
		shape = res.shape
		created = ran && res.created
	}

	if f.registry != nil {
		if _, err := f.registry.Hit(ctx, color); err != nil {
			f.observe(ctx, OpGet, shape.Kind(), color, !created, err, start)
			return nil, err
		}
	}
	f.observe(ctx, OpGet, shape.Kind(), color, !created, nil, start)
	return shape, nil
}

// Must is Get with a background context. It panics on error.
func (f *Factory) Must(color string) Shape {
	shape, err := f.Get(context.Background(), color)
	if err != nil {
		panic(err)
	}
	return shape
}

// Size reports how many distinct shapes the factory holds.
func (f *Factory) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.pool)
}

// Colors returns the pooled keys in sorted order.
func (f *Factory) Colors() []string {
	f.mu.RLock()
	colors := make([]string, 0, len(f.pool))
	for color := range f.pool {
		colors = append(colors, color)
	}
	f.mu.RUnlock()
	sort.Strings(colors)
	return colors
}

// Stats returns the registry view of color.
func (f *Factory) Stats(ctx context.Context, color string) (Stats, bool, error) {
	if f.registry == nil {
		return Stats{}, false, ErrRegistryUnavailable
	}
	if strings.TrimSpace(color) == "" {
		return Stats{}, false, ErrEmptyColor
	}
	return f.registry.Stats(ctx, color)
}

// Registry returns the attached registry, or nil.
func (f *Factory) Registry() *Registry {
	return f.registry
}

func (f *Factory) lookup(color string) (Shape, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	shape, ok := f.pool[color]
	return shape, ok
}

func (f *Factory) build(ctx context.Context, color string) (buildResult, error) {
	// A caller that lost the race to an earlier singleflight round finds the shape here.
	if shape, ok := f.lookup(color); ok {
		return buildResult{shape: shape}, nil
	}

	start := time.Now()
	shape := f.construct(color)
	if shape == nil {
		f.observe(ctx, OpCreate, "", color, false, ErrNilShape, start)
		return buildResult{}, ErrNilShape
	}

	if f.registry != nil {
		recStart := time.Now()
		fresh, err := f.registry.Record(ctx, shape)
		f.observe(ctx, OpRecord, shape.Kind(), color, !fresh, err, recStart)
		if err != nil {
			return buildResult{}, err
		}
	}

	f.mu.Lock()
	f.pool[color] = shape
	f.mu.Unlock()

	f.observe(ctx, OpCreate, shape.Kind(), color, false, nil, start)
	return buildResult{shape: shape, created: true}, nil
}

func (f *Factory) observe(ctx context.Context, op, kind, color string, hit bool, err error, start time.Time) {
	if f.observer == nil {
		return
	}
	f.observer.OnShapeOp(ctx, op, kind, color, hit, err, time.Since(start))
}
