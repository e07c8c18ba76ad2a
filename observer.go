package flyweight

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Operation names reported to observers.
const (
	OpCreate = "create"
	OpGet    = "get"
	OpRecord = "record"
)

// Observer receives events for factory operations.
// hit reports whether a get was served from the pool; for record it reports
// whether the registry already held the shape.
type Observer interface {
	OnShapeOp(ctx context.Context, op, kind, color string, hit bool, err error, dur time.Duration)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, op, kind, color string, hit bool, err error, dur time.Duration)

// OnShapeOp implements Observer.
func (f ObserverFunc) OnShapeOp(ctx context.Context, op, kind, color string, hit bool, err error, dur time.Duration) {
	if f == nil {
		return
	}
	f(ctx, op, kind, color, hit, err, dur)
}

// Observers fans an event out to every non-nil observer in order.
func Observers(observers ...Observer) Observer {
	return ObserverFunc(func(ctx context.Context, op, kind, color string, hit bool, err error, dur time.Duration) {
		for _, o := range observers {
			if o != nil {
				o.OnShapeOp(ctx, op, kind, color, hit, err, dur)
			}
		}
	})
}

// AnnounceTo returns an observer that writes "Creating <color> <kind>" to w
// each time the factory builds a new flyweight.
func AnnounceTo(w io.Writer) Observer {
	return ObserverFunc(func(_ context.Context, op, kind, color string, _ bool, err error, _ time.Duration) {
		if op != OpCreate || err != nil || w == nil {
			return
		}
		fmt.Fprintf(w, "Creating %s %s\n", color, kind)
	})
}
