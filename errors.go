package flyweight

import "errors"

var (
	// ErrEmptyColor is returned when a shape is requested with a blank key.
	ErrEmptyColor = errors.New("flyweight: color is required")
	// ErrNilWriter is returned when Draw is given no destination.
	ErrNilWriter = errors.New("flyweight: draw requires a writer")
	// ErrNilShape is returned when a constructor yields no shape.
	ErrNilShape = errors.New("flyweight: constructor returned nil shape")
	// ErrRegistryUnavailable is returned by Factory.Stats when no registry is attached.
	ErrRegistryUnavailable = errors.New("flyweight: registry unavailable")
)
