package flyweight

import (
	"fmt"
	"io"
)

// Shape is a shareable flyweight. Implementations hold only intrinsic state
// and must be safe to use from several goroutines at once.
type Shape interface {
	Kind() string
	Color() string
	Draw(w io.Writer, p Placement) error
}

// Placement is the extrinsic state a caller supplies on every draw.
type Placement struct {
	X      int
	Y      int
	Radius int
}

// Constructor builds a new flyweight for a key.
type Constructor func(color string) Shape

// Circle is the default flyweight. Its colour is fixed at construction.
type Circle struct {
	color string
}

// NewCircle returns a circle of the given colour.
func NewCircle(color string) *Circle {
	return &Circle{color: color}
}

// Kind implements Shape.
func (c *Circle) Kind() string { return "Circle" }

// Color implements Shape.
func (c *Circle) Color() string { return c.color }

// Draw writes a single line describing the circle at p.
//
// Example: draw a circle
//
//	c := flyweight.NewCircle("Red")
//	_ = c.Draw(os.Stdout, flyweight.Placement{X: 10, Y: 20, Radius: 25})
//	// Drawing Circle: Color: Red, x: 10, y: 20, Radius: 25
func (c *Circle) Draw(w io.Writer, p Placement) error {
	if w == nil {
		return ErrNilWriter
	}
	_, err := fmt.Fprintf(w, "Drawing %s: Color: %s, x: %d, y: %d, Radius: %d\n", c.Kind(), c.color, p.X, p.Y, p.Radius)
	return err
}

func circleConstructor(color string) Shape { return NewCircle(color) }
