package flyweight

import (
	"context"
	"fmt"
	"io"
)

// DemoStep is one request-and-draw in the demo run.
type DemoStep struct {
	Color     string
	Placement Placement
}

// DemoSteps are the colours and placements used by Demo.
var DemoSteps = []DemoStep{
	{Color: "Red", Placement: Placement{X: 10, Y: 20, Radius: 25}},
	{Color: "Blue", Placement: Placement{X: 11, Y: 22, Radius: 26}},
	{Color: "Green", Placement: Placement{X: 12, Y: 22, Radius: 27}},
}

// Demo requests each DemoSteps colour from f and draws it to w.
func Demo(ctx context.Context, w io.Writer, f *Factory) error {
	return Run(ctx, w, f, DemoSteps)
}

// Run requests and draws each step in order, stopping at the first error.
func Run(ctx context.Context, w io.Writer, f *Factory, steps []DemoStep) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		shape, err := f.Get(ctx, step.Color)
		if err != nil {
			return fmt.Errorf("get %s: %w", step.Color, err)
		}
		if err := shape.Draw(w, step.Placement); err != nil {
			return fmt.Errorf("draw %s: %w", step.Color, err)
		}
	}
	return nil
}
