package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/goforj/flyweight"
)

func (a *app) newDrawCommand() *cobra.Command {
	var p flyweight.Placement
	cmd := &cobra.Command{
		Use:   "draw <color>...",
		Short: "Draw one or more shared circles at the same placement",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := make([]flyweight.DemoStep, 0, len(args))
			for _, color := range args {
				steps = append(steps, flyweight.DemoStep{Color: color, Placement: p})
			}
			return a.withFactory(cmd.Context(), func(ctx context.Context, f *flyweight.Factory) error {
				return flyweight.Run(ctx, a.out, f, steps)
			})
		},
	}
	cmd.Flags().IntVar(&p.X, "x", 0, "x coordinate")
	cmd.Flags().IntVar(&p.Y, "y", 0, "y coordinate")
	cmd.Flags().IntVar(&p.Radius, "radius", 1, "circle radius")
	return cmd
}

func (a *app) newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <color>...",
		Short: "Show registry records and request counts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withFactory(cmd.Context(), func(ctx context.Context, f *flyweight.Factory) error {
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "COLOR\tKIND\tCREATED\tREQUESTS")
				for _, color := range args {
					st, ok, err := f.Stats(ctx, color)
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintf(tw, "%s\t-\t-\t0\n", color)
						continue
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", st.Color, st.Kind, st.CreatedAt.Format(time.RFC3339), st.Requests)
				}
				return tw.Flush()
			})
		},
	}
}

func (a *app) newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset [color]...",
		Short: "Forget the given colours, or every record when none are named",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withFactory(cmd.Context(), func(ctx context.Context, f *flyweight.Factory) error {
				reg := f.Registry()
				if len(args) == 0 {
					if err := reg.Reset(ctx); err != nil {
						return err
					}
					a.log.Info().Str("driver", string(reg.Store().Driver())).Msg("registry cleared")
					return nil
				}
				if err := reg.Forget(ctx, args...); err != nil {
					return err
				}
				a.log.Info().Strs("colors", args).Msg("registry entries removed")
				return nil
			})
		},
	}
}
