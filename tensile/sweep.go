package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/itohio/tensile/pkg/console"
)

func NewSweepCommand() *cobra.Command {
	var start, stop, step int64

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Print raw counts and their calibrated values",
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := cfg.Table()
			if err != nil {
				return err
			}

			rng := console.SweepRange{Start: cfg.Sweep.Start, Stop: cfg.Sweep.Stop, Step: cfg.Sweep.Step}
			if cmd.Flags().Changed("start") {
				rng.Start = start
			}
			if cmd.Flags().Changed("stop") {
				rng.Stop = stop
			}
			if cmd.Flags().Changed("step") {
				rng.Step = step
			}

			return console.WriteSweep(console.NewSink(os.Stdout), table, rng)
		},
	}

	cmd.Flags().Int64Var(&start, "start", 0, "first raw count (overrides config)")
	cmd.Flags().Int64Var(&stop, "stop", 0, "last raw count (overrides config)")
	cmd.Flags().Int64Var(&step, "step", 0, "raw count increment (overrides config)")

	return cmd
}
