package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/itohio/tensile/pkg/companion"
	"github.com/itohio/tensile/pkg/units"
)

func NewStatsCommand() *cobra.Command {
	var (
		date   string
		symbol string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print peak force statistics of stored tests",
		RunE: func(_ *cobra.Command, _ []string) error {
			unit, err := cfg.Unit()
			if err != nil {
				return err
			}
			if symbol != "" {
				if unit, err = units.Parse(symbol); err != nil {
					return err
				}
			}

			tests, err := loadTests(date)
			if err != nil {
				return err
			}

			stats := companion.NewStatistics(tests, unit)
			sum := stats.Summary()
			if sum.Count == 0 {
				fmt.Println("no tests with a peak force")
				return nil
			}

			u := sum.Unit
			fmt.Printf("%s\n", bold("Peak force over %d tests", sum.Count))
			fmt.Printf("  Mean:    %s\n", color.CyanString("%.3f %s", sum.Mean, u))
			fmt.Printf("  Std dev: %.3f %s\n", sum.StdDev, u)
			fmt.Printf("  3σ:      %.3f .. %.3f %s\n", sum.Lower3Sigma, sum.Upper3Sigma, u)
			fmt.Printf("  Median:  %.3f %s\n", sum.Median, u)
			fmt.Printf("  Range:   %.3f .. %.3f %s\n", sum.Min, sum.Max, u)
			fmt.Println()

			fmt.Println(bold("Deviation from mean"))
			for _, d := range stats.Deviations() {
				dev := color.GreenString("%+.3f", d.Deviation)
				if sum.StdDev > 0 && (d.Peak < sum.Lower3Sigma || d.Peak > sum.Upper3Sigma) {
					dev = color.RedString("%+.3f", d.Deviation)
				} else if d.Deviation < 0 {
					dev = color.YellowString("%+.3f", d.Deviation)
				}
				fmt.Printf("  %-24s %8.3f %s  %s\n", d.TestName, d.Peak, u, dev)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "only tests from this day (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&symbol, "unit", "u", "", "report in this unit (N, kN, lbf, g, kg); default is the calibration unit")

	return cmd
}
