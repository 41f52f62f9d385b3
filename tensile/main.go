package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/itohio/tensile/pkg/config"
)

var (
	logLevel   = ""
	configPath = "config.yaml"
	cfg        *config.Config
)

func setupLogger(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}
	return nil
}

func main() {
	if err := NewCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tensile",
		Short: "tensile reads a load cell and streams calibrated force readings",
		Long: `tensile reads raw counts from an HX711 load-cell amplifier, converts them
through a piecewise-linear calibration table and streams current and peak force
in CSV or JSON. Measurement is controlled with single-key commands.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}

			level := logLevel
			if level == "" {
				level = cfg.Log.Level
			}
			return setupLogger(level)
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "", "log level (trace, debug, info, warn, error); overrides config")
	globalFlags.StringVarP(&configPath, "config", "c", configPath, "config file path")

	cmd.AddCommand(
		NewRunCommand(),
		NewSweepCommand(),
		NewPortsCommand(),
		NewConfigCommand(),
	)

	return cmd
}
