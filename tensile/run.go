package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/itohio/tensile/pkg/config"
	"github.com/itohio/tensile/pkg/console"
	"github.com/itohio/tensile/pkg/loadcell"
	"github.com/itohio/tensile/pkg/reading"
)

func NewRunCommand() *cobra.Command {
	var (
		mock        bool
		port        string
		consolePort string
		format      string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the interactive measurement loop",
		Long: `Run prints the calibration sweep, waits for the startup delay and shows the
paused menu. Keys: r resume, x new test (x again while measuring pauses),
j toggle CSV/JSON, c calibration (not implemented).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != "" {
				cfg.Serial.Port = port
			}
			if consolePort != "" {
				cfg.Console.Port = consolePort
			}
			if format != "" {
				cfg.Measurement.Format = format
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err := run(ctx, cfg, mock)
			if errors.Is(err, context.Canceled) || errors.Is(err, console.ErrInterrupted) {
				logrus.Info("stopped")
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&mock, "mock", false, "use a simulated load cell instead of the serial bridge")
	cmd.Flags().StringVarP(&port, "port", "p", "", "serial bridge port (overrides config)")
	cmd.Flags().StringVar(&consolePort, "console-port", "", "serial port for commands and output (default stdio)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "initial output format: csv or json")

	return cmd
}

func newSource(cfg *config.Config, mock bool) loadcell.Source {
	if mock {
		logrus.Info("using simulated load cell")
		return loadcell.NewMock(&cfg.Mock)
	}
	s := loadcell.New(cfg.Serial.Port, cfg.Serial.BaudRate, loadcell.DefaultBufferSize)
	s.SetReadTimeout(cfg.Measurement.ReadTimeout)
	return s
}

func openConsole(cfg *config.Config) (io.Reader, io.Writer, func() error, error) {
	if cfg.Console.Port == "" {
		return console.OpenStdio()
	}
	p, err := console.OpenSerial(cfg.Console.Port, cfg.Console.BaudRate)
	if err != nil {
		return nil, nil, nil, err
	}
	return p, p, p.Close, nil
}

func run(ctx context.Context, cfg *config.Config, mock bool) error {
	table, err := cfg.Table()
	if err != nil {
		return err
	}
	unit, err := cfg.Unit()
	if err != nil {
		return err
	}
	mode, err := reading.ParseMode(cfg.Measurement.Format)
	if err != nil {
		return err
	}

	src := newSource(cfg, mock)
	if err := src.Connect(); err != nil {
		return err
	}
	defer src.Close()

	in, out, closeConsole, err := openConsole(cfg)
	if err != nil {
		return err
	}
	defer closeConsole()

	sink := console.NewSink(out)

	var sweep *console.SweepRange
	if cfg.Sweep.Enabled {
		sweep = &console.SweepRange{Start: cfg.Sweep.Start, Stop: cfg.Sweep.Stop, Step: cfg.Sweep.Step}
	}
	if err := console.Startup(ctx, sink, table, sweep, cfg.Measurement.StartupDelay); err != nil {
		return err
	}

	pipeline := reading.NewPipeline(src, table, reading.NewState(mode, time.Now()),
		reading.WithSamples(cfg.Measurement.Samples),
		reading.WithRetry(cfg.Measurement.RetryDelay, cfg.Measurement.MaxRetries),
	)

	logrus.WithFields(logrus.Fields{
		"points": table.Len(),
		"unit":   unit.String(),
		"format": mode.String(),
		"period": cfg.Measurement.Period,
	}).Info("ready")

	ctrl := console.NewController(pipeline, sink, unit, cfg.Measurement.Period)
	return ctrl.Run(ctx, console.ReadCommands(ctx, in))
}
