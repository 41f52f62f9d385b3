package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/itohio/tensile/pkg/companion"
)

func NewServeCommand() *cobra.Command {
	var (
		port   string
		listen string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Record the device stream headless and serve an HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != "" {
				cfg.Companion.Port = port
			}
			if listen != "" {
				cfg.Companion.Listen = listen
			}

			unit, err := cfg.Unit()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client := newClient()
			if err := client.Connect(ctx); err != nil {
				return err
			}
			defer client.Disconnect()

			session := companion.NewSession(unit)
			go session.Consume(ctx, client.Records())

			store := companion.NewStore(cfg.Companion.TestsDirectory, unit)
			srv := companion.NewServer(client, session, store, cfg.Companion.Technician)

			err = srv.Run(ctx, cfg.Companion.Listen)
			if err == nil || ctx.Err() == context.Canceled {
				logrus.Info("stopped")
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "device serial port (overrides config)")
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")

	return cmd
}

func newClient() *companion.Client {
	return companion.NewClient(cfg.Companion.Port, cfg.Companion.BaudRate,
		companion.WithDelays(cfg.Companion.StartupWait, cfg.Companion.CommandDelay),
		companion.WithLineHandler(func(line string) {
			logrus.WithField("line", line).Trace("device")
		}),
	)
}
