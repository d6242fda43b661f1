package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"microiaas/api"
	"microiaas/internal/logging"
	"microiaas/internal/reconcile"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the periodic fleet snapshotter",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := dial()
			if err != nil {
				return err
			}
			defer a.Close()

			// The daemon logs at the configured level, not the CLI's quiet
			// default.
			if err := logging.Configure(a.cfg.LogLevel); err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.ListenAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := api.New(a.rec, a.store)
			snap := &reconcile.Snapshotter{Reconciler: a.rec, Interval: a.cfg.SnapshotInterval}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.ListenAndServe(ctx, addr) })
			g.Go(func() error { return snap.Run(ctx) })
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "listen", "", "Listen address (overrides config)")
	return cmd
}
