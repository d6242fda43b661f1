package main

import (
	"fmt"
	"os"

	"microiaas/config"
	"microiaas/internal/adapter/docker"
	"microiaas/internal/ledger"
	"microiaas/internal/logging"
	"microiaas/internal/reconcile"

	"github.com/spf13/cobra"
)

// app bundles the live clients one CLI invocation needs.
type app struct {
	cfg   *config.Config
	gw    *docker.Gateway
	store *ledger.Store
	rec   *reconcile.Reconciler
}

func dial() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	gw, err := docker.New()
	if err != nil {
		return nil, err
	}
	store, err := ledger.Open(cfg.DBPath())
	if err != nil {
		_ = gw.Close()
		return nil, err
	}
	return &app{cfg: cfg, gw: gw, store: store, rec: reconcile.New(gw, store)}, nil
}

func (a *app) Close() {
	_ = a.store.Close()
	_ = a.gw.Close()
}

func main() {
	var (
		debug bool
		actor string
	)
	if err := logging.Configure(logging.LevelWarn); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "microiaas",
		Short:         "Operator control plane for rented sandbox containers",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelWarn
			if debug {
				level = logging.LevelDebug
			}
			return logging.Configure(level)
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&actor, "actor", os.Getenv("USER"), "Operator name recorded in the activity log")

	root.AddCommand(serveCmd())
	root.AddCommand(createCmd(&actor))
	root.AddCommand(lifecycleCmd("start", "Start stopped containers", reconcile.BulkStart, &actor))
	root.AddCommand(lifecycleCmd("stop", "Stop running containers", reconcile.BulkStop, &actor))
	root.AddCommand(lifecycleCmd("restart", "Restart containers", reconcile.BulkRestart, &actor))
	rm := lifecycleCmd("rm", "Remove containers (rental history is kept)", reconcile.BulkDelete, &actor)
	rm.Aliases = []string{"delete"}
	root.AddCommand(rm)
	root.AddCommand(psCmd())
	root.AddCommand(logsCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(activityCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(snapshotsCmd())
	root.AddCommand(snapshotCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
