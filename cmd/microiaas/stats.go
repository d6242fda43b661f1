package main

import (
	"fmt"

	"microiaas/cmd/microiaas/ui"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats CONTAINER",
		Short: "Show one utilization sample for a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := dial()
			if err != nil {
				return err
			}
			defer a.Close()

			usage, err := a.rec.ContainerStats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Print(ui.KeyValues("",
				ui.KV("CPU", fmt.Sprintf("%.1f%%", usage.CPUPercent)),
				ui.KV("Memory", fmt.Sprintf("%d MB (%.1f%%)", usage.MemoryUsedMB, usage.MemoryPercent)),
				ui.KV("Network RX", fmt.Sprintf("%d MB", usage.NetworkRxMB)),
				ui.KV("Network TX", fmt.Sprintf("%d MB", usage.NetworkTxMB)),
			))
			return nil
		},
	}
}
