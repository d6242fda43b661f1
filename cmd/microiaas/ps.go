package main

import (
	"fmt"
	"strconv"
	"time"

	"microiaas/cmd/microiaas/ui"

	"github.com/spf13/cobra"
)

func psCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "ps",
		Aliases: []string{"list", "ls"},
		Short:   "List containers with live utilization",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := dial()
			if err != nil {
				return err
			}
			defer a.Close()

			fleet, err := a.rec.ListFleet(cmd.Context(), all)
			if err != nil {
				return err
			}
			if len(fleet) == 0 {
				fmt.Println(ui.Muted("no containers"))
				return nil
			}

			rows := make([][]string, len(fleet))
			for i, e := range fleet {
				rows[i] = []string{
					e.Container.Name,
					shortID(e.Container.ID),
					e.Container.Image,
					ui.Status(e.Container.State),
					fmt.Sprintf("%.1f%%", e.Usage.CPUPercent),
					fmt.Sprintf("%d MB (%.1f%%)", e.Usage.MemoryUsedMB, e.Usage.MemoryPercent),
					formatUptime(e.UptimeSeconds, e.Container.Running),
				}
			}
			fmt.Println(ui.Table(
				[]string{"Name", "ID", "Image", "State", "CPU", "Memory", "Uptime"},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include stopped containers")
	return cmd
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func formatUptime(seconds int64, running bool) string {
	if !running || seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds) * time.Second
	switch {
	case d >= 24*time.Hour:
		return strconv.FormatInt(seconds/86400, 10) + "d" + strconv.FormatInt(seconds%86400/3600, 10) + "h"
	case d >= time.Hour:
		return strconv.FormatInt(seconds/3600, 10) + "h" + strconv.FormatInt(seconds%3600/60, 10) + "m"
	case d >= time.Minute:
		return strconv.FormatInt(seconds/60, 10) + "m"
	default:
		return strconv.FormatInt(seconds, 10) + "s"
	}
}
