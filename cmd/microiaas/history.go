package main

import (
	"fmt"
	"strconv"
	"time"

	"microiaas/cmd/microiaas/ui"

	"github.com/spf13/cobra"
)

const timeLayout = "2006-01-02 15:04:05"

func activityCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the newest activity log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := dial()
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.store.ListRecentActivity(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println(ui.Muted("no activity recorded"))
				return nil
			}

			rows := make([][]string, len(entries))
			for i, e := range entries {
				name := e.ContainerName
				if name == "" {
					name = "-"
				}
				actor := e.Actor
				if actor == "" {
					actor = "-"
				}
				rows[i] = []string{
					e.OccurredAt.Local().Format(timeLayout),
					e.Action,
					name,
					actor,
					string(e.Outcome),
					e.Detail,
				}
			}
			fmt.Println(ui.Table(
				[]string{"Time", "Action", "Container", "Actor", "Outcome", "Detail"},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to show")
	return cmd
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the newest rental records, deleted ones included",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := dial()
			if err != nil {
				return err
			}
			defer a.Close()

			rentals, err := a.store.ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(rentals) == 0 {
				fmt.Println(ui.Muted("no rentals recorded"))
				return nil
			}

			rows := make([][]string, len(rentals))
			for i, r := range rentals {
				rows[i] = []string{
					r.ContainerName,
					r.Tenant,
					ui.Status(string(r.Status)),
					r.Image,
					r.CPULimit,
					r.MemoryLimit,
					r.CreatedAt.Local().Format(timeLayout),
					r.LastActivity.Local().Format(timeLayout),
				}
			}
			fmt.Println(ui.Table(
				[]string{"Name", "Tenant", "Status", "Image", "CPU", "Memory", "Created", "Last Activity"},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rentals to show")
	return cmd
}

func snapshotsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Show the newest fleet snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := dial()
			if err != nil {
				return err
			}
			defer a.Close()

			snaps, err := a.store.ListRecentSnapshots(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				fmt.Println(ui.Muted("no snapshots recorded"))
				return nil
			}

			rows := make([][]string, len(snaps))
			for i, s := range snaps {
				rows[i] = []string{
					s.TakenAt.Local().Format(timeLayout),
					strconv.Itoa(s.Total),
					strconv.Itoa(s.Running),
					strconv.Itoa(s.Stopped),
				}
			}
			fmt.Println(ui.Table(
				[]string{"Taken", "Total", "Running", "Stopped"},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum snapshots to show")
	return cmd
}

func snapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Take and persist one fleet snapshot now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := dial()
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.rec.SnapshotFleet(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("snapshot taken at %s: %d total, %d running, %d stopped",
				snap.TakenAt.Local().Format(time.RFC3339), snap.Total, snap.Running, snap.Stopped))
			return nil
		},
	}
}
