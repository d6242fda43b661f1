package main

import (
	"fmt"

	"microiaas/cmd/microiaas/ui"

	"github.com/spf13/cobra"
)

func logsCmd() *cobra.Command {
	var tail int

	cmd := &cobra.Command{
		Use:   "logs CONTAINER",
		Short: "Show the tail of a container's output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := dial()
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.rec.Logs(cmd.Context(), args[0], tail)
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Println(ui.Muted("no output"))
				return nil
			}
			fmt.Println(out)
			return nil
		},
	}

	cmd.Flags().IntVar(&tail, "tail", 100, "Number of trailing lines to show")
	return cmd
}
