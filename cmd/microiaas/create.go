package main

import (
	"fmt"

	"microiaas"
	"microiaas/cmd/microiaas/ui"

	"github.com/spf13/cobra"
)

func createCmd(actor *string) *cobra.Command {
	var spec microiaas.CreateSpec

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create and start a rented sandbox container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := dial()
			if err != nil {
				return err
			}
			defer a.Close()

			spec.Name = args[0]
			if spec.Tenant == "" {
				spec.Tenant = *actor
			}
			res, err := a.rec.Create(cmd.Context(), spec)
			if err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("%s", res.Message))
			if res.Warning != "" {
				fmt.Println(ui.WarnMsg("%s", res.Warning))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&spec.Tenant, "tenant", "", "Tenant the sandbox is rented to (defaults to --actor)")
	cmd.Flags().StringVar(&spec.Description, "description", "", "Free-form note stored with the rental")
	cmd.Flags().StringVar(&spec.Image, "image", "", "Image to run (default ubuntu:latest)")
	cmd.Flags().StringVar(&spec.CPULimit, "cpu", "", "CPU limit in cores, e.g. 0.5 (default 1)")
	cmd.Flags().StringVar(&spec.MemoryLimit, "memory", "", "Memory limit, e.g. 512m (default 1g)")
	return cmd
}
