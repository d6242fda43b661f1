package main

import (
	"context"
	"fmt"

	"microiaas/cmd/microiaas/ui"
	"microiaas/internal/reconcile"

	"github.com/spf13/cobra"
)

// lifecycleCmd builds one of the start/stop/restart/rm commands. A single
// argument goes through the single-container operation so warnings surface
// verbatim; several arguments go through the bulk path.
func lifecycleCmd(use, short string, action reconcile.BulkAction, actor *string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " CONTAINER [CONTAINER...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := dial()
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 1 {
				res, err := singleOp(cmd.Context(), a.rec, action, args[0], *actor)
				if err != nil {
					return err
				}
				fmt.Println(ui.SuccessMsg("%s", res.Message))
				if res.Warning != "" {
					fmt.Println(ui.WarnMsg("%s", res.Warning))
				}
				return nil
			}

			res, err := a.rec.Bulk(cmd.Context(), action, args, *actor)
			if err != nil {
				return err
			}
			if res.Failed == 0 {
				fmt.Println(ui.SuccessMsg("%d containers %s", res.Succeeded, pastTense(action)))
				return nil
			}
			fmt.Println(ui.WarnMsg("%d succeeded, %d failed (see activity log)", res.Succeeded, res.Failed))
			return nil
		},
	}
}

func pastTense(action reconcile.BulkAction) string {
	switch action {
	case reconcile.BulkStop:
		return "stopped"
	case reconcile.BulkDelete:
		return "deleted"
	default:
		return string(action) + "ed"
	}
}

func singleOp(ctx context.Context, r *reconcile.Reconciler, action reconcile.BulkAction, id, actor string) (reconcile.Result, error) {
	switch action {
	case reconcile.BulkStart:
		return r.Start(ctx, id, actor)
	case reconcile.BulkStop:
		return r.Stop(ctx, id, actor)
	case reconcile.BulkRestart:
		return r.Restart(ctx, id, actor)
	default:
		return r.Delete(ctx, id, actor)
	}
}
