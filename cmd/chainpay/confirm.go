package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smallbiznis/chainpay/internal/reconcile"
)

func newConfirmCmd() *cobra.Command {
	var (
		noDryRun  bool
		eventSlug string
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Run one reconciliation pass over unconfirmed payments",
		Long: `Walks every unconfirmed payment, verifies its pending claims against
the remote verifier and applies the verdicts.

Dry run is the default: verdicts are computed and logged but nothing is
written. Pass --no-dry-run to apply them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(func(engine *reconcile.Engine) error {
				summary, err := engine.Run(context.Background(), reconcile.RunOptions{
					DryRun:    !noDryRun,
					EventSlug: eventSlug,
					Verbose:   verbose,
				})
				if err != nil {
					return err
				}
				mode := "dry run"
				if noDryRun {
					mode = "live"
				}
				fmt.Printf("%s: %d events, %d payments seen, %d confirmed, %d claims rejected, %d deferred, %d unavailable, %d errors\n",
					mode,
					summary.EventsProcessed,
					summary.PaymentsSeen,
					summary.PaymentsConfirmed,
					summary.ClaimsRejected,
					summary.ClaimsDeferred,
					summary.ClaimsUnavailable,
					summary.Errors,
				)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&noDryRun, "no-dry-run", false, "apply state changes instead of logging them")
	cmd.Flags().StringVar(&eventSlug, "event-slug", "", "restrict the run to a single event")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every claim verdict at info level")
	return cmd
}
