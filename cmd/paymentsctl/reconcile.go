package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nyashahama/learnhub-payments/internal/payments"
)

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <payment-id>",
		Short: "Run the webhook reconciliation for one payment now",
		Long: `Fetch the payment from the gateway and apply it exactly as a webhook
delivery would. Safe to repeat: an already-applied payment reports
"duplicate". Use it when deliveries were lost or the endpoint was down longer
than the gateway retries.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := payments.Envelope{Topic: "payment", PaymentID: strings.TrimSpace(args[0])}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.reconciler.Reconcile(ctx, env)
				if err != nil {
					return err
				}
				printResult(cmd, res)
				return nil
			})
		},
	}
}
