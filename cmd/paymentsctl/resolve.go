package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nyashahama/learnhub-payments/internal/payments"
)

func newResolveCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "resolve <payment-id>",
		Short: "Grant the entitlement for a payment flagged for review",
		Long: `Grant the entitlement for an approved payment that was recorded without
one. Without --user the payer is correlated again against the current user
directory (useful when the learner signed up after paying). With --user the
given user is assigned after checking it exists.

The entitlement is upgraded under the same never-downgrade rule as the
webhook path.`,
		Example: `  paymentsctl resolve pi_3Pq...
  paymentsctl resolve pi_3Pq... --user 1b4e28ba-2fa1-11d2-883f-0016d3cca427`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			override, err := parseUserFlag(user)
			if err != nil {
				return err
			}
			paymentID := strings.TrimSpace(args[0])
			return withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.reconciler.ResolveDeferred(ctx, paymentID, override)
				if err != nil {
					return err
				}
				printResult(cmd, res)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "Assign this user id instead of re-running correlation")
	return cmd
}

func parseUserFlag(s string) (uuid.NullUUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.NullUUID{}, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.NullUUID{}, fmt.Errorf("--user: %w", err)
	}
	return uuid.NullUUID{UUID: id, Valid: true}, nil
}

func printResult(cmd *cobra.Command, res payments.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "payment:  %s\n", res.PaymentID)
	fmt.Fprintf(out, "outcome:  %s\n", res.Outcome)
	if res.LedgerID != uuid.Nil {
		fmt.Fprintf(out, "ledger:   %s\n", res.LedgerID)
	}
	if res.Tier != "" {
		fmt.Fprintf(out, "tier:     %s\n", res.Tier)
	}
	if res.UserID.Valid {
		fmt.Fprintf(out, "user:     %s\n", res.UserID.UUID)
	}
	if res.ReviewReason != "" {
		fmt.Fprintf(out, "review:   %s\n", res.ReviewReason)
	}
}
