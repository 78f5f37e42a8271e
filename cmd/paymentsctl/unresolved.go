package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nyashahama/learnhub-payments/internal/db"
)

func newUnresolvedCmd() *cobra.Command {
	var (
		limit  int32
		format string
	)
	cmd := &cobra.Command{
		Use:   "unresolved",
		Short: "List approved payments that granted no entitlement",
		Long: `List approved payments flagged for review, oldest first: payers that
matched no user, amount or currency mismatches, and unknown plans.

Settle a row with "paymentsctl resolve <payment-id>".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				rows, err := a.store.ListUnresolved(ctx, limit)
				if err != nil {
					return err
				}
				return printUnresolved(cmd.OutOrStdout(), rows, format)
			})
		},
	}
	cmd.Flags().Int32VarP(&limit, "limit", "l", 50, "Maximum rows to list")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, json)")
	return cmd
}

type unresolvedRow struct {
	PaymentID   string    `json:"payment_id"`
	Reference   string    `json:"external_reference"`
	PlanTier    string    `json:"plan_tier"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	PayerEmail  string    `json:"payer_email,omitempty"`
	Reason      string    `json:"reason"`
	ApprovedAt  time.Time `json:"approved_at"`
}

func printUnresolved(w io.Writer, rows []db.PaymentLedger, format string) error {
	out := make([]unresolvedRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, unresolvedRow{
			PaymentID:   r.ExternalPaymentID.String,
			Reference:   r.ExternalReference,
			PlanTier:    string(r.PlanTier),
			AmountCents: r.AmountCents,
			Currency:    r.Currency,
			PayerEmail:  r.PayerEmail.String,
			Reason:      r.ReviewReason.String,
			ApprovedAt:  r.UpdatedAt,
		})
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(out) == 0 {
		_, err := fmt.Fprintln(w, "no unresolved payments")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PAYMENT\tTIER\tAMOUNT\tPAYER\tREASON\tAPPROVED")
	for _, r := range out {
		fmt.Fprintf(tw, "%s\t%s\t%d %s\t%s\t%s\t%s\n",
			r.PaymentID, r.PlanTier, r.AmountCents, r.Currency,
			orDash(r.PayerEmail), r.Reason, r.ApprovedAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
