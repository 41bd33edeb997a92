package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/corray333/backend-labs/checkout/internal/config"
	"github.com/corray333/backend-labs/checkout/internal/service/services/pricing"
	"github.com/corray333/backend-labs/checkout/internal/service/services/signing"
	"github.com/corray333/backend-labs/checkout/internal/service/services/webhook"
	"github.com/corray333/backend-labs/checkout/pkg/http/middleware/adminauth"
	"github.com/spf13/cobra"
)

func feesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fees",
		Short: "Quote processing fees for a cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			subtotal, _ := cmd.Flags().GetInt64("subtotal")
			shipping, _ := cmd.Flags().GetInt64("shipping")

			calc := pricing.NewCalculator(cfg.Payment.FeePercentage, cfg.Payment.FixedFee)

			return printJSON(cmd.OutOrStdout(), calc.Calculate(subtotal, shipping))
		},
	}

	cmd.Flags().Int64("subtotal", 0, "Cart subtotal in minor units")
	cmd.Flags().Int64("shipping", 0, "Shipping cost in minor units")

	return cmd
}

func signCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a payment initiation with PAYMENT_PRIVATE_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			req := signing.Request{}
			req.Amount, _ = cmd.Flags().GetInt64("amount")
			req.Currency, _ = cmd.Flags().GetString("currency")
			req.Reference, _ = cmd.Flags().GetString("reference")
			req.CustomerEmail, _ = cmd.Flags().GetString("email")

			ts := time.Now().UnixMilli()
			sig, err := signing.NewSigner(cfg.Payment.PrivateKey).Sign(req, ts)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), signing.Result{Signature: sig, Timestamp: ts})
		},
	}

	cmd.Flags().Int64("amount", 0, "Amount in minor units")
	cmd.Flags().String("currency", "COP", "ISO currency code")
	cmd.Flags().String("reference", "", "Order number")
	cmd.Flags().String("email", "", "Customer email")
	_ = cmd.MarkFlagRequired("reference")

	return cmd
}

func checksumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checksum [file]",
		Short: "Print the webhook checksum of a payload, reading stdin when no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			raw, err := readPayload(cmd, args)
			if err != nil {
				return err
			}

			v := webhook.NewVerifier(cfg.Payment.WebhookSecret)
			if !v.Configured() {
				return webhook.ErrNotConfigured
			}

			fmt.Fprintln(cmd.OutOrStdout(), v.Checksum(raw))

			return nil
		},
	}
}

func verifyWebhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-webhook [file]",
		Short: "Verify a captured webhook payload against its checksum and decode it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			raw, err := readPayload(cmd, args)
			if err != nil {
				return err
			}

			checksum, _ := cmd.Flags().GetString("checksum")
			v := webhook.NewVerifier(cfg.Payment.WebhookSecret)
			if err := v.Verify(raw, checksum); err != nil {
				return err
			}

			ev, err := v.Parse(raw)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), ev)
		},
	}

	cmd.Flags().String("checksum", "", "Value of the X-Event-Checksum header")
	_ = cmd.MarkFlagRequired("checksum")

	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if ttl == 0 {
				ttl = cfg.Admin.TokenTTL
			}

			token, err := adminauth.IssueToken(cfg.Admin.JWTSecret, subject, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)

			return nil
		},
	}

	cmd.Flags().String("subject", "operator", "Token subject")
	cmd.Flags().Duration("ttl", 0, "Token lifetime (defaults to admin.token_ttl)")

	return cmd
}

func readPayload(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 {
		return io.ReadAll(cmd.InOrStdin())
	}

	return os.ReadFile(args[0])
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
