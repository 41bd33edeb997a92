// Command checkoutctl is the operator tool for the checkout service: fee quotes, payment
// signatures, webhook checksums, admin tokens and back-office order actions.
package main

import (
	"fmt"
	"os"

	"github.com/corray333/backend-labs/checkout/internal/config"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "checkoutctl",
		Short:   "Operate the checkout service",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.MustInit()
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(feesCmd())
	rootCmd.AddCommand(signCmd())
	rootCmd.AddCommand(checksumCmd())
	rootCmd.AddCommand(verifyWebhookCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(ordersCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
