package cli

import (
	"fmt"
	"os"

	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/ashendes/storefront-checkout/internal/razorpay"
	"github.com/spf13/cobra"
)

// NewSignCommand creates the sign command. It produces the confirmation
// payload the payment widget would return, for testing verification.
func NewSignCommand(rootOpts *RootOptions) *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "sign <gateway-order-id> <payment-id>",
		Short: "Compute the gateway signature for a payment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("RAZORPAY_KEY_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("a key secret is required (--secret or RAZORPAY_KEY_SECRET)")
			}

			confirmation := models.PaymentConfirmation{
				OrderID:   args[0],
				PaymentID: args[1],
				Signature: razorpay.Signature(args[0], args[1], secret),
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), confirmation)
			}
			fmt.Fprintln(cmd.OutOrStdout(), confirmation.Signature)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "gateway key secret (defaults to RAZORPAY_KEY_SECRET)")
	return cmd
}
