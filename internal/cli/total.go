package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/ashendes/storefront-checkout/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// TotalResult is the breakdown printed by the total command
type TotalResult struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Shipping    decimal.Decimal `json:"shipping"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
	AmountMinor int64           `json:"amount_minor"`
	Currency    string          `json:"currency"`
}

// NewTotalCommand creates the total command
func NewTotalCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		method   string
		discount string
		shipping string
	)

	cmd := &cobra.Command{
		Use:   "total <cart.json>",
		Short: "Compute the amount charged for a cart",
		Long: `Compute the amount charged for a cart file containing a JSON array of
cart lines, using the same pricing as the storefront.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read cart: %w", err)
			}
			var lines []models.CartLine
			if err := json.Unmarshal(data, &lines); err != nil {
				return fmt.Errorf("parse cart: %w", err)
			}

			policy := pricing.DefaultPolicy()
			if shipping != "" {
				if policy.FlatShipping, err = decimal.NewFromString(shipping); err != nil {
					return fmt.Errorf("invalid shipping %q: %w", shipping, err)
				}
			}

			result := computeTotal(policy, lines, models.DeliveryMethod(method), discount)
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "subtotal  %s\n", result.Subtotal.StringFixed(2))
			fmt.Fprintf(out, "shipping  %s\n", result.Shipping.StringFixed(2))
			fmt.Fprintf(out, "discount  %s\n", result.Discount.StringFixed(2))
			fmt.Fprintf(out, "total     %s %s (%d minor units)\n", result.Total.StringFixed(2), result.Currency, result.AmountMinor)
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "delivery-method", string(models.DeliveryMethodDelivery), "delivery or pickup")
	cmd.Flags().StringVar(&discount, "discount-code", "", "discount code (currently has no effect)")
	cmd.Flags().StringVar(&shipping, "shipping", "", "flat shipping fee override")
	return cmd
}

func computeTotal(policy pricing.Policy, lines []models.CartLine, method models.DeliveryMethod, discountCode string) TotalResult {
	total := policy.Total(lines, method, discountCode)
	return TotalResult{
		Subtotal:    policy.Subtotal(lines),
		Shipping:    policy.Shipping(method),
		Discount:    policy.Discount(discountCode),
		Total:       total,
		AmountMinor: pricing.ToMinorUnits(total),
		Currency:    policy.Currency,
	}
}
