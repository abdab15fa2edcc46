package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/ashendes/storefront-checkout/internal/checkout"
	"github.com/ashendes/storefront-checkout/internal/patterns"
	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

const operatorHeader = "X-Operator-Token"

// NewAttemptsCommand creates the attempts command. With --pending it lists
// payments the customer completed that have no stored order.
func NewAttemptsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		baseURL string
		token   string
		states  []string
		pending bool
	)

	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "List storefront checkout attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = os.Getenv("CHECKOUT_OPERATOR_TOKEN")
			}
			if token == "" {
				return fmt.Errorf("an operator token is required (--token or CHECKOUT_OPERATOR_TOKEN)")
			}
			attempts, err := fetchAttempts(cmd, baseURL, token, states, pending)
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), attempts)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATE\tAMOUNT\tPAYMENT\tORDER\tUPDATED")
			for _, a := range attempts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					a.ID, a.State, a.Amount.StringFixed(2), dash(a.PaymentID), dash(a.PersistedOrderID),
					a.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8000", "storefront base URL")
	cmd.Flags().StringVar(&token, "token", "", "operator token (defaults to $CHECKOUT_OPERATOR_TOKEN)")
	cmd.Flags().StringSliceVar(&states, "state", nil, "filter by state (repeatable)")
	cmd.Flags().BoolVar(&pending, "pending", false, "only paid attempts without a stored order")
	return cmd
}

func fetchAttempts(cmd *cobra.Command, baseURL, token string, states []string, pending bool) ([]checkout.Attempt, error) {
	req := resty.New().
		SetTimeout(patterns.DefaultTimeout).
		R().
		SetContext(cmd.Context()).
		SetHeader(operatorHeader, token)
	if pending {
		req.SetQueryParam("pending", "true")
	}
	for _, s := range states {
		req.QueryParam.Add("state", s)
	}

	resp, err := req.Get(baseURL + "/api/checkout/attempts")
	if err != nil {
		return nil, fmt.Errorf("HTTP error: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("storefront returned status %d: %s", resp.StatusCode(), resp.String())
	}

	var body struct {
		Attempts []checkout.Attempt `json:"attempts"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return body.Attempts, nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
