package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/ashendes/storefront-checkout/internal/patterns"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// PaymentClient calls the order-intent and verification endpoints of the payment service
type PaymentClient struct {
	client  *resty.Client
	baseURL string
	orders  *patterns.Guard
	verify  *patterns.Guard
}

func NewPaymentClient(baseURL string) *PaymentClient {
	return &PaymentClient{
		client: resty.New().
			SetTimeout(patterns.SlowServiceTimeout).
			SetRetryCount(0), // No automatic retries, a failed attempt is retried by the customer
		baseURL: strings.TrimRight(baseURL, "/"),
		orders:  patterns.NewGuard("PaymentOrder", "storefront", 10),
		verify:  patterns.NewGuard("PaymentVerify", "storefront", 10),
	}
}

// CreateOrder requests a gateway order for amount rupees
func (p *PaymentClient) CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (*models.GatewayOrder, error) {
	request := models.CreateGatewayOrderRequest{
		Amount:   amount.InexactFloat64(),
		Currency: currency,
	}

	result, err := p.orders.Do(ctx, func() (interface{}, error) {
		resp, httpErr := p.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(request).
			Post(p.baseURL + "/api/razorpay/order")
		if httpErr != nil {
			return nil, fmt.Errorf("HTTP error: %w", httpErr)
		}
		if err := statusError("payment service", resp); err != nil {
			return nil, err
		}

		var order models.GatewayOrder
		if err := json.Unmarshal(resp.Body(), &order); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		if order.ID == "" {
			return nil, fmt.Errorf("payment service returned an order without id")
		}
		return &order, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.GatewayOrder), nil
}

// Verify checks a payment confirmation's signature. A "failure" status is not an error.
func (p *PaymentClient) Verify(ctx context.Context, confirmation models.PaymentConfirmation) (bool, error) {
	result, err := p.verify.Do(ctx, func() (interface{}, error) {
		resp, httpErr := p.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(confirmation).
			Post(p.baseURL + "/api/razorpay/verify")
		if httpErr != nil {
			return nil, fmt.Errorf("HTTP error: %w", httpErr)
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return nil, fmt.Errorf("payment service returned status %d: %s", resp.StatusCode(), resp.String())
		}

		var response models.VerifyResponse
		if err := json.Unmarshal(resp.Body(), &response); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		return response.Status == models.VerifyStatusSuccess, nil
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

// statusError maps non-2xx responses to errors; 4xx responses are marked as rejected
func statusError(service string, resp *resty.Response) error {
	code := resp.StatusCode()
	switch {
	case code >= 200 && code < 300:
		return nil
	case code >= 400 && code < 500:
		return fmt.Errorf("%s returned status %d: %s: %w", service, code, resp.String(), patterns.ErrRejected)
	default:
		return fmt.Errorf("%s returned status %d: %s", service, code, resp.String())
	}
}

// Guards returns the breakers protecting the payment service
func (p *PaymentClient) Guards() []*patterns.Guard {
	return []*patterns.Guard{p.orders, p.verify}
}
