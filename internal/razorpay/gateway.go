package razorpay

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/ashendes/storefront-checkout/internal/patterns"
	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// DefaultBaseURL is the public gateway API
const DefaultBaseURL = "https://api.razorpay.com/v1"

var ErrGatewayRejected = errors.New("gateway rejected the order")

// Gateway creates orders with the payment provider
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*models.GatewayOrder, error)
}

type createOrderBody struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// Client talks to the gateway REST API with basic auth
type Client struct {
	http    *resty.Client
	baseURL string
	guard   *patterns.Guard
}

// NewClient builds a gateway client authenticated with keyID and keySecret
func NewClient(baseURL, keyID, keySecret string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http: resty.New().
			SetTimeout(patterns.SlowServiceTimeout).
			SetRetryCount(0).
			SetBasicAuth(keyID, keySecret),
		baseURL: baseURL,
		guard:   patterns.NewGuard("Razorpay", "payment-service", 20),
	}
}

func (c *Client) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*models.GatewayOrder, error) {
	body := createOrderBody{Amount: amountMinor, Currency: currency, Receipt: receipt}

	result, err := c.guard.Do(ctx, func() (interface{}, error) {
		resp, httpErr := c.http.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			Post(c.baseURL + "/orders")
		if httpErr != nil {
			return nil, fmt.Errorf("HTTP error: %w", httpErr)
		}

		if resp.StatusCode() >= 400 && resp.StatusCode() < 500 {
			var gwErr errorResponse
			_ = json.Unmarshal(resp.Body(), &gwErr)
			return nil, fmt.Errorf("%w (%w): %s", ErrGatewayRejected, patterns.ErrRejected, gwErr.Error.Description)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode(), resp.String())
		}

		var order orderResponse
		if err := json.Unmarshal(resp.Body(), &order); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		return &models.GatewayOrder{ID: order.ID, Amount: order.Amount, Currency: order.Currency}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.GatewayOrder), nil
}

// Sandbox issues gateway orders locally. It is used when no gateway key is
// configured so the checkout flow can run end to end in development.
type Sandbox struct{}

func (Sandbox) CreateOrder(_ context.Context, amountMinor int64, currency, receipt string) (*models.GatewayOrder, error) {
	if amountMinor <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrGatewayRejected)
	}
	buf := make([]byte, 7)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate order id: %w", err)
	}
	order := &models.GatewayOrder{
		ID:       "order_" + hex.EncodeToString(buf),
		Amount:   amountMinor,
		Currency: currency,
	}
	log.WithFields(log.Fields{
		"gateway_order_id": order.ID,
		"amount":           amountMinor,
		"receipt":          receipt,
	}).Debug("Sandbox gateway order created")
	return order, nil
}
