package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/ashendes/storefront-checkout/internal/patterns"
	"github.com/go-resty/resty/v2"
)

// OrdersClient persists confirmed orders through the order service
type OrdersClient struct {
	client  *resty.Client
	baseURL string
	guard   *patterns.Guard
}

func NewOrdersClient(baseURL string) *OrdersClient {
	return &OrdersClient{
		client: resty.New().
			SetTimeout(patterns.DefaultTimeout).
			SetRetryCount(0),
		baseURL: strings.TrimRight(baseURL, "/"),
		guard:   patterns.NewGuard("Orders", "storefront", 10),
	}
}

// AddOrder stores the order snapshot and returns the stored order
func (o *OrdersClient) AddOrder(ctx context.Context, snapshot *models.OrderSnapshot) (*models.PersistedOrder, error) {
	result, err := o.guard.Do(ctx, func() (interface{}, error) {
		resp, httpErr := o.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(snapshot).
			Post(o.baseURL + "/api/orders")
		if httpErr != nil {
			return nil, fmt.Errorf("HTTP error: %w", httpErr)
		}
		if err := statusError("order service", resp); err != nil {
			return nil, err
		}

		var order models.PersistedOrder
		if err := json.Unmarshal(resp.Body(), &order); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		return &order, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.PersistedOrder), nil
}

// Guards returns the breaker protecting the order service
func (o *OrdersClient) Guards() []*patterns.Guard {
	return []*patterns.Guard{o.guard}
}
