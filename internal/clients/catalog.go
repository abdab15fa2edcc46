package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/ashendes/storefront-checkout/internal/patterns"
	"github.com/go-resty/resty/v2"
)

// CatalogClient resolves product details when a line is added to a cart
type CatalogClient struct {
	client  *resty.Client
	baseURL string
	guard   *patterns.Guard
}

func NewCatalogClient(baseURL string) *CatalogClient {
	return &CatalogClient{
		client: resty.New().
			SetTimeout(patterns.DefaultTimeout).
			SetRetryCount(0),
		baseURL: strings.TrimRight(baseURL, "/"),
		guard:   patterns.NewGuard("Catalog", "storefront", 20),
	}
}

func (c *CatalogClient) Product(ctx context.Context, productID string) (*models.Product, error) {
	result, err := c.guard.Do(ctx, func() (interface{}, error) {
		resp, httpErr := c.client.R().
			SetContext(ctx).
			Get(c.baseURL + "/catalog/products/" + url.PathEscape(productID))
		if httpErr != nil {
			return nil, fmt.Errorf("HTTP error: %w", httpErr)
		}
		if resp.StatusCode() == http.StatusNotFound {
			return nil, errors.Join(models.ErrProductNotFound, patterns.ErrRejected)
		}
		if err := statusError("catalog service", resp); err != nil {
			return nil, err
		}

		var product models.Product
		if err := json.Unmarshal(resp.Body(), &product); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		return &product, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Product), nil
}

// Guards returns the breaker protecting the catalog service
func (c *CatalogClient) Guards() []*patterns.Guard {
	return []*patterns.Guard{c.guard}
}
