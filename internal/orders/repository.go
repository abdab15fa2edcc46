package orders

import (
	"context"
	"errors"

	"github.com/ashendes/storefront-checkout/internal/models"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrDuplicatePayment = errors.New("an order for this payment already exists")
)

// Repository stores placed orders
type Repository interface {
	Create(ctx context.Context, order *models.PersistedOrder) error
	Get(ctx context.Context, id string) (*models.PersistedOrder, error)
	ListByEmail(ctx context.Context, email string) ([]*models.PersistedOrder, error)
}
