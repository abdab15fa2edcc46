package orders

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ashendes/storefront-checkout/internal/models"
)

// MemoryRepository keeps orders in process memory
type MemoryRepository struct {
	orders    map[string]*models.PersistedOrder
	byPayment map[string]string
	mutex     sync.RWMutex
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders:    make(map[string]*models.PersistedOrder),
		byPayment: make(map[string]string),
	}
}

func (r *MemoryRepository) Create(_ context.Context, order *models.PersistedOrder) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.byPayment[order.PaymentID]; exists {
		return ErrDuplicatePayment
	}
	stored := *order
	r.orders[order.ID] = &stored
	r.byPayment[order.PaymentID] = order.ID
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*models.PersistedOrder, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	order, exists := r.orders[id]
	if !exists {
		return nil, ErrOrderNotFound
	}
	out := *order
	return &out, nil
}

func (r *MemoryRepository) ListByEmail(_ context.Context, email string) ([]*models.PersistedOrder, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var out []*models.PersistedOrder
	for _, order := range r.orders {
		if strings.EqualFold(order.CustomerEmail, email) {
			o := *order
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
