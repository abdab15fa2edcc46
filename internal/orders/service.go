package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/ashendes/storefront-checkout/internal/metrics"
	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Service places orders and serves order history
type Service struct {
	repo      Repository
	publisher *Publisher
	now       func() time.Time
}

func NewService(repo Repository, publisher *Publisher) *Service {
	if publisher == nil {
		publisher = &Publisher{}
	}
	return &Service{repo: repo, publisher: publisher, now: time.Now}
}

// Place stores a confirmed order. The payment id is taken from the snapshot
// as given; it is never generated here.
func (s *Service) Place(ctx context.Context, snapshot *models.OrderSnapshot) (*models.PersistedOrder, error) {
	order := &models.PersistedOrder{
		ID:            uuid.New().String(),
		CustomerName:  snapshot.CustomerName,
		CustomerEmail: snapshot.CustomerEmail,
		CustomerPhone: snapshot.CustomerPhone,
		Address:       snapshot.Address,
		City:          snapshot.City,
		Pincode:       snapshot.Pincode,
		Total:         snapshot.Total,
		Currency:      snapshot.Currency,
		Items:         snapshot.Items,
		PaymentID:     snapshot.PaymentID,
		OrderID:       snapshot.OrderID,
		Status:        models.OrderStatusPlaced,
		CreatedAt:     s.now().UTC(),
	}
	if order.Currency == "" {
		order.Currency = "INR"
	}

	if err := s.repo.Create(ctx, order); err != nil {
		metrics.OrdersTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("create order: %w", err)
	}
	metrics.OrdersTotal.WithLabelValues(order.Status).Inc()

	log.WithFields(log.Fields{
		"id":               order.ID,
		"gateway_order_id": order.OrderID,
		"payment_id":       order.PaymentID,
		"items":            len(order.Items),
		"total":            order.Total.String(),
	}).Info("Order placed")

	if err := s.publisher.OrderPlaced(ctx, order); err != nil {
		log.WithField("id", order.ID).WithError(err).Warn("Failed to publish order event")
	}
	return order, nil
}

// Get returns one order
func (s *Service) Get(ctx context.Context, id string) (*models.PersistedOrder, error) {
	return s.repo.Get(ctx, id)
}

// History returns a customer's orders, newest first
func (s *Service) History(ctx context.Context, email string) ([]*models.PersistedOrder, error) {
	orders, err := s.repo.ListByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []*models.PersistedOrder{}
	}
	return orders, nil
}
