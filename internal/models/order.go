package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus constants
const (
	OrderStatusPlaced = "placed"
)

// OrderSnapshot is the full order sent to the order service after payment
type OrderSnapshot struct {
	CustomerName  string          `json:"customer_name" binding:"required"`
	CustomerEmail string          `json:"customer_email" binding:"required,email"`
	CustomerPhone string          `json:"customer_phone" binding:"required"`
	Address       string          `json:"address"`
	City          string          `json:"city"`
	Pincode       string          `json:"pincode"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	Items         []CartLine      `json:"items" binding:"required,min=1,dive"`
	PaymentID     string          `json:"payment_id" binding:"required"`
	OrderID       string          `json:"order_id" binding:"required"`
}

// PersistedOrder is an order as stored by the order service
type PersistedOrder struct {
	ID            string          `json:"id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	CustomerPhone string          `json:"customer_phone"`
	Address       string          `json:"address"`
	City          string          `json:"city"`
	Pincode       string          `json:"pincode"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	Items         []CartLine      `json:"items"`
	PaymentID     string          `json:"payment_id"`
	OrderID       string          `json:"order_id"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OrderPlacedEvent is published after an order is stored
type OrderPlacedEvent struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	PaymentID string          `json:"payment_id"`
	Email     string          `json:"customer_email"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
	Items     int             `json:"items"`
	PlacedAt  time.Time       `json:"placed_at"`
}
