package checkout

import (
	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/shopspring/decimal"
)

// Screen is what the storefront should render after a checkout call
type Screen string

const (
	ScreenEmptyCart    Screen = "empty_cart"
	ScreenForm         Screen = "form"
	ScreenPayment      Screen = "payment"
	ScreenConfirmation Screen = "confirmation"
)

// Toast is a transient notification
type Toast struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Summary is the priced cart shown beside the form
type Summary struct {
	Lines    []models.CartLine `json:"lines"`
	Subtotal decimal.Decimal   `json:"subtotal"`
	Shipping decimal.Decimal   `json:"shipping"`
	Discount decimal.Decimal   `json:"discount"`
	Total    decimal.Decimal   `json:"total"`
	Currency string            `json:"currency"`
}

// Confirmation is what the customer sees once the gateway reports success.
// PaymentID is kept even if the order is never stored.
type Confirmation struct {
	GatewayOrderID string            `json:"gateway_order_id"`
	PaymentID      string            `json:"payment_id"`
	Total          decimal.Decimal   `json:"total"`
	Currency       string            `json:"currency"`
	Items          []models.CartLine `json:"items"`
	CustomerName   string            `json:"customer_name"`
	CustomerEmail  string            `json:"customer_email"`
	DeliveryMethod string            `json:"delivery_method"`
}

// Outcome is the result of one orchestrator call
type Outcome struct {
	Screen       Screen                `json:"screen"`
	AttemptID    string                `json:"attempt_id,omitempty"`
	State        State                 `json:"state,omitempty"`
	Submitting   bool                  `json:"submitting"`
	Toast        *Toast                `json:"toast,omitempty"`
	FieldErrors  FieldErrors           `json:"field_errors,omitempty"`
	Summary      *Summary              `json:"summary,omitempty"`
	Widget       *models.WidgetOptions `json:"widget,omitempty"`
	Confirmation *Confirmation         `json:"confirmation,omitempty"`
}

func errorToast(message string) *Toast {
	return &Toast{Kind: "error", Message: message}
}

func confirmationOutcome(a Attempt) *Outcome {
	c := &Confirmation{
		Total:          a.Amount,
		Currency:       a.Currency,
		Items:          a.Items,
		PaymentID:      a.PaymentID,
		CustomerName:   a.Form.FullName,
		CustomerEmail:  a.Form.Email,
		DeliveryMethod: string(a.Form.DeliveryMethod),
	}
	if a.GatewayOrder != nil {
		c.GatewayOrderID = a.GatewayOrder.ID
	}
	return &Outcome{
		Screen:       ScreenConfirmation,
		AttemptID:    a.ID,
		State:        a.State,
		Confirmation: c,
	}
}
