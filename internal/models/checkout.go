package models

// DeliveryMethod selects how an order reaches the customer
type DeliveryMethod string

const (
	DeliveryMethodDelivery DeliveryMethod = "delivery"
	DeliveryMethodPickup   DeliveryMethod = "pickup"
)

// CheckoutForm holds the customer details collected on the checkout page.
// Address fields are only required for home delivery.
type CheckoutForm struct {
	FullName       string         `json:"full_name" validate:"required"`
	Email          string         `json:"email" validate:"required,email"`
	Phone          string         `json:"phone" validate:"required,min=10,max=15"`
	Address        string         `json:"address" validate:"required_if=DeliveryMethod delivery"`
	City           string         `json:"city" validate:"required_if=DeliveryMethod delivery"`
	State          string         `json:"state" validate:"required_if=DeliveryMethod delivery"`
	ZipCode        string         `json:"zip_code" validate:"required_if=DeliveryMethod delivery,pincode"`
	Country        string         `json:"country" validate:"required"`
	DeliveryMethod DeliveryMethod `json:"delivery_method" validate:"required,oneof=delivery pickup"`
	DiscountCode   string         `json:"discount_code,omitempty"`
}

// WidgetPrefill is the contact block handed to the payment widget
type WidgetPrefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// WidgetOptions is everything the browser needs to open the payment widget
type WidgetOptions struct {
	Key      string        `json:"key"`
	Amount   int64         `json:"amount"`
	Currency string        `json:"currency"`
	OrderID  string        `json:"order_id"`
	Prefill  WidgetPrefill `json:"prefill"`
}

// PaymentFailureRequest carries the gateway's reason for a failed payment
type PaymentFailureRequest struct {
	Reason string `json:"reason"`
}
