package models

// GatewayOrder is the payment-provider record authorizing one checkout attempt.
// Amount is always in minor units (paise).
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateGatewayOrderRequest is the body of POST /api/razorpay/order.
// Amount is in major units (rupees).
type CreateGatewayOrderRequest struct {
	Amount   float64 `json:"amount" binding:"required,gt=0"`
	Currency string  `json:"currency" binding:"required"`
	Receipt  string  `json:"receipt,omitempty"`
}

// PaymentConfirmation is the signed payload returned by the payment widget
type PaymentConfirmation struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

// Verification status constants
const (
	VerifyStatusSuccess = "success"
	VerifyStatusFailure = "failure"
)

// VerifyResponse is the response of POST /api/razorpay/verify
type VerifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
