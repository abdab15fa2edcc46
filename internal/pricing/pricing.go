package pricing

import (
	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// DefaultCurrency is the only currency the storefront charges in
const DefaultCurrency = "INR"

// DefaultFlatShipping is added to every home-delivery order
var DefaultFlatShipping = decimal.NewFromInt(50)

// Policy computes what a cart costs
type Policy struct {
	Currency     string
	FlatShipping decimal.Decimal
}

// DefaultPolicy returns the INR policy with the default flat shipping fee
func DefaultPolicy() Policy {
	return Policy{Currency: DefaultCurrency, FlatShipping: DefaultFlatShipping}
}

// Subtotal sums price * quantity over all lines
func (p Policy) Subtotal(lines []models.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// Shipping returns the flat fee for delivery and zero for pickup
func (p Policy) Shipping(method models.DeliveryMethod) decimal.Decimal {
	if method == models.DeliveryMethodDelivery {
		return p.FlatShipping
	}
	return decimal.Zero
}

// Discount always returns zero. Discount codes are accepted by the form but
// have no server-side rules yet.
func (p Policy) Discount(code string) decimal.Decimal {
	if code != "" {
		log.WithField("discount_code", code).Info("Discount code ignored")
	}
	return decimal.Zero
}

// Total is the amount charged for a checkout attempt
func (p Policy) Total(lines []models.CartLine, method models.DeliveryMethod, discountCode string) decimal.Decimal {
	return p.Subtotal(lines).
		Add(p.Shipping(method)).
		Sub(p.Discount(discountCode))
}

// ToMinorUnits converts rupees to paise
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts paise to rupees
func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}
