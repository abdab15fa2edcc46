package pricing

import (
	"testing"

	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func line(price int64, qty int) models.CartLine {
	return models.CartLine{ProductID: "p", UnitPrice: decimal.NewFromInt(price), Quantity: qty}
}

func TestTotal_DeliveryAddsFlatShipping(t *testing.T) {
	p := DefaultPolicy()
	lines := []models.CartLine{line(500, 2)}

	total := p.Total(lines, models.DeliveryMethodDelivery, "")

	assert.True(t, decimal.NewFromInt(1050).Equal(total), "got %s", total)
}

func TestTotal_PickupHasNoShipping(t *testing.T) {
	p := DefaultPolicy()
	lines := []models.CartLine{line(500, 2), line(120, 3)}

	total := p.Total(lines, models.DeliveryMethodPickup, "")

	assert.True(t, decimal.NewFromInt(1360).Equal(total), "got %s", total)
}

func TestTotal_DiscountCodeHasNoEffect(t *testing.T) {
	p := DefaultPolicy()
	lines := []models.CartLine{line(999, 1)}

	withCode := p.Total(lines, models.DeliveryMethodDelivery, "WELCOME10")
	withoutCode := p.Total(lines, models.DeliveryMethodDelivery, "")

	assert.True(t, withCode.Equal(withoutCode))
}

func TestTotal_CustomShipping(t *testing.T) {
	p := Policy{Currency: DefaultCurrency, FlatShipping: decimal.RequireFromString("79.50")}

	total := p.Total([]models.CartLine{line(100, 1)}, models.DeliveryMethodDelivery, "")

	assert.Equal(t, "179.5", total.String())
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(105000), ToMinorUnits(decimal.NewFromInt(1050)))
	assert.Equal(t, int64(1999), ToMinorUnits(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(2), ToMinorUnits(decimal.RequireFromString("0.015")))
	assert.True(t, decimal.RequireFromString("10.5").Equal(FromMinorUnits(1050)))
}
