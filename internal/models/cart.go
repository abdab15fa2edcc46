package models

import "github.com/shopspring/decimal"

// CartLine is one {product, variant, quantity} entry of a shopping cart
type CartLine struct {
	ProductID  string          `json:"product_id" binding:"required"`
	VariantKey string          `json:"variant_key,omitempty"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity" binding:"required,gte=1"`
	ImageRef   string          `json:"image_ref,omitempty"`
}

// LineTotal returns unit price times quantity
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// SameItem reports whether two lines refer to the same product variant
func (l CartLine) SameItem(productID, variantKey string) bool {
	return l.ProductID == productID && l.VariantKey == variantKey
}

// AddCartLineRequest is the body of POST /api/cart
type AddCartLineRequest struct {
	ProductID  string `json:"product_id" binding:"required"`
	VariantKey string `json:"variant_key"`
	Quantity   int    `json:"quantity" binding:"required,gte=1"`
}

// UpdateQuantityRequest is the body of PATCH /api/cart/items/:productId
type UpdateQuantityRequest struct {
	VariantKey string `json:"variant_key"`
	Quantity   int    `json:"quantity" binding:"required,gte=1"`
}

// CartResponse is the cart view returned by the storefront
type CartResponse struct {
	Lines    []CartLine      `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Currency string          `json:"currency"`
}
