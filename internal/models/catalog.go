package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

// Product represents a catalog product
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageRef string          `json:"image_ref"`
	Variants []string        `json:"variants,omitempty"`
	Active   bool            `json:"active"`
}

// HasVariant reports whether key is a known variant; the empty key always matches
func (p Product) HasVariant(key string) bool {
	if key == "" {
		return true
	}
	for _, v := range p.Variants {
		if v == key {
			return true
		}
	}
	return false
}
