package cart

import (
	"context"
	"errors"

	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidPrice    = errors.New("unit price must not be negative")
	ErrLineNotFound    = errors.New("cart line not found")
)

// Store holds one cart per session
type Store interface {
	Lines(ctx context.Context, sessionID string) ([]models.CartLine, error)
	Add(ctx context.Context, sessionID string, line models.CartLine) ([]models.CartLine, error)
	UpdateQuantity(ctx context.Context, sessionID, productID, variantKey string, quantity int) ([]models.CartLine, error)
	Remove(ctx context.Context, sessionID, productID, variantKey string) ([]models.CartLine, error)
	Clear(ctx context.Context, sessionID string) error
}

// ProductResolver looks up the catalog entry for a product
type ProductResolver interface {
	Product(ctx context.Context, productID string) (*models.Product, error)
}

func validateLine(line models.CartLine) error {
	if line.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if line.UnitPrice.LessThan(decimal.Zero) {
		return ErrInvalidPrice
	}
	return nil
}

// addLine merges line into lines, summing quantities of the same product variant
func addLine(lines []models.CartLine, line models.CartLine) ([]models.CartLine, error) {
	if err := validateLine(line); err != nil {
		return nil, err
	}
	for i := range lines {
		if lines[i].SameItem(line.ProductID, line.VariantKey) {
			lines[i].Quantity += line.Quantity
			lines[i].UnitPrice = line.UnitPrice
			return lines, nil
		}
	}
	return append(lines, line), nil
}

func updateQuantity(lines []models.CartLine, productID, variantKey string, quantity int) ([]models.CartLine, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	for i := range lines {
		if lines[i].SameItem(productID, variantKey) {
			lines[i].Quantity = quantity
			return lines, nil
		}
	}
	return nil, ErrLineNotFound
}

func removeLine(lines []models.CartLine, productID, variantKey string) ([]models.CartLine, error) {
	for i := range lines {
		if lines[i].SameItem(productID, variantKey) {
			return append(lines[:i], lines[i+1:]...), nil
		}
	}
	return nil, ErrLineNotFound
}

func copyLines(lines []models.CartLine) []models.CartLine {
	out := make([]models.CartLine, len(lines))
	copy(out, lines)
	return out
}
