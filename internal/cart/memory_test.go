package cart

import (
	"context"
	"testing"

	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLine(productID, variant string, price int64, qty int) models.CartLine {
	return models.CartLine{
		ProductID:  productID,
		VariantKey: variant,
		Name:       "Product " + productID,
		UnitPrice:  decimal.NewFromInt(price),
		Quantity:   qty,
	}
}

func TestMemoryStore_AddMergesSameVariant(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Add(ctx, "s1", newLine("p1", "M", 500, 1))
	require.NoError(t, err)
	lines, err := store.Add(ctx, "s1", newLine("p1", "M", 500, 2))
	require.NoError(t, err)

	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestMemoryStore_DifferentVariantsAreSeparateLines(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Add(ctx, "s1", newLine("p1", "M", 500, 1))
	require.NoError(t, err)
	lines, err := store.Add(ctx, "s1", newLine("p1", "L", 550, 1))
	require.NoError(t, err)

	assert.Len(t, lines, 2)
}

func TestMemoryStore_RejectsInvalidLines(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Add(ctx, "s1", newLine("p1", "", 500, 0))
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = store.Add(ctx, "s1", newLine("p1", "", -1, 1))
	assert.ErrorIs(t, err, ErrInvalidPrice)

	lines, err := store.Lines(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestMemoryStore_UpdateQuantity(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, err := store.Add(ctx, "s1", newLine("p1", "", 500, 1))
	require.NoError(t, err)

	lines, err := store.UpdateQuantity(ctx, "s1", "p1", "", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, lines[0].Quantity)

	_, err = store.UpdateQuantity(ctx, "s1", "p1", "", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = store.UpdateQuantity(ctx, "s1", "missing", "", 2)
	assert.ErrorIs(t, err, ErrLineNotFound)
}

func TestMemoryStore_RemoveAndClear(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, _ = store.Add(ctx, "s1", newLine("p1", "", 500, 1))
	_, _ = store.Add(ctx, "s1", newLine("p2", "", 200, 1))

	lines, err := store.Remove(ctx, "s1", "p1", "")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "p2", lines[0].ProductID)

	require.NoError(t, store.Clear(ctx, "s1"))
	lines, err = store.Lines(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestMemoryStore_LinesReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, _ = store.Add(ctx, "s1", newLine("p1", "", 500, 1))

	lines, _ := store.Lines(ctx, "s1")
	lines[0].Quantity = 99

	again, _ := store.Lines(ctx, "s1")
	assert.Equal(t, 1, again[0].Quantity)
}
