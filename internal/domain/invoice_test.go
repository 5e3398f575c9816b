package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDraft(t *testing.T) *Invoice {
	t.Helper()
	inv, err := NewInvoice(uuid.New(), decimal.RequireFromString("0.08"))
	require.NoError(t, err)
	return inv
}

func TestNewInvoice_RejectsBadTaxRate(t *testing.T) {
	_, err := NewInvoice(uuid.New(), decimal.RequireFromString("-0.01"))
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = NewInvoice(uuid.New(), decimal.RequireFromString("1.5"))
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestInvoice_AddAndRemoveItem(t *testing.T) {
	inv := newDraft(t)
	product := &Product{ID: "SKU-1", Price: decimal.NewFromInt(50)}

	require.NoError(t, inv.AddItem(product, 2))
	require.NoError(t, inv.AddItem(product, 3))
	assert.Equal(t, 5, inv.ItemCount())
	assert.True(t, decimal.NewFromInt(50).Equal(inv.Items[0].UnitPriceSnapshot))
	assert.False(t, inv.Items[0].Subtotal.Valid)

	assert.True(t, errors.Is(inv.AddItem(product, 0), ErrValidation))

	require.NoError(t, inv.RemoveItem(0))
	require.Len(t, inv.Items, 1)
	assert.Equal(t, 3, inv.Items[0].Quantity)

	assert.True(t, errors.Is(inv.RemoveItem(1), ErrNotFound))
	assert.True(t, errors.Is(inv.RemoveItem(-1), ErrNotFound))
}

func TestInvoice_RemoveItemLeavesEarlierSliceIntact(t *testing.T) {
	inv := newDraft(t)
	for _, id := range []string{"A", "B", "C"} {
		require.NoError(t, inv.AddItem(&Product{ID: id, Price: decimal.NewFromInt(1)}, 1))
	}
	before := inv.Items

	require.NoError(t, inv.RemoveItem(0))

	assert.Equal(t, []string{"A", "B", "C"}, []string{before[0].ProductID, before[1].ProductID, before[2].ProductID})
	require.Len(t, inv.Items, 2)
	assert.Equal(t, "B", inv.Items[0].ProductID)
	assert.Equal(t, "C", inv.Items[1].ProductID)
}

func TestInvoice_AddItemQuantityRange(t *testing.T) {
	inv := newDraft(t)
	product := &Product{ID: "SKU-1", Price: decimal.NewFromInt(1)}

	assert.True(t, errors.Is(inv.AddItem(product, MaxQuantity+1), ErrValidation))
	assert.NoError(t, inv.AddItem(product, MaxQuantity))
}

func TestInvoice_StateMachine(t *testing.T) {
	inv := newDraft(t)
	now := time.Now()

	err := inv.MarkFinalized(decimal.Zero, decimal.Zero, decimal.Zero, now)
	assert.True(t, errors.Is(err, ErrInvalidState), "empty invoice cannot be finalized")

	assert.True(t, errors.Is(inv.MarkCancelled(now), ErrInvalidState), "draft cannot be cancelled")

	require.NoError(t, inv.AddItem(&Product{ID: "SKU-1", Price: decimal.NewFromInt(10)}, 1))
	require.NoError(t, inv.MarkFinalized(decimal.NewFromInt(10), decimal.RequireFromString("0.80"), decimal.RequireFromString("10.80"), now))
	assert.Equal(t, InvoiceFinalized, inv.Status)

	product := &Product{ID: "SKU-2", Price: decimal.NewFromInt(1)}
	assert.True(t, errors.Is(inv.AddItem(product, 1), ErrInvalidState))
	assert.True(t, errors.Is(inv.RemoveItem(0), ErrInvalidState))

	require.NoError(t, inv.MarkCancelled(now))
	assert.Equal(t, InvoiceCancelled, inv.Status)
	assert.True(t, errors.Is(inv.MarkCancelled(now), ErrInvalidState))
}

func TestInvoice_CloneIsDeep(t *testing.T) {
	inv := newDraft(t)
	require.NoError(t, inv.AddItem(&Product{ID: "SKU-1", Price: decimal.NewFromInt(10)}, 1))

	cp := inv.Clone()
	cp.Items[0].Quantity = 99
	require.NoError(t, cp.AddItem(&Product{ID: "SKU-2", Price: decimal.NewFromInt(1)}, 1))

	assert.Equal(t, 1, inv.Items[0].Quantity)
	assert.Len(t, inv.Items, 1)
}

func TestInvoice_FrozenTotalsRoundTripThroughJSON(t *testing.T) {
	inv := newDraft(t)
	require.NoError(t, inv.AddItem(&Product{ID: "SKU-1", Price: decimal.NewFromInt(50)}, 5))
	inv.Items[0].DiscountedUnitPrice = decimal.NewNullDecimal(decimal.NewFromInt(40))
	inv.Items[0].Subtotal = decimal.NewNullDecimal(decimal.RequireFromString("200.00"))
	require.NoError(t, inv.MarkFinalized(
		decimal.RequireFromString("200.00"),
		decimal.RequireFromString("16.00"),
		decimal.RequireFromString("216.00"),
		time.Now().UTC(),
	))

	data, err := json.Marshal(inv)
	require.NoError(t, err)

	var loaded Invoice
	require.NoError(t, json.Unmarshal(data, &loaded))

	assert.Equal(t, InvoiceFinalized, loaded.Status)
	assert.True(t, inv.Subtotal.Decimal.Equal(loaded.Subtotal.Decimal))
	assert.True(t, inv.Tax.Decimal.Equal(loaded.Tax.Decimal))
	assert.True(t, inv.Total.Decimal.Equal(loaded.Total.Decimal))
	assert.True(t, loaded.Items[0].Subtotal.Valid)
	assert.Equal(t, "216.00", loaded.Total.Decimal.StringFixed(2))
}
