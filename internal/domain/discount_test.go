package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscountRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    DiscountRule
		wantErr bool
	}{
		{name: "percentage ok", rule: DiscountRule{Kind: DiscountPercentage, Rate: decimal.NewFromInt(10)}},
		{name: "percentage zero", rule: DiscountRule{Kind: DiscountPercentage, Rate: decimal.Zero}},
		{name: "percentage hundred", rule: DiscountRule{Kind: DiscountPercentage, Rate: decimal.NewFromInt(100)}},
		{name: "rate above hundred", rule: DiscountRule{Kind: DiscountPercentage, Rate: decimal.NewFromInt(101)}, wantErr: true},
		{name: "negative rate", rule: DiscountRule{Kind: DiscountBulk, Rate: decimal.NewFromInt(-1), Threshold: 2}, wantErr: true},
		{name: "bulk ok", rule: DiscountRule{Kind: DiscountBulk, Rate: decimal.NewFromInt(15), Threshold: 1}},
		{name: "bulk zero threshold", rule: DiscountRule{Kind: DiscountBulk, Rate: decimal.NewFromInt(15)}, wantErr: true},
		{name: "percentage with threshold", rule: DiscountRule{Kind: DiscountPercentage, Rate: decimal.NewFromInt(5), Threshold: 3}, wantErr: true},
		{name: "unknown kind", rule: DiscountRule{Kind: "coupon", Rate: decimal.NewFromInt(5)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDiscountRules_ApplyChainsInOrder(t *testing.T) {
	percentage, err := NewPercentageDiscount(decimal.NewFromInt(10))
	require.NoError(t, err)
	bulk, err := NewBulkDiscount(10, decimal.NewFromInt(15))
	require.NoError(t, err)

	rules := DiscountRules{percentage, bulk}

	assert.Equal(t, "76.5", rules.Apply(decimal.NewFromInt(100), 10).String())
	assert.Equal(t, "90", rules.Apply(decimal.NewFromInt(100), 9).String())
}

func TestDiscountRules_ValidateReportsPosition(t *testing.T) {
	rules := DiscountRules{
		{Kind: DiscountPercentage, Rate: decimal.NewFromInt(5)},
		{Kind: DiscountBulk, Rate: decimal.NewFromInt(5)},
	}

	err := rules.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "discount rule 1")
}

func TestDiscountRules_ScanAndValue(t *testing.T) {
	bulk, err := NewBulkDiscount(5, decimal.NewFromInt(20))
	require.NoError(t, err)

	value, err := DiscountRules{bulk}.Value()
	require.NoError(t, err)

	var scanned DiscountRules
	require.NoError(t, scanned.Scan(value))
	require.Len(t, scanned, 1)
	assert.Equal(t, DiscountBulk, scanned[0].Kind)
	assert.Equal(t, 5, scanned[0].Threshold)
	assert.True(t, decimal.NewFromInt(20).Equal(scanned[0].Rate))

	var empty DiscountRules
	require.NoError(t, empty.Scan(nil))
	assert.Empty(t, empty)

	assert.Error(t, empty.Scan(42))
}

func TestDiscountRule_JSONAcceptsNumericRate(t *testing.T) {
	var rule DiscountRule
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"bulk","rate":12.5,"threshold":3}`), &rule))

	assert.NoError(t, rule.Validate())
	assert.True(t, decimal.RequireFromString("12.5").Equal(rule.Rate))
}
