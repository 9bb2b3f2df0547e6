package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func ptr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func percentRule(percent, minQty int64) domain.PriceRule {
	return domain.PriceRule{
		Scope:        domain.ScopeGlobal,
		ComputeMode:  domain.ComputePercentage,
		PercentPrice: ptr(percent),
		MinQuantity:  dec(minQty),
	}
}

func TestResolve_Deterministic(t *testing.T) {
	in := pricing.Input{
		BasePrice: dec(1_000_000),
		TaxRate:   dec(8),
		Quantity:  4,
		Rules:     []domain.PriceRule{percentRule(15, 3), percentRule(5, 1)},
	}

	first := pricing.Resolve(in)
	second := pricing.Resolve(in)
	assert.True(t, first.FinalPrice.Equal(second.FinalPrice))
	assert.True(t, first.PriceWithTax.Equal(second.PriceWithTax))
}

func TestResolve_NoQualifyingRule(t *testing.T) {
	out := pricing.Resolve(pricing.Input{
		BasePrice: dec(500_000),
		TaxRate:   dec(10),
		Quantity:  1,
		Rules:     []domain.PriceRule{percentRule(20, 5), percentRule(10, 2)},
	})

	assert.True(t, out.FinalPrice.Equal(dec(500_000)))
	assert.True(t, out.PriceWithTax.Equal(dec(550_000)))
	assert.Nil(t, out.Rule)
}

func TestResolve_FirstQualifyingRuleWins(t *testing.T) {
	rules := []domain.PriceRule{percentRule(20, 10), percentRule(10, 2), percentRule(5, 0)}

	out := pricing.Resolve(pricing.Input{BasePrice: dec(100), Quantity: 3, Rules: rules})

	require.NotNil(t, out.Rule)
	assert.True(t, out.FinalPrice.Equal(dec(90)))
	assert.True(t, out.Rule.PercentPrice.Equal(dec(10)))
}

func TestResolve_PercentageMonotonic(t *testing.T) {
	base := dec(20_000_000)
	prev := base
	for p := int64(0); p <= 100; p += 5 {
		out := pricing.Resolve(pricing.Input{
			BasePrice: base,
			Quantity:  1,
			Rules:     []domain.PriceRule{percentRule(p, 0)},
		})

		expected := base.Mul(decimal.NewFromInt(1).Sub(dec(p).Div(dec(100))))
		assert.True(t, out.FinalPrice.Equal(expected), "percent %d", p)
		assert.True(t, out.FinalPrice.LessThanOrEqual(prev), "percent %d", p)
		prev = out.FinalPrice
	}
	assert.True(t, prev.IsZero())
}

func TestResolve_ComputeModes(t *testing.T) {
	tests := []struct {
		name string
		rule domain.PriceRule
		want decimal.Decimal
	}{
		{
			name: "fixed",
			rule: domain.PriceRule{ComputeMode: domain.ComputeFixed, FixedPrice: ptr(750)},
			want: dec(750),
		},
		{
			name: "formula on list price",
			rule: domain.PriceRule{
				ComputeMode:            domain.ComputeFormula,
				FormulaBase:            domain.FormulaBaseListPrice,
				FormulaDiscountPercent: ptr(10),
			},
			want: dec(900),
		},
		{
			name: "formula on cost",
			rule: domain.PriceRule{
				ComputeMode:            domain.ComputeFormula,
				FormulaBase:            domain.FormulaBaseStandardPrice,
				FormulaDiscountPercent: ptr(10),
			},
			want: dec(540),
		},
		{
			name: "unknown mode",
			rule: domain.PriceRule{ComputeMode: "bogus", FixedPrice: ptr(1)},
			want: dec(1000),
		},
		{
			name: "fixed without price",
			rule: domain.PriceRule{ComputeMode: domain.ComputeFixed},
			want: dec(1000),
		},
		{
			name: "percentage without percent",
			rule: domain.PriceRule{ComputeMode: domain.ComputePercentage},
			want: dec(1000),
		},
		{
			name: "formula without discount",
			rule: domain.PriceRule{ComputeMode: domain.ComputeFormula, FormulaBase: domain.FormulaBaseStandardPrice},
			want: dec(1000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := pricing.Resolve(pricing.Input{
				BasePrice: dec(1000),
				CostPrice: dec(600),
				Quantity:  1,
				Rules:     []domain.PriceRule{tt.rule},
			})
			assert.True(t, out.FinalPrice.Equal(tt.want), "got %s", out.FinalPrice)
		})
	}
}

func TestResolve_EndToEndTieredDiscount(t *testing.T) {
	out := pricing.Resolve(pricing.Input{
		BasePrice: dec(20_000_000),
		TaxRate:   dec(10),
		Quantity:  3,
		Rules:     []domain.PriceRule{percentRule(10, 2)},
	})

	assert.True(t, out.FinalPrice.Equal(dec(18_000_000)))
	assert.True(t, out.PriceWithTax.Equal(dec(19_800_000)))
	assert.True(t, out.PriceWithTax.Mul(dec(3)).Equal(dec(59_400_000)))
}

func TestDiscountPercent(t *testing.T) {
	assert.True(t, pricing.DiscountPercent(dec(200), dec(150)).Equal(dec(25)))
	assert.True(t, pricing.DiscountPercent(decimal.Zero, dec(10)).IsZero())
}
