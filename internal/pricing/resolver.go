// Package pricing selects a price-list rule and computes unit prices.
package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/straye-as/sales-assistant/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Input is everything Resolve needs for one product and quantity.
// Rules must already be filtered to the product and ordered from most to least specific.
type Input struct {
	BasePrice decimal.Decimal
	CostPrice decimal.Decimal
	TaxRate   decimal.Decimal
	Quantity  int
	Rules     []domain.PriceRule
}

// Output is the resolved price
type Output struct {
	FinalPrice   decimal.Decimal
	PriceWithTax decimal.Decimal
	// Rule is the rule that qualified, or nil when none did
	Rule *domain.PriceRule
}

// Resolve picks the first rule whose minimum quantity is met and applies it.
// A rule with an unknown mode or a missing value leaves the base price unchanged.
func Resolve(in Input) Output {
	final := in.BasePrice
	rule := selectRule(in.Rules, in.Quantity)
	if rule != nil {
		final = apply(*rule, in.BasePrice, in.CostPrice)
	}

	return Output{
		FinalPrice:   final,
		PriceWithTax: WithTax(final, in.TaxRate),
		Rule:         rule,
	}
}

// WithTax adds a percentage tax to a price
func WithTax(price, taxRate decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(1).Add(taxRate.Div(hundred)))
}

// DiscountPercent is how far final is below base, in percent. Zero when base is zero.
func DiscountPercent(base, final decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return base.Sub(final).Div(base).Mul(hundred)
}

func selectRule(rules []domain.PriceRule, quantity int) *domain.PriceRule {
	qty := decimal.NewFromInt(int64(quantity))
	for i := range rules {
		if rules[i].MinQuantity.LessThanOrEqual(qty) {
			return &rules[i]
		}
	}
	return nil
}

func apply(rule domain.PriceRule, base, cost decimal.Decimal) decimal.Decimal {
	switch rule.ComputeMode {
	case domain.ComputeFixed:
		if rule.FixedPrice == nil {
			return base
		}
		return *rule.FixedPrice

	case domain.ComputePercentage:
		if rule.PercentPrice == nil {
			return base
		}
		return discount(base, *rule.PercentPrice)

	case domain.ComputeFormula:
		if rule.FormulaDiscountPercent == nil {
			return base
		}
		from := base
		if rule.FormulaBase == domain.FormulaBaseStandardPrice {
			from = cost
		}
		return discount(from, *rule.FormulaDiscountPercent)

	default:
		return base
	}
}

func discount(value, percent decimal.Decimal) decimal.Decimal {
	return value.Mul(decimal.NewFromInt(1).Sub(percent.Div(hundred)))
}
