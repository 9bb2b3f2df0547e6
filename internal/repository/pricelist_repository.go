package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/erp"
)

var (
	pricelistFields = []string{"name", "currency_id", "active"}
	ruleFields      = []string{"applied_on", "categ_id", "product_tmpl_id", "product_id", "compute_price",
		"fixed_price", "percent_price", "price_discount", "base", "min_quantity"}
)

// ruleOrder puts variant rules before template, category and global rules,
// then larger quantity tiers first
const ruleOrder = "applied_on, min_quantity desc"

type pricelistRecord struct {
	ID       int64        `json:"id"`
	Name     erp.String   `json:"name"`
	Currency erp.Many2One `json:"currency_id"`
	Active   erp.Bool     `json:"active"`
}

func (r pricelistRecord) toDomain() domain.Pricelist {
	return domain.Pricelist{
		ID:       r.ID,
		Name:     string(r.Name),
		Currency: r.Currency.Name,
		Active:   bool(r.Active),
	}
}

type ruleRecord struct {
	ID            int64        `json:"id"`
	AppliedOn     erp.String   `json:"applied_on"`
	Category      erp.Many2One `json:"categ_id"`
	Template      erp.Many2One `json:"product_tmpl_id"`
	Variant       erp.Many2One `json:"product_id"`
	ComputePrice  erp.String   `json:"compute_price"`
	FixedPrice    *float64     `json:"fixed_price"`
	PercentPrice  *float64     `json:"percent_price"`
	PriceDiscount *float64     `json:"price_discount"`
	Base          erp.String   `json:"base"`
	MinQuantity   float64      `json:"min_quantity"`
}

func (r ruleRecord) toDomain() domain.PriceRule {
	rule := domain.PriceRule{
		ID:                     r.ID,
		Scope:                  domain.RuleScope(r.AppliedOn),
		ComputeMode:            domain.ComputeMode(r.ComputePrice),
		FixedPrice:             optionalMoney(r.FixedPrice),
		PercentPrice:           optionalMoney(r.PercentPrice),
		FormulaDiscountPercent: optionalMoney(r.PriceDiscount),
		FormulaBase:            domain.FormulaBase(r.Base),
		MinQuantity:            decimal.NewFromFloat(r.MinQuantity),
	}
	if rule.FormulaBase == "" {
		rule.FormulaBase = domain.FormulaBaseListPrice
	}

	var ref erp.Many2One
	switch rule.Scope {
	case domain.ScopeCategory:
		ref = r.Category
	case domain.ScopeProductTemplate:
		ref = r.Template
	case domain.ScopeProductVariant:
		ref = r.Variant
	}
	rule.ScopeRefID = ref.ID
	rule.ScopeRefName = ref.Name
	return rule
}

// PricelistRepository reads pricelists and their rules from the ERP
type PricelistRepository struct {
	erp ERP
}

// NewPricelistRepository creates a new pricelist repository
func NewPricelistRepository(client ERP) *PricelistRepository {
	return &PricelistRepository{erp: client}
}

// GetByID loads one pricelist
func (r *PricelistRepository) GetByID(ctx context.Context, id int64) (*domain.Pricelist, error) {
	var records []pricelistRecord
	if err := r.erp.Read(ctx, ModelPricelist, []int64{id}, pricelistFields, &records); err != nil {
		return nil, fmt.Errorf("failed to read pricelist %d: %w", id, err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	pl := records[0].toDomain()
	return &pl, nil
}

// FirstActive returns the first active pricelist, used when a customer has none
func (r *PricelistRepository) FirstActive(ctx context.Context) (*domain.Pricelist, error) {
	var records []pricelistRecord
	opts := &erp.SearchOptions{Limit: 1}
	if err := r.erp.SearchRead(ctx, ModelPricelist, erp.Term("active", "=", true), pricelistFields, opts, &records); err != nil {
		return nil, fmt.Errorf("failed to find default pricelist: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	pl := records[0].toDomain()
	return &pl, nil
}

// RulesForProduct returns the rules that may apply to product, most specific first
func (r *PricelistRepository) RulesForProduct(ctx context.Context, pricelistID int64, product domain.Product) ([]domain.PriceRule, error) {
	filter := erp.And(
		erp.Term("pricelist_id", "=", pricelistID),
		erp.Or(
			erp.Term("product_id", "=", product.ID),
			erp.Term("product_tmpl_id", "=", product.TemplateID),
			erp.Term("applied_on", "=", string(domain.ScopeGlobal)),
		),
	)
	return r.searchRules(ctx, filter, &erp.SearchOptions{Order: ruleOrder})
}

// Rules returns up to limit rules of a pricelist in the ERP's order
func (r *PricelistRepository) Rules(ctx context.Context, pricelistID int64, limit int) ([]domain.PriceRule, error) {
	return r.searchRules(ctx, erp.Term("pricelist_id", "=", pricelistID), &erp.SearchOptions{Limit: limit})
}

func (r *PricelistRepository) searchRules(ctx context.Context, filter erp.Domain, opts *erp.SearchOptions) ([]domain.PriceRule, error) {
	var records []ruleRecord
	if err := r.erp.SearchRead(ctx, ModelPricelistItem, filter, ruleFields, opts, &records); err != nil {
		return nil, fmt.Errorf("failed to read pricelist rules: %w", err)
	}

	rules := make([]domain.PriceRule, 0, len(records))
	for _, rec := range records {
		rules = append(rules, rec.toDomain())
	}
	return rules, nil
}
