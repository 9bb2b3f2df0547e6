package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/erp"
)

var productFields = []string{"name", "list_price", "standard_price", "qty_available", "product_tmpl_id", "categ_id", "taxes_id"}

type productRecord struct {
	ID            int64        `json:"id"`
	Name          erp.String   `json:"name"`
	ListPrice     float64      `json:"list_price"`
	StandardPrice float64      `json:"standard_price"`
	QtyAvailable  float64      `json:"qty_available"`
	Template      erp.Many2One `json:"product_tmpl_id"`
	Category      erp.Many2One `json:"categ_id"`
	TaxIDs        []int64      `json:"taxes_id"`
}

func (r productRecord) toDomain() domain.Product {
	return domain.Product{
		ID:            r.ID,
		Name:          string(r.Name),
		ListPrice:     money(r.ListPrice),
		StandardPrice: money(r.StandardPrice),
		QtyAvailable:  money(r.QtyAvailable),
		TemplateID:    r.Template.ID,
		CategoryID:    r.Category.ID,
		TaxIDs:        r.TaxIDs,
	}
}

// ProductRepository reads saleable products and their taxes from the ERP
type ProductRepository struct {
	erp ERP
}

// NewProductRepository creates a new product repository
func NewProductRepository(client ERP) *ProductRepository {
	return &ProductRepository{erp: client}
}

// SearchSaleable returns saleable products whose name contains keyword.
// An empty keyword lists saleable products in the ERP's default order.
func (r *ProductRepository) SearchSaleable(ctx context.Context, keyword string, limit int) ([]domain.Product, error) {
	filter := erp.Term("sale_ok", "=", true)
	if keyword != "" {
		filter = erp.And(filter, erp.Term("name", "ilike", keyword))
	}

	var records []productRecord
	if err := r.erp.SearchRead(ctx, ModelProduct, filter, productFields, &erp.SearchOptions{Limit: limit}, &records); err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	products := make([]domain.Product, 0, len(records))
	for _, rec := range records {
		products = append(products, rec.toDomain())
	}
	return products, nil
}

// TaxRate returns the percentage of the product's first tax, or zero when it has none
func (r *ProductRepository) TaxRate(ctx context.Context, product domain.Product) (decimal.Decimal, error) {
	if len(product.TaxIDs) == 0 {
		return decimal.Zero, nil
	}

	var taxes []struct {
		ID     int64   `json:"id"`
		Amount float64 `json:"amount"`
	}
	if err := r.erp.Read(ctx, ModelTax, product.TaxIDs[:1], []string{"amount"}, &taxes); err != nil {
		return decimal.Zero, fmt.Errorf("failed to read tax of product %d: %w", product.ID, err)
	}
	if len(taxes) == 0 {
		return decimal.Zero, nil
	}
	return money(taxes[0].Amount), nil
}

// TaxRates returns the first-tax percentage of each product, keyed by product id.
// Taxes shared between products are read once.
func (r *ProductRepository) TaxRates(ctx context.Context, products []domain.Product) (map[int64]decimal.Decimal, error) {
	rates := make(map[int64]decimal.Decimal, len(products))

	seen := make(map[int64]bool)
	var taxIDs []int64
	for _, p := range products {
		if len(p.TaxIDs) > 0 && !seen[p.TaxIDs[0]] {
			seen[p.TaxIDs[0]] = true
			taxIDs = append(taxIDs, p.TaxIDs[0])
		}
	}

	amounts := make(map[int64]decimal.Decimal, len(taxIDs))
	if len(taxIDs) > 0 {
		var taxes []struct {
			ID     int64   `json:"id"`
			Amount float64 `json:"amount"`
		}
		if err := r.erp.Read(ctx, ModelTax, taxIDs, []string{"amount"}, &taxes); err != nil {
			return nil, fmt.Errorf("failed to read product taxes: %w", err)
		}
		for _, t := range taxes {
			amounts[t.ID] = money(t.Amount)
		}
	}

	for _, p := range products {
		rate := decimal.Zero
		if len(p.TaxIDs) > 0 {
			if a, ok := amounts[p.TaxIDs[0]]; ok {
				rate = a
			}
		}
		rates[p.ID] = rate
	}
	return rates, nil
}
