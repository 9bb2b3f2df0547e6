package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/straye-as/sales-assistant/internal/erp"
)

// ErrNotFound is returned when a record looked up by name or id does not exist
var ErrNotFound = errors.New("record not found")

// ERP model names
const (
	ModelPartner       = "res.partner"
	ModelProduct       = "product.product"
	ModelTax           = "account.tax"
	ModelPricelist     = "product.pricelist"
	ModelPricelistItem = "product.pricelist.item"
	ModelSaleOrder     = "sale.order"
	ModelSaleOrderLine = "sale.order.line"
	ModelInvoice       = "account.move"
	ModelPicking       = "stock.picking"
	ModelLead          = "crm.lead"
)

// ERP is the part of erp.Client the repositories depend on
type ERP interface {
	SearchRead(ctx context.Context, model string, domain erp.Domain, fields []string, opts *erp.SearchOptions, out any) error
	Search(ctx context.Context, model string, domain erp.Domain, opts *erp.SearchOptions) ([]int64, error)
	Read(ctx context.Context, model string, ids []int64, fields []string, out any) error
	Create(ctx context.Context, model string, values map[string]any) (int64, error)
	Write(ctx context.Context, model string, ids []int64, values map[string]any) error
	Unlink(ctx context.Context, model string, ids []int64) error
	CallButton(ctx context.Context, model, method string, ids []int64) error
}

var _ ERP = (*erp.Client)(nil)

// money converts a float sent by the ERP without losing the printed digits
func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func optionalMoney(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}
