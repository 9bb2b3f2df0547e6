package repository

import (
	"context"
	"fmt"

	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/erp"
)

var (
	orderFields   = []string{"name", "partner_id", "state", "invoice_status", "amount_total", "order_line", "invoice_ids", "picking_ids"}
	lineFields    = []string{"product_id", "product_uom_qty", "price_unit"}
	invoiceFields = []string{"name", "state"}
	pickingFields = []string{"name", "state"}
)

type orderRecord struct {
	ID            int64        `json:"id"`
	Name          erp.String   `json:"name"`
	Partner       erp.Many2One `json:"partner_id"`
	State         erp.String   `json:"state"`
	InvoiceStatus erp.String   `json:"invoice_status"`
	AmountTotal   float64      `json:"amount_total"`
	LineIDs       []int64      `json:"order_line"`
	InvoiceIDs    []int64      `json:"invoice_ids"`
	PickingIDs    []int64      `json:"picking_ids"`
}

func (r orderRecord) toDomain() domain.SaleOrder {
	return domain.SaleOrder{
		ID:            r.ID,
		Name:          string(r.Name),
		PartnerID:     r.Partner.ID,
		PartnerName:   r.Partner.Name,
		State:         domain.OrderState(r.State),
		InvoiceStatus: string(r.InvoiceStatus),
		AmountTotal:   money(r.AmountTotal),
		LineIDs:       r.LineIDs,
		InvoiceIDs:    r.InvoiceIDs,
		PickingIDs:    r.PickingIDs,
	}
}

type lineRecord struct {
	ID        int64        `json:"id"`
	Product   erp.Many2One `json:"product_id"`
	Quantity  float64      `json:"product_uom_qty"`
	PriceUnit float64      `json:"price_unit"`
}

// SaleOrderRepository reads and changes quotations and sales orders in the ERP
type SaleOrderRepository struct {
	erp ERP
}

// NewSaleOrderRepository creates a new sales order repository
func NewSaleOrderRepository(client ERP) *SaleOrderRepository {
	return &SaleOrderRepository{erp: client}
}

// FindByName loads the order with the given reference, including its lines
func (r *SaleOrderRepository) FindByName(ctx context.Context, name string) (*domain.SaleOrder, error) {
	var records []orderRecord
	opts := &erp.SearchOptions{Limit: 1}
	if err := r.erp.SearchRead(ctx, ModelSaleOrder, erp.Term("name", "=", name), orderFields, opts, &records); err != nil {
		return nil, fmt.Errorf("failed to find order %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return r.withLines(ctx, records[0].toDomain())
}

// GetByID loads an order and its lines
func (r *SaleOrderRepository) GetByID(ctx context.Context, id int64) (*domain.SaleOrder, error) {
	var records []orderRecord
	if err := r.erp.Read(ctx, ModelSaleOrder, []int64{id}, orderFields, &records); err != nil {
		return nil, fmt.Errorf("failed to read order %d: %w", id, err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return r.withLines(ctx, records[0].toDomain())
}

// List returns the most recent orders, newest first. A zero partnerID lists orders of all customers.
func (r *SaleOrderRepository) List(ctx context.Context, partnerID int64, limit int) ([]domain.SaleOrder, error) {
	filter := erp.Domain{}
	if partnerID != 0 {
		filter = erp.Term("partner_id", "=", partnerID)
	}

	var records []orderRecord
	opts := &erp.SearchOptions{Limit: limit, Order: "id desc"}
	if err := r.erp.SearchRead(ctx, ModelSaleOrder, filter, orderFields, opts, &records); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]domain.SaleOrder, 0, len(records))
	for _, rec := range records {
		o, err := r.withLines(ctx, rec.toDomain())
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

func (r *SaleOrderRepository) withLines(ctx context.Context, order domain.SaleOrder) (*domain.SaleOrder, error) {
	if len(order.LineIDs) == 0 {
		return &order, nil
	}

	var lines []lineRecord
	if err := r.erp.Read(ctx, ModelSaleOrderLine, order.LineIDs, lineFields, &lines); err != nil {
		return nil, fmt.Errorf("failed to read lines of order %s: %w", order.Name, err)
	}

	order.Lines = make([]domain.OrderLine, 0, len(lines))
	for _, l := range lines {
		order.Lines = append(order.Lines, domain.OrderLine{
			ID:          l.ID,
			ProductID:   l.Product.ID,
			ProductName: l.Product.Name,
			Quantity:    money(l.Quantity),
			PriceUnit:   money(l.PriceUnit),
		})
	}
	return &order, nil
}

// Create inserts a draft quotation with the given lines and returns its id
func (r *SaleOrderRepository) Create(ctx context.Context, partnerID int64, lines []domain.NewOrderLine, note string) (int64, error) {
	values := map[string]any{
		"partner_id": partnerID,
		"order_line": lineCommands(lines),
	}
	if note != "" {
		values["note"] = note
	}

	id, err := r.erp.Create(ctx, ModelSaleOrder, values)
	if err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}
	return id, nil
}

// ReplaceLines removes every line of the order and writes the new ones
func (r *SaleOrderRepository) ReplaceLines(ctx context.Context, order domain.SaleOrder, lines []domain.NewOrderLine, note string) error {
	if len(order.LineIDs) > 0 {
		if err := r.erp.Unlink(ctx, ModelSaleOrderLine, order.LineIDs); err != nil {
			return fmt.Errorf("failed to remove lines of order %s: %w", order.Name, err)
		}
	}

	values := map[string]any{"order_line": lineCommands(lines)}
	if note != "" {
		values["note"] = note
	}
	if err := r.erp.Write(ctx, ModelSaleOrder, []int64{order.ID}, values); err != nil {
		return fmt.Errorf("failed to update order %s: %w", order.Name, err)
	}
	return nil
}

// SetLineQuantity changes the ordered quantity of one line
func (r *SaleOrderRepository) SetLineQuantity(ctx context.Context, lineID int64, quantity int) error {
	if err := r.erp.Write(ctx, ModelSaleOrderLine, []int64{lineID}, map[string]any{"product_uom_qty": quantity}); err != nil {
		return fmt.Errorf("failed to update order line %d: %w", lineID, err)
	}
	return nil
}

// Confirm turns a quotation into a sales order
func (r *SaleOrderRepository) Confirm(ctx context.Context, id int64) error {
	if err := r.erp.CallButton(ctx, ModelSaleOrder, "action_confirm", []int64{id}); err != nil {
		return fmt.Errorf("failed to confirm order %d: %w", id, err)
	}
	return nil
}

// Cancel cancels an order. The ERP may refuse with a fault explaining why.
func (r *SaleOrderRepository) Cancel(ctx context.Context, id int64) error {
	if err := r.erp.CallButton(ctx, ModelSaleOrder, "action_cancel", []int64{id}); err != nil {
		return fmt.Errorf("failed to cancel order %d: %w", id, err)
	}
	return nil
}

// Invoices loads the invoices linked to an order
func (r *SaleOrderRepository) Invoices(ctx context.Context, order domain.SaleOrder) ([]domain.Invoice, error) {
	if len(order.InvoiceIDs) == 0 {
		return nil, nil
	}

	var records []struct {
		ID    int64      `json:"id"`
		Name  erp.String `json:"name"`
		State erp.String `json:"state"`
	}
	if err := r.erp.Read(ctx, ModelInvoice, order.InvoiceIDs, invoiceFields, &records); err != nil {
		return nil, fmt.Errorf("failed to read invoices of order %s: %w", order.Name, err)
	}

	invoices := make([]domain.Invoice, 0, len(records))
	for _, rec := range records {
		invoices = append(invoices, domain.Invoice{ID: rec.ID, Name: string(rec.Name), State: string(rec.State)})
	}
	return invoices, nil
}

// Pickings loads the delivery records linked to an order
func (r *SaleOrderRepository) Pickings(ctx context.Context, order domain.SaleOrder) ([]domain.Picking, error) {
	if len(order.PickingIDs) == 0 {
		return nil, nil
	}

	var records []struct {
		ID    int64      `json:"id"`
		Name  erp.String `json:"name"`
		State erp.String `json:"state"`
	}
	if err := r.erp.Read(ctx, ModelPicking, order.PickingIDs, pickingFields, &records); err != nil {
		return nil, fmt.Errorf("failed to read deliveries of order %s: %w", order.Name, err)
	}

	pickings := make([]domain.Picking, 0, len(records))
	for _, rec := range records {
		pickings = append(pickings, domain.Picking{ID: rec.ID, Name: string(rec.Name), State: string(rec.State)})
	}
	return pickings, nil
}

// lineCommands encodes lines as ERP one2many create commands
func lineCommands(lines []domain.NewOrderLine) []any {
	cmds := make([]any, 0, len(lines))
	for _, l := range lines {
		price, _ := l.PriceUnit.Float64()
		cmds = append(cmds, []any{0, 0, map[string]any{
			"product_id":      l.ProductID,
			"product_uom_qty": l.Quantity,
			"price_unit":      price,
		}})
	}
	return cmds
}
