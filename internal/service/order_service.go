package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/straye-as/sales-assistant/internal/config"
	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/erp"
	"github.com/straye-as/sales-assistant/internal/intent"
	"github.com/straye-as/sales-assistant/internal/matcher"
	"github.com/straye-as/sales-assistant/internal/reply"
	"github.com/straye-as/sales-assistant/internal/repository"
	"go.uber.org/zap"
)

const (
	msgMissingConfirmOrder = "⚠️ Vui lòng cung cấp mã báo giá cần xác nhận (VD: SO001)"
	msgMissingUpdateOrder  = "⚠️ Vui lòng cung cấp mã báo giá cần cập nhật (VD: SO001)"
	msgMissingCancelOrder  = "⚠️ Vui lòng cung cấp mã đơn hàng cần hủy (VD: SO001)"
	msgNothingToUpdate     = "⚠️ Vui lòng cung cấp sản phẩm hoặc số lượng cần thay đổi"
	msgQuantityNotInteger  = "❌ Số lượng phải là số nguyên"
	msgInvalidQuantityList = "❌ Số lượng không hợp lệ. Vui lòng nhập dạng '2;20' hoặc '5'"
)

// OrderRequest creates a quotation or order. Product and Qty may be ";" joined parallel lists.
type OrderRequest struct {
	Customer matcher.Query
	Product  string
	Qty      intent.FlexString
	SalesRep string
}

// UpdateRequest changes the lines of a quotation
type UpdateRequest struct {
	OrderName string
	Product   string
	Qty       intent.FlexString
	SalesRep  string
}

type OrderService struct {
	orderRepo *repository.SaleOrderRepository
	customers *CustomerService
	products  *ProductService
	formatter *reply.Formatter
	limits    config.AssistantConfig
	logger    *zap.Logger
}

func NewOrderService(
	orderRepo *repository.SaleOrderRepository,
	customers *CustomerService,
	products *ProductService,
	formatter *reply.Formatter,
	limits config.AssistantConfig,
	logger *zap.Logger,
) *OrderService {
	if limits.OrderListLimit <= 0 {
		limits.OrderListLimit = 10
	}
	return &OrderService{
		orderRepo: orderRepo,
		customers: customers,
		products:  products,
		formatter: formatter,
		limits:    limits,
		logger:    logger,
	}
}

// CreateQuotation creates a draft quotation priced with the customer's pricelist
func (s *OrderService) CreateQuotation(ctx context.Context, req OrderRequest) (string, error) {
	order, err := s.create(ctx, req, OpCreateQuotation,
		fmt.Sprintf("Báo giá tạo bởi Chatbot AI - Sales Rep: %s", req.SalesRep))
	if err != nil {
		return "", err
	}

	s.logger.Info("Quotation created",
		zap.String("order", order.Name),
		zap.Int64("partner_id", order.PartnerID),
		zap.String("sales_rep", req.SalesRep),
	)
	return s.formatter.QuotationCreated(*order, req.SalesRep), nil
}

// CreateOrder creates a quotation and confirms it in one step
func (s *OrderService) CreateOrder(ctx context.Context, req OrderRequest) (string, error) {
	order, err := s.create(ctx, req, OpCreateOrder,
		fmt.Sprintf("Đơn hàng tạo bởi Chatbot AI - Sales Rep: %s", req.SalesRep))
	if err != nil {
		return "", err
	}

	if err := s.orderRepo.Confirm(ctx, order.ID); err != nil {
		return "", remote(OpCreateOrder, err)
	}
	order, err = s.orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		return "", remote(OpCreateOrder, err)
	}

	s.logger.Info("Sales order created",
		zap.String("order", order.Name),
		zap.Int64("partner_id", order.PartnerID),
		zap.String("sales_rep", req.SalesRep),
	)
	return s.formatter.OrderCreated(*order, req.SalesRep), nil
}

func (s *OrderService) create(ctx context.Context, req OrderRequest, op, notePrefix string) (*domain.SaleOrder, error) {
	products := intent.SplitList(req.Product)
	if len(products) == 0 {
		return nil, &domain.InputError{Message: msgMissingProduct}
	}

	quantities, err := parseQuantities(req.Qty)
	if err != nil {
		return nil, err
	}
	if quantities == nil {
		quantities = make([]int, len(products))
		for i := range quantities {
			quantities[i] = 1
		}
	}
	if len(products) != len(quantities) {
		return nil, domain.NewInputError("❌ Số sản phẩm (%d) và số lượng (%d) không khớp. VD: 'iPhone 15;Samsung' với '2;5'",
			len(products), len(quantities))
	}

	partner, err := s.customers.FindCustomer(ctx, req.Customer)
	if err != nil {
		return nil, err
	}

	lines, _, err := s.priceLines(ctx, partner, products, quantities)
	if err != nil {
		return nil, err
	}

	note := fmt.Sprintf("%s\nGồm %d sản phẩm", notePrefix, len(products))
	id, err := s.orderRepo.Create(ctx, partner.ID, lines, note)
	if err != nil {
		return nil, remote(op, err)
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, remote(op, err)
	}
	return order, nil
}

// priceLines prices every product for the partner. The first product that cannot be
// priced aborts the whole batch so that no partial order is written.
func (s *OrderService) priceLines(ctx context.Context, partner *domain.Partner, products []string, quantities []int) ([]domain.NewOrderLine, []domain.PricingResult, error) {
	lines := make([]domain.NewOrderLine, 0, len(products))
	results := make([]domain.PricingResult, 0, len(products))

	for i, name := range products {
		qty := 1
		if i < len(quantities) {
			qty = quantities[i]
		}

		result, err := s.products.SuggestPricing(ctx, PricingRequest{Product: name, Partner: partner, Quantity: qty})
		if err != nil {
			return nil, nil, err
		}
		if result.IsAmbiguous {
			return nil, nil, &domain.AmbiguousError{
				Entity:  "product",
				Message: fmt.Sprintf("❌ Sản phẩm '%s' mơ hồ.\n%s", name, result.Message),
			}
		}
		if result.ProductID == 0 {
			return nil, nil, &domain.NotFoundError{
				Entity:  "product",
				Terms:   []string{name},
				Message: fmt.Sprintf("❌ Không tìm thấy sản phẩm '%s'.\n%s", name, result.Message),
			}
		}

		lines = append(lines, domain.NewOrderLine{
			ProductID:   result.ProductID,
			ProductName: result.ProductName,
			Quantity:    qty,
			PriceUnit:   result.SuggestedPrice,
		})
		results = append(results, result)
	}
	return lines, results, nil
}

// ConfirmQuotation turns a draft or sent quotation into a sales order
func (s *OrderService) ConfirmQuotation(ctx context.Context, orderName, salesRep string) (string, error) {
	orderName = strings.TrimSpace(orderName)
	if orderName == "" {
		return "", &domain.InputError{Message: msgMissingConfirmOrder}
	}

	order, err := s.findOrder(ctx, orderName, OpConfirmQuotation, "❌ Không tìm thấy báo giá '%s'")
	if err != nil {
		return "", err
	}

	switch {
	case order.State == domain.OrderStateSale:
		return "", &domain.StateConflictError{Order: orderName, State: order.State, Notice: true,
			Message: fmt.Sprintf("⚠️ Báo giá %s đã được xác nhận trước đó rồi!", orderName)}
	case order.State == domain.OrderStateCancel:
		return "", &domain.StateConflictError{Order: orderName, State: order.State,
			Message: fmt.Sprintf("❌ Báo giá %s đã bị hủy, không thể xác nhận!", orderName)}
	case !order.State.IsEditable():
		return "", &domain.StateConflictError{Order: orderName, State: order.State,
			Message: fmt.Sprintf("⚠️ Báo giá %s có trạng thái '%s', không thể xác nhận!", orderName, order.State)}
	}

	if err := s.orderRepo.Confirm(ctx, order.ID); err != nil {
		return "", remote(OpConfirmQuotation, err)
	}
	confirmed, err := s.orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		return "", remote(OpConfirmQuotation, err)
	}

	s.logger.Info("Quotation confirmed", zap.String("order", orderName), zap.String("sales_rep", salesRep))
	return s.formatter.OrderConfirmed(*confirmed, salesRep), nil
}

// UpdateQuotation changes a draft or sent quotation. Given only a quantity it changes the
// first line; given products it reprices them and replaces every line.
func (s *OrderService) UpdateQuotation(ctx context.Context, req UpdateRequest) (string, error) {
	orderName := strings.TrimSpace(req.OrderName)
	if orderName == "" {
		return "", &domain.InputError{Message: msgMissingUpdateOrder}
	}

	order, err := s.findOrder(ctx, orderName, OpUpdateQuotation, "❌ Không tìm thấy báo giá '%s'")
	if err != nil {
		return "", err
	}
	if !order.State.IsEditable() {
		return "", &domain.StateConflictError{Order: orderName, State: order.State,
			Message: fmt.Sprintf("⚠️ Chỉ có thể sửa báo giá ở trạng thái Nháp hoặc Đã gửi. Báo giá %s đang ở trạng thái '%s'", orderName, order.State)}
	}

	products := intent.SplitList(req.Product)
	quantities, err := parseQuantities(req.Qty)
	if err != nil {
		return "", err
	}
	if len(products) > 0 && len(quantities) > 0 && len(products) != len(quantities) {
		return "", domain.NewInputError("❌ Số sản phẩm (%d) và số lượng (%d) không khớp. VD đúng: 'iPhone 15;iPhone 14' với số lượng '2;20'",
			len(products), len(quantities))
	}

	var updated []reply.UpdatedLine
	switch {
	case len(products) == 0 && len(quantities) == 1 && len(order.Lines) > 0:
		first := order.Lines[0]
		if err := s.orderRepo.SetLineQuantity(ctx, first.ID, quantities[0]); err != nil {
			return "", remote(OpUpdateQuotation, err)
		}
		updated = []reply.UpdatedLine{{ProductName: first.ProductName, Quantity: quantities[0]}}

	case len(products) > 0:
		partner, err := s.customers.GetByID(ctx, order.PartnerID)
		if err != nil {
			return "", err
		}
		lines, results, err := s.priceLines(ctx, partner, products, quantities)
		if err != nil {
			return "", err
		}

		note := fmt.Sprintf("Báo giá cập nhật bởi Chatbot AI - Sales Rep: %s\nCập nhật %d sản phẩm", req.SalesRep, len(products))
		if err := s.orderRepo.ReplaceLines(ctx, *order, lines, note); err != nil {
			return "", remote(OpUpdateQuotation, err)
		}

		for i, l := range lines {
			subtotal := results[i].SuggestedPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
			updated = append(updated, reply.UpdatedLine{ProductName: l.ProductName, Quantity: l.Quantity, Subtotal: &subtotal})
		}

	default:
		return "", &domain.InputError{Message: msgNothingToUpdate}
	}

	refreshed, err := s.orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		return "", remote(OpUpdateQuotation, err)
	}

	s.logger.Info("Quotation updated",
		zap.String("order", orderName),
		zap.Int("lines", len(updated)),
		zap.String("sales_rep", req.SalesRep),
	)
	return s.formatter.QuotationUpdated(*refreshed, updated, req.SalesRep), nil
}

// ListOrders shows the most recent orders, optionally for one customer
func (s *OrderService) ListOrders(ctx context.Context, customer matcher.Query) (string, error) {
	var partnerID int64
	if strings.TrimSpace(customer.Name) != "" {
		partner, err := s.customers.FindCustomer(ctx, customer)
		if err != nil {
			return "", err
		}
		partnerID = partner.ID
	}

	orders, err := s.orderRepo.List(ctx, partnerID, s.limits.OrderListLimit)
	if err != nil {
		return "", remote(OpListOrders, err)
	}

	items := make([]reply.OrderListItem, 0, len(orders))
	for _, o := range orders {
		pickings, err := s.orderRepo.Pickings(ctx, o)
		if err != nil {
			return "", remote(OpListOrders, err)
		}
		items = append(items, reply.OrderListItem{Order: o, Delivery: domain.DeliveryStatusOf(pickings)})
	}
	return s.formatter.OrderList(items), nil
}

// CancelOrder cancels an order after checking that no posted invoice or
// completed delivery depends on it, then verifies the new state
func (s *OrderService) CancelOrder(ctx context.Context, orderName string) (string, error) {
	orderName = strings.TrimSpace(orderName)
	if orderName == "" {
		return "", &domain.InputError{Message: msgMissingCancelOrder}
	}

	order, err := s.findOrder(ctx, orderName, OpCancelOrder, "❌ Không tìm thấy đơn hàng '%s'")
	if err != nil {
		return "", err
	}

	switch order.State {
	case domain.OrderStateCancel:
		return "", &domain.StateConflictError{Order: orderName, State: order.State, Notice: true,
			Message: fmt.Sprintf("⚠️ Đơn hàng %s đã bị hủy trước đó rồi!", orderName)}
	case domain.OrderStateDone:
		return "", &domain.StateConflictError{Order: orderName, State: order.State,
			Message: fmt.Sprintf("❌ Không thể hủy đơn hàng %s vì đã hoàn tất (done). Vui lòng liên hệ quản trị viên.", orderName)}
	}

	invoices, err := s.orderRepo.Invoices(ctx, *order)
	if err != nil {
		return "", remote(OpCancelOrder, err)
	}
	var posted []domain.Invoice
	for _, inv := range invoices {
		if inv.State == domain.InvoiceStatePosted {
			posted = append(posted, inv)
		}
	}
	if len(posted) > 0 {
		return "", &domain.StateConflictError{Order: orderName, State: order.State,
			Message: s.formatter.CancelBlockedByInvoices(orderName, posted)}
	}

	pickings, err := s.orderRepo.Pickings(ctx, *order)
	if err != nil {
		return "", remote(OpCancelOrder, err)
	}
	var delivered []domain.Picking
	for _, p := range pickings {
		if p.State == domain.PickingStateDone {
			delivered = append(delivered, p)
		}
	}
	if len(delivered) > 0 {
		return "", &domain.StateConflictError{Order: orderName, State: order.State,
			Message: s.formatter.CancelBlockedByPickings(orderName, delivered)}
	}

	if err := s.orderRepo.Cancel(ctx, order.ID); err != nil {
		var fault *erp.Fault
		if errors.As(err, &fault) {
			s.logger.Warn("ERP refused to cancel order", zap.String("order", orderName), zap.String("fault", fault.Error()))
			return "", &domain.StateConflictError{Order: orderName, State: order.State,
				Message: s.formatter.CancelFault(orderName, faultDetail(err))}
		}
		return "", remote(OpCancelOrder, err)
	}

	after, err := s.orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		return "", remote(OpCancelOrder, err)
	}
	if after.State != domain.OrderStateCancel {
		return "", &domain.StateConflictError{Order: orderName, State: after.State,
			Message: fmt.Sprintf("⚠️ Lệnh hủy đã thực thi nhưng trạng thái vẫn là '%s'. Vui lòng kiểm tra lại trong Odoo.", after.State)}
	}

	s.logger.Info("Order cancelled", zap.String("order", orderName))
	return s.formatter.OrderCancelled(*after), nil
}

func (s *OrderService) findOrder(ctx context.Context, name, op, notFoundFormat string) (*domain.SaleOrder, error) {
	order, err := s.orderRepo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &domain.NotFoundError{Entity: "order", Terms: []string{name}, Message: fmt.Sprintf(notFoundFormat, name)}
		}
		return nil, remote(op, err)
	}
	return order, nil
}

func parseQuantities(qty intent.FlexString) ([]int, error) {
	quantities, err := intent.Quantities(qty)
	switch {
	case errors.Is(err, intent.ErrQuantityNotInteger):
		return nil, &domain.InputError{Message: msgQuantityNotInteger}
	case errors.Is(err, intent.ErrInvalidQuantityList):
		return nil, &domain.InputError{Message: msgInvalidQuantityList}
	case err != nil:
		return nil, &domain.InputError{Message: msgInvalidQuantityList}
	}
	return quantities, nil
}
