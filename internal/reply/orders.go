package reply

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/straye-as/sales-assistant/internal/domain"
)

var orderStateLabels = map[domain.OrderState]string{
	domain.OrderStateDraft:  "Nháp",
	domain.OrderStateSent:   "Đã gửi",
	domain.OrderStateSale:   "Đã xác nhận",
	domain.OrderStateDone:   "Hoàn tất",
	domain.OrderStateCancel: "Đã hủy",
}

var invoiceStatusLabels = map[string]string{
	"upselling":  "Chờ hóa đơn",
	"invoiced":   "Đã xuất HĐ",
	"to invoice": "Cần xuất HĐ",
	"no":         "Không HĐ",
}

var deliveryLabels = map[domain.DeliveryStatus]string{
	domain.DeliveryPending: "Chờ giao",
	domain.DeliveryPartial: "Giao 1 phần",
	domain.DeliveryFull:    "Đã giao đủ",
	domain.DeliveryNone:    "Không giao",
}

// StateLabel is the Vietnamese label for an order state, or the raw state when unknown
func StateLabel(s domain.OrderState) string {
	if label, ok := orderStateLabels[s]; ok {
		return label
	}
	return string(s)
}

func lineSummary(order domain.SaleOrder) string {
	parts := make([]string, 0, len(order.Lines))
	for _, l := range order.Lines {
		parts = append(parts, fmt.Sprintf("%s x %d", l.ProductName, l.Quantity.IntPart()))
	}
	return strings.Join(parts, ", ")
}

// QuotationCreated confirms a new draft quotation and tells the user how to confirm it
func (f *Formatter) QuotationCreated(order domain.SaleOrder, salesRep string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Tạo báo giá thành công!\n\nMã báo giá: %s\nKhách hàng: %s\nSản phẩm: %s\nTổng tiền: %s\nTrạng thái: 📝 Chờ xác nhận (Draft)",
		order.Name, order.PartnerName, lineSummary(order), f.Currency(order.AmountTotal))
	if salesRep != "" {
		fmt.Fprintf(&b, "\nNhân viên: %s", salesRep)
	}
	fmt.Fprintf(&b, "\n\n➡ Khi khách đồng ý, dùng lệnh: \"Xác nhận báo giá %s\"", order.Name)
	return b.String()
}

// OrderCreated confirms an order created and confirmed in one step
func (f *Formatter) OrderCreated(order domain.SaleOrder, salesRep string) string {
	return f.orderSummary(order, "Tạo đơn hàng thành công", "Tạo đơn hàng thành công", "Nhân viên", salesRep)
}

// OrderConfirmed confirms that a quotation became a sales order
func (f *Formatter) OrderConfirmed(order domain.SaleOrder, salesRep string) string {
	return f.orderSummary(order, "Đã xác nhận", "✅ Đã xác nhận", "Nhân viên xác nhận", salesRep)
}

func (f *Formatter) orderSummary(order domain.SaleOrder, headline, status, repLabel, rep string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ %s!\n\nMã đơn: %s\nKhách hàng: %s\nSản phẩm: %s\nTổng tiền: %s\nTrạng thái: %s",
		headline, order.Name, order.PartnerName, lineSummary(order), f.Currency(order.AmountTotal), status)
	if rep != "" {
		fmt.Fprintf(&b, "\n%s: %s", repLabel, rep)
	}
	b.WriteString("\n\nĐơn hàng đã được ghi nhận vào hệ thống!")
	return b.String()
}

// UpdatedLine is a quotation line after an update. Subtotal is nil when only the quantity changed.
type UpdatedLine struct {
	ProductName string
	Quantity    int
	Subtotal    *decimal.Decimal
}

// QuotationUpdated renders a quotation after its lines were changed
func (f *Formatter) QuotationUpdated(order domain.SaleOrder, lines []UpdatedLine, salesRep string) string {
	rendered := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.Subtotal == nil {
			rendered = append(rendered, fmt.Sprintf("%s x %d", l.ProductName, l.Quantity))
			continue
		}
		rendered = append(rendered, fmt.Sprintf("  • %s x %d - %s", l.ProductName, l.Quantity, f.Currency(*l.Subtotal)))
	}

	return fmt.Sprintf("✅ ĐÃ CẬP NHẬT BÁO GIÁ %s\n\n📋 Thông tin mới:\nKhách hàng: %s\nDanh sách sản phẩm:\n%s\n\n💰 Tổng tiền: %s\n📝 Cập nhật bởi: %s",
		order.Name, order.PartnerName, strings.Join(rendered, "\n"), f.Currency(order.AmountTotal), salesRep)
}

// OrderListItem is one order with its derived delivery status
type OrderListItem struct {
	Order    domain.SaleOrder
	Delivery domain.DeliveryStatus
}

// OrderList renders recent orders with their state, invoice and delivery labels
func (f *Formatter) OrderList(items []OrderListItem) string {
	if len(items) == 0 {
		return "Không tìm thấy đơn hàng nào."
	}

	rendered := make([]string, 0, len(items))
	for _, it := range items {
		o := it.Order
		invoice, ok := invoiceStatusLabels[o.InvoiceStatus]
		if !ok {
			invoice = o.InvoiceStatus
		}
		delivery, ok := deliveryLabels[it.Delivery]
		if !ok {
			delivery = string(it.Delivery)
		}
		rendered = append(rendered, fmt.Sprintf("• %s - %s - %s\n  [%s] [%s] [%s]",
			o.Name, o.PartnerName, f.Currency(o.AmountTotal), StateLabel(o.State), invoice, delivery))
	}
	return "DANH SÁCH ĐƠN HÀNG:\n\n" + strings.Join(rendered, "\n\n")
}

// OrderCancelled confirms a cancellation that was verified against the ERP
func (f *Formatter) OrderCancelled(order domain.SaleOrder) string {
	return fmt.Sprintf("✅ ĐÃ HỦY ĐƠN HÀNG THÀNH CÔNG\n\nMã đơn: %s\nKhách hàng: %s\nTổng tiền: %s\nTrạng thái: Đã hủy (Cancelled)\n\n Tồn kho đã được hoàn lại (nếu đã reserve)",
		order.Name, order.PartnerName, f.Currency(order.AmountTotal))
}

// CancelBlockedByInvoices explains that posted invoices must be reversed first
func (f *Formatter) CancelBlockedByInvoices(orderName string, invoices []domain.Invoice) string {
	names := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		names = append(names, fmt.Sprintf("%s (%s)", inv.Name, inv.State))
	}
	return fmt.Sprintf("❌ KHÔNG THỂ HỦY ĐƠN HÀNG %s\n\nLý do: Đã có hóa đơn được xác nhận:\n%s\n\n Giải pháp:\n1. Hủy/Đảo ngược (Reverse) các hóa đơn trong Odoo trước\n2. Sau đó mới có thể hủy đơn hàng\n\n⚠️ Lưu ý: Thao tác này cần quyền Kế toán/Quản trị viên",
		orderName, strings.Join(names, "\n"))
}

// CancelBlockedByPickings explains that completed deliveries need a return first
func (f *Formatter) CancelBlockedByPickings(orderName string, pickings []domain.Picking) string {
	names := make([]string, 0, len(pickings))
	for _, p := range pickings {
		names = append(names, fmt.Sprintf("%s (%s)", p.Name, p.State))
	}
	return fmt.Sprintf("❌ KHÔNG THỂ HỦY ĐƠN HÀNG %s\n\nLý do: Đã có phiếu giao hàng hoàn tất:\n%s\n\n Giải pháp:\n1. Tạo phiếu trả hàng (Return) trong Odoo\n2. Sau đó mới có thể hủy đơn hàng\n\n⚠️ Lưu ý: Cần kiểm tra kho hàng và quy trình hoàn trả",
		orderName, strings.Join(names, "\n"))
}

// CancelFault turns an ERP error raised while cancelling into remediation steps
func (f *Formatter) CancelFault(orderName, detail string) string {
	lower := strings.ToLower(detail)
	switch {
	case strings.Contains(lower, "invoice"):
		return fmt.Sprintf("❌ LỖI HỦY ĐƠN HÀNG: %s\n\nNguyên nhân: Có vấn đề với hóa đơn\nChi tiết: %s\n\n Giải pháp:\n1. Vào Odoo → Tìm đơn hàng %s\n2. Kiểm tra tab Invoices\n3. Hủy hoặc xóa các hóa đơn draft/posted\n4. Thử lại lệnh hủy đơn",
			orderName, detail, orderName)
	case strings.Contains(lower, "picking"), strings.Contains(lower, "delivery"):
		return fmt.Sprintf("❌ LỖI HỦY ĐƠN HÀNG: %s\n\nNguyên nhân: Có vấn đề với phiếu giao hàng\nChi tiết: %s\n\n Giải pháp:\n1. Vào Odoo → Tìm đơn hàng %s\n2. Kiểm tra tab Delivery\n3. Hủy hoặc trả hàng (Return) các phiếu giao hàng\n4. Thử lại lệnh hủy đơn",
			orderName, detail, orderName)
	case strings.Contains(lower, "done"):
		return fmt.Sprintf("❌ Đơn hàng %s đã hoàn tất, không thể hủy. Liên hệ quản trị viên.", orderName)
	default:
		return "❌ Lỗi khi hủy đơn hàng: " + detail
	}
}
