package reply_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/reply"
	"github.com/stretchr/testify/assert"
)

func sampleOrder() domain.SaleOrder {
	return domain.SaleOrder{
		ID:          42,
		Name:        "SO042",
		PartnerName: "Nguyễn Văn An",
		State:       domain.OrderStateDraft,
		AmountTotal: dec(59_400_000),
		Lines: []domain.OrderLine{
			{ProductName: "iPhone 15", Quantity: dec(3), PriceUnit: dec(18_000_000)},
		},
	}
}

func TestQuotationCreated(t *testing.T) {
	f := reply.NewFormatter("VNĐ")
	got := f.QuotationCreated(sampleOrder(), "Minh")

	assert.Equal(t, "✅ Tạo báo giá thành công!\n\n"+
		"Mã báo giá: SO042\n"+
		"Khách hàng: Nguyễn Văn An\n"+
		"Sản phẩm: iPhone 15 x 3\n"+
		"Tổng tiền: 59,400,000 VNĐ\n"+
		"Trạng thái: 📝 Chờ xác nhận (Draft)\n"+
		"Nhân viên: Minh\n\n"+
		"➡ Khi khách đồng ý, dùng lệnh: \"Xác nhận báo giá SO042\"", got)
}

func TestOrderCreatedAndConfirmed(t *testing.T) {
	f := reply.NewFormatter("VNĐ")
	order := sampleOrder()
	order.Lines = append(order.Lines, domain.OrderLine{ProductName: "Ốp lưng", Quantity: dec(2)})

	assert.Equal(t, "✅ Tạo đơn hàng thành công!\n\n"+
		"Mã đơn: SO042\n"+
		"Khách hàng: Nguyễn Văn An\n"+
		"Sản phẩm: iPhone 15 x 3, Ốp lưng x 2\n"+
		"Tổng tiền: 59,400,000 VNĐ\n"+
		"Trạng thái: Tạo đơn hàng thành công\n"+
		"Nhân viên: Minh\n\n"+
		"Đơn hàng đã được ghi nhận vào hệ thống!", f.OrderCreated(order, "Minh"))

	confirmed := f.OrderConfirmed(order, "Minh")
	assert.Contains(t, confirmed, "✅ Đã xác nhận!\n\nMã đơn: SO042")
	assert.Contains(t, confirmed, "Trạng thái: ✅ Đã xác nhận\nNhân viên xác nhận: Minh")
}

func TestQuotationUpdated(t *testing.T) {
	f := reply.NewFormatter("VNĐ")
	subtotal := decimal.NewFromInt(36_000_000)

	got := f.QuotationUpdated(sampleOrder(), []reply.UpdatedLine{
		{ProductName: "iPhone 15", Quantity: 2, Subtotal: &subtotal},
	}, "Minh")
	assert.Equal(t, "✅ ĐÃ CẬP NHẬT BÁO GIÁ SO042\n\n"+
		"📋 Thông tin mới:\n"+
		"Khách hàng: Nguyễn Văn An\n"+
		"Danh sách sản phẩm:\n"+
		"  • iPhone 15 x 2 - 36,000,000 VNĐ\n\n"+
		"💰 Tổng tiền: 59,400,000 VNĐ\n"+
		"📝 Cập nhật bởi: Minh", got)

	qtyOnly := f.QuotationUpdated(sampleOrder(), []reply.UpdatedLine{{ProductName: "iPhone 15", Quantity: 5}}, "Minh")
	assert.Contains(t, qtyOnly, "Danh sách sản phẩm:\niPhone 15 x 5\n\n")
}

func TestOrderList(t *testing.T) {
	f := reply.NewFormatter("VNĐ")
	confirmed := sampleOrder()
	confirmed.State = domain.OrderStateSale
	confirmed.InvoiceStatus = "to invoice"

	other := sampleOrder()
	other.Name = "SO043"
	other.State = "weird"
	other.InvoiceStatus = "no"

	got := f.OrderList([]reply.OrderListItem{
		{Order: confirmed, Delivery: domain.DeliveryPartial},
		{Order: other, Delivery: domain.DeliveryNone},
	})
	assert.Equal(t, "DANH SÁCH ĐƠN HÀNG:\n\n"+
		"• SO042 - Nguyễn Văn An - 59,400,000 VNĐ\n  [Đã xác nhận] [Cần xuất HĐ] [Giao 1 phần]\n\n"+
		"• SO043 - Nguyễn Văn An - 59,400,000 VNĐ\n  [weird] [Không HĐ] [Không giao]", got)

	assert.Equal(t, "Không tìm thấy đơn hàng nào.", f.OrderList(nil))
}

func TestCancelMessages(t *testing.T) {
	f := reply.NewFormatter("VNĐ")

	blocked := f.CancelBlockedByInvoices("SO042", []domain.Invoice{{Name: "INV/2026/0001", State: "posted"}})
	assert.Contains(t, blocked, "❌ KHÔNG THỂ HỦY ĐƠN HÀNG SO042")
	assert.Contains(t, blocked, "Lý do: Đã có hóa đơn được xác nhận:\nINV/2026/0001 (posted)")
	assert.Contains(t, blocked, "Kế toán/Quản trị viên")

	delivered := f.CancelBlockedByPickings("SO042", []domain.Picking{{Name: "WH/OUT/0007", State: "done"}})
	assert.Contains(t, delivered, "Lý do: Đã có phiếu giao hàng hoàn tất:\nWH/OUT/0007 (done)")
	assert.Contains(t, delivered, "Tạo phiếu trả hàng (Return)")

	cancelled := f.OrderCancelled(sampleOrder())
	assert.Contains(t, cancelled, "✅ ĐÃ HỦY ĐƠN HÀNG THÀNH CÔNG")
	assert.Contains(t, cancelled, "Tổng tiền: 59,400,000 VNĐ")
}

func TestCancelFault(t *testing.T) {
	f := reply.NewFormatter("VNĐ")

	tests := []struct {
		name   string
		detail string
		want   string
	}{
		{"invoice", "Cannot cancel: Invoice is posted", "Nguyên nhân: Có vấn đề với hóa đơn"},
		{"picking", "stock.picking locked", "Nguyên nhân: Có vấn đề với phiếu giao hàng"},
		{"delivery", "Delivery already validated", "Kiểm tra tab Delivery"},
		{"done", "order is done", "đã hoàn tất, không thể hủy"},
		{"other", errors.New("timeout").Error(), "❌ Lỗi khi hủy đơn hàng: timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, f.CancelFault("SO042", tt.detail), tt.want)
		})
	}
}

func TestOpportunityCreated(t *testing.T) {
	f := reply.NewFormatter("VNĐ")
	revenue := dec(60_000_000)

	got := f.OpportunityCreated(reply.Opportunity{
		LeadName:        "Cơ hội: An - iPhone 15",
		Customer:        "An",
		NewCustomer:     true,
		Phone:           "0799368057",
		Product:         "iPhone 15",
		ExpectedRevenue: &revenue,
	})
	assert.Equal(t, "✅ ĐÃ TẠO CƠ HỘI CRM THÀNH CÔNG!\n\n"+
		"Mã Opportunity: Cơ hội: An - iPhone 15\n"+
		"Khách hàng: An\n"+
		"⭐ Khách hàng mới đã được tạo tự động\n"+
		"SĐT: 0799368057\n"+
		"Sản phẩm: iPhone 15\n"+
		"Doanh thu dự kiến: 60,000,000 VNĐ\n\n"+
		"💡 Bước tiếp theo:\n"+
		"1. Gọi điện xác nhận nhu cầu\n"+
		"2. Tạo báo giá khi khách đồng ý\n"+
		"3. Dùng lệnh: \"Tạo báo giá iPhone 15 cho An\"", got)

	plain := f.OpportunityCreated(reply.Opportunity{LeadName: "Cơ hội: Bình", Customer: "Bình"})
	assert.Contains(t, plain, "\"Tạo báo giá sản phẩm cho Bình\"")
	assert.NotContains(t, plain, "Doanh thu")
}
