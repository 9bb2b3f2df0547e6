package reply_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/reply"
	"github.com/stretchr/testify/assert"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func ptr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestCurrency(t *testing.T) {
	f := reply.NewFormatter("")

	tests := []struct {
		in   decimal.Decimal
		want string
	}{
		{dec(0), "0 VNĐ"},
		{dec(999), "999 VNĐ"},
		{dec(18_000_000), "18,000,000 VNĐ"},
		{decimal.RequireFromString("19799999.5"), "19,800,000 VNĐ"},
		{decimal.RequireFromString("2.5"), "2 VNĐ"},
	}

	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, f.Currency(tt.in))
		})
	}
}

func TestDiscountLine(t *testing.T) {
	f := reply.NewFormatter("VNĐ")

	assert.Equal(t, "Giá ưu đãi: 18,000,000 VNĐ (Giảm 10.0% theo VIP)",
		f.DiscountLine(dec(20_000_000), dec(18_000_000), "VIP"))
	assert.Equal(t, "Giá điều chỉnh: 21,000,000 VNĐ (theo VIP)",
		f.DiscountLine(dec(20_000_000), dec(21_000_000), "VIP"))
	assert.Equal(t, "Giá bán: 20,000,000 VNĐ",
		f.DiscountLine(dec(20_000_000), dec(20_000_000), "VIP"))
}

func TestPricingMessage(t *testing.T) {
	f := reply.NewFormatter("VNĐ")
	r := domain.PricingResult{
		ProductID:      1,
		BasePrice:      dec(20_000_000),
		SuggestedPrice: dec(18_000_000),
		PriceWithTax:   dec(19_800_000),
		TaxRate:        dec(10),
		Quantity:       3,
		PricelistName:  "VIP",
	}

	msg := f.PricingMessage(r)
	assert.Equal(t, "Giá niêm yết: 20,000,000 VNĐ\nGiá ưu đãi: 18,000,000 VNĐ (Giảm 10.0% theo VIP)\nGiá sau thuế (10%): 19,800,000 VNĐ", msg)

	r.Message = msg
	assert.Equal(t, msg+"\nSố lượng: 3 chiếc\nTổng thanh toán: 59,400,000 VNĐ", f.PricingWithTotal(r))

	r.Quantity = 1
	assert.Equal(t, msg, f.PricingWithTotal(r))

	untaxed := domain.PricingResult{BasePrice: dec(100), SuggestedPrice: dec(100)}
	assert.Equal(t, "Giá niêm yết: 100 VNĐ\nGiá bán: 100 VNĐ", f.PricingMessage(untaxed))
}

func TestProductList(t *testing.T) {
	f := reply.NewFormatter("VNĐ")
	products := []reply.ProductLine{
		{Name: "iPhone 15", PriceWithTax: dec(22_000_000), QtyAvailable: dec(12)},
	}

	assert.Equal(t, "Tìm thấy 1 sản phẩm với từ khóa 'iphone':\n- iPhone 15 - Giá: 22,000,000 VNĐ (Kho: 12)",
		f.ProductList("iphone", products))
	assert.Equal(t, "Danh sách sản phẩm đang có:\n- iPhone 15 - Giá: 22,000,000 VNĐ (Kho: 12)",
		f.ProductList("", products))
	assert.Equal(t, "Không tìm thấy sản phẩm nào với từ khóa 'nokia'.", f.ProductList("nokia", nil))
	assert.Equal(t, "Hiện tại không có sản phẩm nào.", f.ProductList("", nil))
}

func TestAmbiguousProducts(t *testing.T) {
	f := reply.NewFormatter("VNĐ")
	msg := f.AmbiguousProducts("iphone", []reply.ProductLine{
		{Name: "iPhone 15", PriceWithTax: dec(22_000_000), QtyAvailable: dec(3)},
		{Name: "iPhone 14", PriceWithTax: dec(16_500_000), QtyAvailable: dec(0)},
	})

	assert.Equal(t, "⚠️ Tìm thấy 2 sản phẩm với từ khóa 'iphone':\n\n"+
		"1. iPhone 15 - 22,000,000 VNĐ (Kho: 3)\n"+
		"2. iPhone 14 - 16,500,000 VNĐ (⚠️ Hết hàng)\n\n"+
		"💡 Vui lòng chọn chính xác tên sản phẩm cần xử lý.", msg)
}

func TestCustomerMessages(t *testing.T) {
	f := reply.NewFormatter("VNĐ")

	assert.Equal(t, "Không tìm thấy khách hàng 'An'", f.CustomerNotFound("An", "", ""))
	assert.Equal(t, "Không tìm thấy khách hàng 'An' với SĐT 0799368057 với email an@example.com",
		f.CustomerNotFound("An", "0799368057", "an@example.com"))

	msg := f.AmbiguousCustomers([]domain.Candidate{
		{Name: "Nguyễn Văn An", Phone: "0799368057"},
		{Name: "Lê Thị An"},
	})
	assert.Equal(t, "Tìm thấy 2 khách hàng phù hợp:\n- Nguyễn Văn An (SĐT: 0799368057)\n- Lê Thị An (SĐT: Không SĐT)\n\nVui lòng cung cấp thêm Email hoặc SĐT chính xác hơn.", msg)
}

func TestPricelistSheet(t *testing.T) {
	f := reply.NewFormatter("VNĐ")
	pl := domain.Pricelist{Name: "Khách VIP", Currency: "VND", Active: true}
	rules := []domain.PriceRule{
		{Scope: domain.ScopeGlobal, ComputeMode: domain.ComputePercentage, PercentPrice: ptr(5)},
		{Scope: domain.ScopeProductTemplate, ScopeRefName: "iPhone 15", ComputeMode: domain.ComputeFixed, FixedPrice: ptr(17_500_000), MinQuantity: dec(2)},
		{Scope: domain.ScopeCategory, ScopeRefName: "Điện thoại", ComputeMode: domain.ComputeFormula, FormulaDiscountPercent: ptr(3)},
		{Scope: domain.ScopeProductVariant, ScopeRefName: "iPhone 15 (Đen)", ComputeMode: domain.ComputeFormula},
		{Scope: domain.ScopeCategory, ComputeMode: domain.ComputePercentage, PercentPrice: ptr(1)},
	}

	got := f.PricelistSheet("Nguyễn Văn An", pl, rules)
	want := "📋 CHÍNH SÁCH GIÁ - Nguyễn Văn An\n\n" +
		"🏷️ Hạng thành viên: Khách VIP\n" +
		"💱 Đơn vị tiền tệ: VND\n" +
		"✅ Trạng thái: Hoạt động\n" +
		"\n\n🎯 CHI TIẾT ƯU ĐÃI:" +
		"\n • 🔥 Tất cả sản phẩm: Giảm giá: 5%" +
		"\n • 📱 iPhone 15 (khi mua từ 2 sp): Giá cố định: 17,500,000 VND" +
		"\n • 📂 Nhóm Điện thoại: Áp dụng giá sỉ theo công thức (Giá vốn + Lợi nhuận) - Chiết khấu thêm 3%" +
		"\n • 📱 iPhone 15 (Đen) (Variant): Áp dụng giá sỉ theo công thức (Giá vốn + Lợi nhuận)" +
		"\n • Sản phẩm khác: Giảm giá: 1%"
	assert.Equal(t, want, got)
}

func TestPricelistSheet_InactiveWithoutRules(t *testing.T) {
	f := reply.NewFormatter("VNĐ")
	got := f.PricelistSheet("An", domain.Pricelist{Name: "Sỉ"}, nil)

	assert.Equal(t, "📋 CHÍNH SÁCH GIÁ - An\n\n🏷️ Hạng thành viên: Sỉ\n💱 Đơn vị tiền tệ: VNĐ\n✅ Trạng thái: Đã khóa\n", got)
	assert.Equal(t, "Khách hàng An đang dùng bảng giá mặc định.", f.DefaultPricelist("An"))
}

func TestInsufficientStock(t *testing.T) {
	f := reply.NewFormatter("VNĐ")
	msg := f.InsufficientStock(domain.Product{Name: "iPhone 15", QtyAvailable: dec(2)}, 5)
	assert.Equal(t, "❌ Sản phẩm 'iPhone 15' không đủ tồn kho.\nYêu cầu: 5 | Có sẵn: 2", msg)
}
