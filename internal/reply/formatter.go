// Package reply renders operation outcomes as chat text for sales staff.
package reply

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/pricing"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrencyLabel is appended to every rendered amount
const DefaultCurrencyLabel = "VNĐ"

// Formatter renders replies. It holds no request state and is safe for concurrent use.
type Formatter struct {
	label   string
	printer *message.Printer
}

// NewFormatter creates a formatter that labels amounts with currencyLabel
func NewFormatter(currencyLabel string) *Formatter {
	if currencyLabel == "" {
		currencyLabel = DefaultCurrencyLabel
	}
	return &Formatter{
		label:   currencyLabel,
		printer: message.NewPrinter(language.English),
	}
}

// Amount renders a whole-number amount with thousands separators, rounding half to even
func (f *Formatter) Amount(d decimal.Decimal) string {
	return f.printer.Sprintf("%d", d.RoundBank(0).IntPart())
}

// Currency renders an amount followed by the currency label
func (f *Formatter) Currency(d decimal.Decimal) string {
	return f.Amount(d) + " " + f.label
}

// DiscountLine describes the final price relative to the list price
func (f *Formatter) DiscountLine(base, final decimal.Decimal, pricelistName string) string {
	switch {
	case final.LessThan(base):
		pct := pricing.DiscountPercent(base, final)
		return fmt.Sprintf("Giá ưu đãi: %s (Giảm %s%% theo %s)", f.Currency(final), pct.StringFixed(1), pricelistName)
	case final.GreaterThan(base):
		return fmt.Sprintf("Giá điều chỉnh: %s (theo %s)", f.Currency(final), pricelistName)
	default:
		return fmt.Sprintf("Giá bán: %s", f.Currency(final))
	}
}

// PricingMessage renders a price suggestion
func (f *Formatter) PricingMessage(r domain.PricingResult) string {
	parts := []string{
		"Giá niêm yết: " + f.Currency(r.BasePrice),
		f.DiscountLine(r.BasePrice, r.SuggestedPrice, r.PricelistName),
	}
	if r.TaxRate.IsPositive() {
		parts = append(parts, fmt.Sprintf("Giá sau thuế (%s%%): %s", r.TaxRate.String(), f.Currency(r.PriceWithTax)))
	}
	return strings.Join(parts, "\n")
}

// PricingWithTotal appends the quantity and tax-inclusive total when more than one unit is priced
func (f *Formatter) PricingWithTotal(r domain.PricingResult) string {
	if r.IsAmbiguous || r.ProductID == 0 || r.Quantity <= 1 {
		return r.Message
	}
	total := r.PriceWithTax.Mul(decimal.NewFromInt(int64(r.Quantity)))
	return fmt.Sprintf("%s\nSố lượng: %d chiếc\nTổng thanh toán: %s", r.Message, r.Quantity, f.Currency(total))
}

// InsufficientStock explains that the requested quantity exceeds what is on hand
func (f *Formatter) InsufficientStock(product domain.Product, requested int) string {
	return fmt.Sprintf("❌ Sản phẩm '%s' không đủ tồn kho.\nYêu cầu: %d | Có sẵn: %s",
		product.Name, requested, product.QtyAvailable.String())
}

// ProductLine is one product as shown in lists, with its tax-inclusive price
type ProductLine struct {
	Name         string
	PriceWithTax decimal.Decimal
	QtyAvailable decimal.Decimal
}

// ProductList renders a catalogue listing, filtered by keyword when one is given
func (f *Formatter) ProductList(keyword string, products []ProductLine) string {
	if len(products) == 0 {
		if keyword != "" {
			return fmt.Sprintf("Không tìm thấy sản phẩm nào với từ khóa '%s'.", keyword)
		}
		return "Hiện tại không có sản phẩm nào."
	}

	lines := make([]string, 0, len(products))
	for _, p := range products {
		lines = append(lines, fmt.Sprintf("- %s - Giá: %s (Kho: %s)", p.Name, f.Currency(p.PriceWithTax), p.QtyAvailable.String()))
	}

	header := "Danh sách sản phẩm đang có:"
	if keyword != "" {
		header = fmt.Sprintf("Tìm thấy %d sản phẩm với từ khóa '%s':", len(products), keyword)
	}
	return header + "\n" + strings.Join(lines, "\n")
}

// ProductNotFound is shown when no saleable product matches
func (f *Formatter) ProductNotFound(keyword string) string {
	return fmt.Sprintf("❌ Không tìm thấy sản phẩm '%s' trong hệ thống.", keyword)
}

// AmbiguousProducts lists the products matching a keyword so the user can pick one
func (f *Formatter) AmbiguousProducts(keyword string, products []ProductLine) string {
	lines := make([]string, 0, len(products))
	for i, p := range products {
		stock := "⚠️ Hết hàng"
		if p.QtyAvailable.IsPositive() {
			stock = "Kho: " + p.QtyAvailable.String()
		}
		lines = append(lines, fmt.Sprintf("%d. %s - %s (%s)", i+1, p.Name, f.Currency(p.PriceWithTax), stock))
	}
	return fmt.Sprintf("⚠️ Tìm thấy %d sản phẩm với từ khóa '%s':\n\n%s\n\n💡 Vui lòng chọn chính xác tên sản phẩm cần xử lý.",
		len(products), keyword, strings.Join(lines, "\n"))
}

// CustomerNotFound names every search term that was used
func (f *Formatter) CustomerNotFound(name, phone, email string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Không tìm thấy khách hàng '%s'", name)
	if phone != "" {
		fmt.Fprintf(&b, " với SĐT %s", phone)
	}
	if email != "" {
		fmt.Fprintf(&b, " với email %s", email)
	}
	return b.String()
}

// AmbiguousCustomers lists matching customers with their phone numbers
func (f *Formatter) AmbiguousCustomers(candidates []domain.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tìm thấy %d khách hàng phù hợp:\n", len(candidates))
	for _, c := range candidates {
		phone := c.Phone
		if phone == "" {
			phone = "Không SĐT"
		}
		fmt.Fprintf(&b, "- %s (SĐT: %s)\n", c.Name, phone)
	}
	b.WriteString("\nVui lòng cung cấp thêm Email hoặc SĐT chính xác hơn.")
	return b.String()
}

// DefaultPricelist is shown when the customer has no pricelist of their own
func (f *Formatter) DefaultPricelist(partnerName string) string {
	return fmt.Sprintf("Khách hàng %s đang dùng bảng giá mặc định.", partnerName)
}

// PricelistSheet renders a customer's price policy and its rules
func (f *Formatter) PricelistSheet(partnerName string, pl domain.Pricelist, rules []domain.PriceRule) string {
	currency := pl.Currency
	if currency == "" {
		currency = f.label
	}
	status := "Đã khóa"
	if pl.Active {
		status = "Hoạt động"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 CHÍNH SÁCH GIÁ - %s\n\n🏷️ Hạng thành viên: %s\n💱 Đơn vị tiền tệ: %s\n✅ Trạng thái: %s\n",
		partnerName, pl.Name, currency, status)

	if len(rules) > 0 {
		b.WriteString("\n\n🎯 CHI TIẾT ƯU ĐÃI:")
		for _, r := range rules {
			minQty := ""
			if r.MinQuantity.IsPositive() {
				minQty = fmt.Sprintf(" (khi mua từ %s sp)", r.MinQuantity.String())
			}
			fmt.Fprintf(&b, "\n • %s%s: %s", ruleTarget(r), minQty, f.ruleDetail(r, currency))
		}
	}
	return b.String()
}

func ruleTarget(r domain.PriceRule) string {
	switch {
	case r.Scope == domain.ScopeGlobal:
		return "🔥 Tất cả sản phẩm"
	case r.Scope == domain.ScopeCategory && r.ScopeRefName != "":
		return "📂 Nhóm " + r.ScopeRefName
	case r.Scope == domain.ScopeProductTemplate && r.ScopeRefName != "":
		return "📱 " + r.ScopeRefName
	case r.Scope == domain.ScopeProductVariant && r.ScopeRefName != "":
		return "📱 " + r.ScopeRefName + " (Variant)"
	default:
		return "Sản phẩm khác"
	}
}

func (f *Formatter) ruleDetail(r domain.PriceRule, currency string) string {
	switch r.ComputeMode {
	case domain.ComputeFixed:
		price := decimal.Zero
		if r.FixedPrice != nil {
			price = *r.FixedPrice
		}
		return fmt.Sprintf("Giá cố định: %s %s", f.Amount(price), currency)
	case domain.ComputePercentage:
		pct := decimal.Zero
		if r.PercentPrice != nil {
			pct = *r.PercentPrice
		}
		return fmt.Sprintf("Giảm giá: %s%%", pct.String())
	case domain.ComputeFormula:
		detail := "Áp dụng giá sỉ theo công thức (Giá vốn + Lợi nhuận)"
		if r.FormulaDiscountPercent != nil && !r.FormulaDiscountPercent.IsZero() {
			detail += fmt.Sprintf(" - Chiết khấu thêm %s%%", r.FormulaDiscountPercent.String())
		}
		return detail
	default:
		return ""
	}
}
