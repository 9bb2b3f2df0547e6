package reply

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Opportunity is a created CRM opportunity as shown to the user
type Opportunity struct {
	LeadName        string
	Customer        string
	NewCustomer     bool
	Phone           string
	Email           string
	Product         string
	ExpectedRevenue *decimal.Decimal
}

// OpportunityCreated confirms a new opportunity and suggests next steps
func (f *Formatter) OpportunityCreated(o Opportunity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ ĐÃ TẠO CƠ HỘI CRM THÀNH CÔNG!\n\nMã Opportunity: %s\nKhách hàng: %s", o.LeadName, o.Customer)
	if o.NewCustomer {
		b.WriteString("\n⭐ Khách hàng mới đã được tạo tự động")
	}
	if o.Phone != "" {
		fmt.Fprintf(&b, "\nSĐT: %s", o.Phone)
	}
	if o.Email != "" {
		fmt.Fprintf(&b, "\nEmail: %s", o.Email)
	}
	if o.Product != "" {
		fmt.Fprintf(&b, "\nSản phẩm: %s", o.Product)
	}
	if o.ExpectedRevenue != nil {
		fmt.Fprintf(&b, "\nDoanh thu dự kiến: %s", f.Currency(*o.ExpectedRevenue))
	}

	product := o.Product
	if product == "" {
		product = "sản phẩm"
	}
	b.WriteString("\n\n💡 Bước tiếp theo:\n1. Gọi điện xác nhận nhu cầu\n2. Tạo báo giá khi khách đồng ý\n")
	fmt.Fprintf(&b, "3. Dùng lệnh: \"Tạo báo giá %s cho %s\"", product, o.Customer)
	return b.String()
}
