package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultPricelistName is shown when a customer has no pricelist of their own
const DefaultPricelistName = "Giá niêm yết (Mặc định)"

// Candidate is a match target fetched from the ERP party directory
type Candidate struct {
	ID          int64
	Name        string
	DisplayName string
	Phone       string
	Email       string
}

// Partner is a customer or contact record
type Partner struct {
	ID          int64
	Name        string
	DisplayName string
	Phone       string
	Email       string
	// PricelistID is zero when the partner uses the default pricelist
	PricelistID   int64
	PricelistName string
}

// Candidate converts the partner into a match target
func (p Partner) Candidate() Candidate {
	return Candidate{
		ID:          p.ID,
		Name:        p.Name,
		DisplayName: p.DisplayName,
		Phone:       p.Phone,
		Email:       p.Email,
	}
}

// Product is a saleable product variant
type Product struct {
	ID            int64
	Name          string
	ListPrice     decimal.Decimal
	StandardPrice decimal.Decimal
	QtyAvailable  decimal.Decimal
	TemplateID    int64
	CategoryID    int64
	TaxIDs        []int64
}

// Pricelist is a customer price policy
type Pricelist struct {
	ID       int64
	Name     string
	Currency string
	Active   bool
}

// RuleScope identifies what a price rule applies to
type RuleScope string

const (
	ScopeGlobal          RuleScope = "3_global"
	ScopeCategory        RuleScope = "2_product_category"
	ScopeProductTemplate RuleScope = "1_product"
	ScopeProductVariant  RuleScope = "0_product_variant"
)

// ComputeMode is the pricing formula kind a rule uses
type ComputeMode string

const (
	ComputeFixed      ComputeMode = "fixed"
	ComputePercentage ComputeMode = "percentage"
	ComputeFormula    ComputeMode = "formula"
)

// FormulaBase selects the value a formula rule discounts from
type FormulaBase string

const (
	FormulaBaseListPrice     FormulaBase = "list_price"
	FormulaBaseStandardPrice FormulaBase = "standard_price"
)

// PriceRule is a scoped, quantity-gated pricing override.
// Numeric fields are nil when the ERP did not send them.
type PriceRule struct {
	ID                     int64
	Scope                  RuleScope
	ScopeRefID             int64
	ScopeRefName           string
	ComputeMode            ComputeMode
	FixedPrice             *decimal.Decimal
	PercentPrice           *decimal.Decimal
	FormulaDiscountPercent *decimal.Decimal
	FormulaBase            FormulaBase
	MinQuantity            decimal.Decimal
}

// PricingResult is the outcome of a price suggestion for one product
type PricingResult struct {
	IsAmbiguous    bool
	ProductID      int64
	ProductName    string
	BasePrice      decimal.Decimal
	SuggestedPrice decimal.Decimal
	PriceWithTax   decimal.Decimal
	TaxRate        decimal.Decimal
	Quantity       int
	PricelistName  string
	Message        string
}

// OrderState is the ERP sales order state
type OrderState string

const (
	OrderStateDraft  OrderState = "draft"
	OrderStateSent   OrderState = "sent"
	OrderStateSale   OrderState = "sale"
	OrderStateDone   OrderState = "done"
	OrderStateCancel OrderState = "cancel"
)

// IsEditable reports whether the order may still be confirmed or changed
func (s OrderState) IsEditable() bool {
	return s == OrderStateDraft || s == OrderStateSent
}

// SaleOrder is a quotation or confirmed sales order owned by the ERP
type SaleOrder struct {
	ID            int64
	Name          string
	PartnerID     int64
	PartnerName   string
	State         OrderState
	InvoiceStatus string
	AmountTotal   decimal.Decimal
	LineIDs       []int64
	InvoiceIDs    []int64
	PickingIDs    []int64
	Lines         []OrderLine
}

// OrderLine is one product line of a sales order
type OrderLine struct {
	ID          int64
	ProductID   int64
	ProductName string
	Quantity    decimal.Decimal
	PriceUnit   decimal.Decimal
}

// NewOrderLine is a line to be created on an order
type NewOrderLine struct {
	ProductID   int64
	ProductName string
	Quantity    int
	PriceUnit   decimal.Decimal
}

// Invoice is a customer invoice linked to an order
type Invoice struct {
	ID    int64
	Name  string
	State string
}

// InvoiceStatePosted marks an invoice that has been confirmed in accounting
const InvoiceStatePosted = "posted"

// Picking is a delivery record linked to an order
type Picking struct {
	ID    int64
	Name  string
	State string
}

// PickingStateDone marks a completed delivery
const PickingStateDone = "done"

// DeliveryStatus summarizes the pickings of an order
type DeliveryStatus string

const (
	DeliveryNone    DeliveryStatus = "no"
	DeliveryPending DeliveryStatus = "pending"
	DeliveryPartial DeliveryStatus = "partial"
	DeliveryFull    DeliveryStatus = "full"
)

// DeliveryStatusOf derives the delivery status from picking states
func DeliveryStatusOf(pickings []Picking) DeliveryStatus {
	if len(pickings) == 0 {
		return DeliveryNone
	}
	done := 0
	for _, p := range pickings {
		if p.State == PickingStateDone {
			done++
		}
	}
	switch {
	case done == len(pickings):
		return DeliveryFull
	case done > 0:
		return DeliveryPartial
	default:
		return DeliveryPending
	}
}

// Lead is a CRM opportunity to be created
type Lead struct {
	Name            string
	PartnerID       int64
	Phone           string
	Email           string
	Description     string
	ExpectedRevenue *decimal.Decimal
	Probability     int
}

// AuditOutcome classifies how a chat request ended
type AuditOutcome string

const (
	OutcomeOK            AuditOutcome = "ok"
	OutcomeInputError    AuditOutcome = "input_error"
	OutcomeNotFound      AuditOutcome = "not_found"
	OutcomeAmbiguous     AuditOutcome = "ambiguous"
	OutcomeStateConflict AuditOutcome = "state_conflict"
	OutcomeRemoteFailure AuditOutcome = "remote_failure"
	OutcomeUnrecognized  AuditOutcome = "unrecognized"
)

// IntentAuditLog is one handled chat message
type IntentAuditLog struct {
	ID         uuid.UUID    `gorm:"type:uuid;primary_key"`
	RequestID  string       `gorm:"type:varchar(100);column:request_id"`
	SalesRep   string       `gorm:"type:varchar(200);column:sales_rep"`
	Message    string       `gorm:"type:text;not null"`
	Action     string       `gorm:"type:varchar(50);index"`
	Outcome    AuditOutcome `gorm:"type:varchar(30);not null;index"`
	Reply      string       `gorm:"type:text"`
	DurationMs int64        `gorm:"column:duration_ms"`
	CreatedAt  time.Time    `gorm:"not null;index"`
}

// TableName pins the table name used by migrations
func (IntentAuditLog) TableName() string {
	return "intent_audit_logs"
}
