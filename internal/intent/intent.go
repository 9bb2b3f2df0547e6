// Package intent decodes and validates the action the language model chose.
package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/straye-as/sales-assistant/internal/domain"
)

// Action is one of the operations the assistant can perform
type Action string

const (
	ActionCreateOpportunity    Action = "create_opportunity"
	ActionListProducts         Action = "list_products"
	ActionSuggestPrice         Action = "suggest_price"
	ActionGetCustomerPricelist Action = "get_customer_pricelist"
	ActionCreateQuotation      Action = "create_quotation"
	ActionConfirmQuotation     Action = "confirm_quotation"
	ActionUpdateQuotation      Action = "update_quotation"
	ActionCreateOrder          Action = "create_order"
	ActionCheckOrders          Action = "check_orders"
	ActionCancelOrder          Action = "cancel_order"
	ActionChat                 Action = "chat"
)

// Actions lists every supported action in the order they are documented to the model
var Actions = []Action{
	ActionCreateOpportunity,
	ActionListProducts,
	ActionSuggestPrice,
	ActionGetCustomerPricelist,
	ActionCreateQuotation,
	ActionConfirmQuotation,
	ActionUpdateQuotation,
	ActionCreateOrder,
	ActionCheckOrders,
	ActionCancelOrder,
	ActionChat,
}

// Valid reports whether a is a supported action
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// Mutating reports whether the action changes ERP state
func (a Action) Mutating() bool {
	switch a {
	case ActionCreateOpportunity, ActionCreateQuotation, ActionConfirmQuotation,
		ActionUpdateQuotation, ActionCreateOrder, ActionCancelOrder:
		return true
	}
	return false
}

// FlexString accepts a JSON string, number or boolean. Models are inconsistent
// about quoting quantities and phone numbers.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err == nil {
		if v {
			*f = "true"
		} else {
			*f = ""
		}
		return nil
	}
	return fmt.Errorf("expected string or number, got %s", raw)
}

// String returns the value as a plain string
func (f FlexString) String() string { return string(f) }

// Intent is a classified request with its action-specific fields.
// Fields the action does not use are ignored.
type Intent struct {
	Action    Action     `json:"action" validate:"required"`
	Customer  FlexString `json:"customer" validate:"max=200"`
	Phone     FlexString `json:"phone" validate:"max=50"`
	Email     FlexString `json:"email" validate:"max=254"`
	Product   FlexString `json:"product" validate:"max=1000"`
	Qty       FlexString `json:"qty" validate:"max=200"`
	Note      FlexString `json:"note" validate:"max=2000"`
	Keyword   FlexString `json:"keyword" validate:"max=200"`
	OrderName FlexString `json:"order_name" validate:"max=64"`
	Response  string     `json:"response"`
}

// UnrecognizedError is returned when the model output is not a usable action
type UnrecognizedError struct {
	Action Action
	Reason string
}

func (e *UnrecognizedError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("unrecognized intent %q: %s", e.Action, e.Reason)
	}
	return "unrecognized intent: " + e.Reason
}

// Message is the corrective reply shown to the user
func (e *UnrecognizedError) Message() string {
	names := make([]string, 0, len(Actions))
	for _, a := range Actions {
		names = append(names, string(a))
	}
	return "Em chưa hiểu ý anh chị lắm. Em có thể hỗ trợ: " + strings.Join(names, ", ") + "."
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(requiredFields, Intent{})
	return v
}

// requiredFields enforces the fields each action cannot work without.
// Missing order names are reported by the order service with an example instead.
func requiredFields(sl validator.StructLevel) {
	in := sl.Current().Interface().(Intent)
	require := func(value FlexString, field, jsonName string) {
		if strings.TrimSpace(value.String()) == "" {
			sl.ReportError(value, jsonName, field, "required", "")
		}
	}

	switch in.Action {
	case ActionCreateOpportunity, ActionGetCustomerPricelist:
		require(in.Customer, "Customer", "customer")
	case ActionSuggestPrice:
		require(in.Product, "Product", "product")
	case ActionCreateQuotation, ActionCreateOrder:
		require(in.Customer, "Customer", "customer")
		require(in.Product, "Product", "product")
	}
}

var missingFieldMessages = map[string]string{
	"Customer": "⚠️ Vui lòng cung cấp tên khách hàng",
	"Product":  "❌ Vui lòng cung cấp tên sản phẩm",
}

// Parse decodes model output into a validated Intent
func Parse(content string) (*Intent, error) {
	var in Intent
	if err := json.Unmarshal([]byte(content), &in); err != nil {
		return nil, &UnrecognizedError{Reason: "invalid JSON: " + err.Error()}
	}

	in.Action = Action(strings.TrimSpace(string(in.Action)))
	if in.Action == "" {
		return nil, &UnrecognizedError{Reason: "missing action"}
	}
	if !in.Action.Valid() {
		return nil, &UnrecognizedError{Action: in.Action, Reason: "unsupported action"}
	}

	if err := validate.Struct(in); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			fe := ve[0]
			if fe.Tag() == "required" {
				if msg, ok := missingFieldMessages[fe.StructField()]; ok {
					return nil, &domain.InputError{Message: msg}
				}
			}
			return nil, domain.NewInputError("⚠️ Trường '%s' không hợp lệ", fe.Field())
		}
		return nil, &UnrecognizedError{Action: in.Action, Reason: err.Error()}
	}
	return &in, nil
}
