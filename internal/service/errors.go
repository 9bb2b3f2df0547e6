package service

import (
	"errors"

	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/erp"
)

// Common service errors
var (
	// ErrMissingInput is returned when a field the operation needs is empty
	ErrMissingInput = errors.New("missing input")

	// ErrNotFound is returned when a customer, product or order is not found
	ErrNotFound = errors.New("resource not found")

	// ErrAmbiguous is returned when several records match and the user must narrow the search
	ErrAmbiguous = errors.New("ambiguous match")

	// ErrStateConflict is returned when the remote state forbids the operation
	ErrStateConflict = errors.New("state conflict")

	// ErrRemote is returned when the ERP or the language model fails
	ErrRemote = errors.New("remote failure")
)

// Operation names carried by RemoteFailure. They name the failing call in logs.
const (
	OpFindCustomer      = "customer.find"
	OpPricelistSheet    = "customer.pricelist"
	OpListProducts      = "product.list"
	OpSuggestPrice      = "product.suggest_price"
	OpCreateQuotation   = "order.create_quotation"
	OpConfirmQuotation  = "order.confirm"
	OpUpdateQuotation   = "order.update"
	OpCreateOrder       = "order.create"
	OpListOrders        = "order.list"
	OpCancelOrder       = "order.cancel"
	OpCreateOpportunity = "crm.create_opportunity"
	OpClassify          = "llm.classify"
)

// Kind maps an error from the taxonomy to one of the sentinels above, so
// callers can use errors.Is without knowing the concrete types
func Kind(err error) error {
	var (
		inputErr     *domain.InputError
		notFoundErr  *domain.NotFoundError
		ambiguousErr *domain.AmbiguousError
		conflictErr  *domain.StateConflictError
		remoteErr    *domain.RemoteFailure
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &inputErr):
		return ErrMissingInput
	case errors.As(err, &notFoundErr):
		return ErrNotFound
	case errors.As(err, &ambiguousErr):
		return ErrAmbiguous
	case errors.As(err, &conflictErr):
		return ErrStateConflict
	case errors.As(err, &remoteErr):
		return ErrRemote
	default:
		return ErrRemote
	}
}

// remote wraps a failed ERP call, leaving errors that are already part of the taxonomy untouched
func remote(op string, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != ErrRemote {
		return err
	}
	var rf *domain.RemoteFailure
	if errors.As(err, &rf) {
		return err
	}
	return &domain.RemoteFailure{Op: op, Err: err}
}

// faultDetail is the server-provided text of an ERP fault, or the error text otherwise
func faultDetail(err error) string {
	var fault *erp.Fault
	if errors.As(err, &fault) {
		return fault.Error()
	}
	return err.Error()
}
