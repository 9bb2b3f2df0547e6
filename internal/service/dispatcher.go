package service

import (
	"context"
	"strings"

	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/intent"
	"github.com/straye-as/sales-assistant/internal/matcher"
	"go.uber.org/zap"
)

// DefaultChatReply is used when a chat intent carries no response
const DefaultChatReply = "Em chưa hiểu ý anh chị lắm."

// Dispatcher routes a classified intent to the service that handles it
type Dispatcher struct {
	customers *CustomerService
	products  *ProductService
	orders    *OrderService
	crm       *CRMService
	logger    *zap.Logger
}

func NewDispatcher(
	customers *CustomerService,
	products *ProductService,
	orders *OrderService,
	crm *CRMService,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		customers: customers,
		products:  products,
		orders:    orders,
		crm:       crm,
		logger:    logger,
	}
}

// Dispatch runs the intent and returns the reply. Errors belong to the domain
// taxonomy and carry their own user-facing message.
func (d *Dispatcher) Dispatch(ctx context.Context, in *intent.Intent, salesRep string) (string, error) {
	d.logger.Debug("Dispatching intent",
		zap.String("action", string(in.Action)),
		zap.Bool("mutating", in.Action.Mutating()),
	)

	customer := queryOf(in)

	switch in.Action {
	case intent.ActionCreateOpportunity:
		qty, err := singleQuantity(in.Qty)
		if err != nil {
			return "", err
		}
		return d.crm.CreateOpportunity(ctx, OpportunityRequest{
			Customer: customer,
			Product:  strings.TrimSpace(in.Product.String()),
			Quantity: qty,
			Note:     strings.TrimSpace(in.Note.String()),
		})

	case intent.ActionListProducts:
		return d.products.ListProducts(ctx, in.Keyword.String())

	case intent.ActionSuggestPrice:
		qty, err := singleQuantity(in.Qty)
		if err != nil {
			return "", err
		}
		return d.products.SuggestPrice(ctx, PricingRequest{
			Product:  in.Product.String(),
			Customer: customer,
			Quantity: qty,
		})

	case intent.ActionGetCustomerPricelist:
		return d.customers.GetPricelistSheet(ctx, customer)

	case intent.ActionCreateQuotation:
		return d.orders.CreateQuotation(ctx, OrderRequest{
			Customer: customer,
			Product:  in.Product.String(),
			Qty:      in.Qty,
			SalesRep: salesRep,
		})

	case intent.ActionCreateOrder:
		return d.orders.CreateOrder(ctx, OrderRequest{
			Customer: customer,
			Product:  in.Product.String(),
			Qty:      in.Qty,
			SalesRep: salesRep,
		})

	case intent.ActionConfirmQuotation:
		return d.orders.ConfirmQuotation(ctx, in.OrderName.String(), salesRep)

	case intent.ActionUpdateQuotation:
		return d.orders.UpdateQuotation(ctx, UpdateRequest{
			OrderName: in.OrderName.String(),
			Product:   in.Product.String(),
			Qty:       in.Qty,
			SalesRep:  salesRep,
		})

	case intent.ActionCheckOrders:
		return d.orders.ListOrders(ctx, customer)

	case intent.ActionCancelOrder:
		return d.orders.CancelOrder(ctx, in.OrderName.String())

	case intent.ActionChat:
		if strings.TrimSpace(in.Response) == "" {
			return DefaultChatReply, nil
		}
		return in.Response, nil
	}

	return "", &intent.UnrecognizedError{Action: in.Action, Reason: "no handler"}
}

func queryOf(in *intent.Intent) matcher.Query {
	return matcher.Query{
		Name:  strings.TrimSpace(in.Customer.String()),
		Phone: strings.TrimSpace(in.Phone.String()),
		Email: strings.TrimSpace(in.Email.String()),
	}
}

func singleQuantity(qty intent.FlexString) (int, error) {
	q, err := intent.Quantity(qty)
	if err != nil {
		return 0, &domain.InputError{Message: msgQuantityNotInteger}
	}
	return q, nil
}
