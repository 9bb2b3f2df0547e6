package service_test

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/straye-as/sales-assistant/internal/config"
	"github.com/straye-as/sales-assistant/internal/erp"
	"github.com/straye-as/sales-assistant/internal/erp/erptest"
	"github.com/straye-as/sales-assistant/internal/matcher"
	"github.com/straye-as/sales-assistant/internal/reply"
	"github.com/straye-as/sales-assistant/internal/repository"
	"github.com/straye-as/sales-assistant/internal/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type record = map[string]any

// fakeERP keeps a small sales database behind an erptest.Server
type fakeERP struct {
	*erptest.Server

	mu         sync.Mutex
	nextID     int64
	partners   map[int64]record
	products   map[int64]record
	taxes      map[int64]float64
	pricelists map[int64]record
	rules      []record
	orders     map[int64]record
	lines      map[int64]record
	invoices   map[int64]record
	pickings   map[int64]record
	leads      map[int64]record

	// cancelFault is returned by action_cancel when set
	cancelFault error
	// ignoreCancel makes action_cancel succeed without changing the state
	ignoreCancel bool
}

func newFakeERP(t *testing.T) *fakeERP {
	f := &fakeERP{
		Server:     erptest.NewServer(t),
		nextID:     1000,
		partners:   map[int64]record{},
		products:   map[int64]record{},
		taxes:      map[int64]float64{},
		pricelists: map[int64]record{},
		orders:     map[int64]record{},
		lines:      map[int64]record{},
		invoices:   map[int64]record{},
		pickings:   map[int64]record{},
		leads:      map[int64]record{},
	}
	f.install()
	return f
}

func (f *fakeERP) addPartner(id int64, name, phone string, pricelist any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partners[id] = record{"id": id, "name": name, "display_name": name, "phone": orFalse(phone), "email": false,
		"property_product_pricelist": pricelist}
}

func (f *fakeERP) addProduct(id int64, name string, listPrice, stock float64, taxID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	taxes := []int64{}
	if taxID != 0 {
		taxes = append(taxes, taxID)
	}
	f.products[id] = record{"id": id, "name": name, "list_price": listPrice, "standard_price": listPrice * 0.75,
		"qty_available": stock, "product_tmpl_id": []any{id + 100, name}, "categ_id": []any{1, "Phones"}, "taxes_id": taxes}
}

func (f *fakeERP) addTax(id int64, amount float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taxes[id] = amount
}

func (f *fakeERP) addPricelist(id int64, name string, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pricelists[id] = record{"id": id, "name": name, "currency_id": []any{23, "VND"}, "active": active}
}

func (f *fakeERP) addPercentRule(pricelistID int64, percent, minQty float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.rules = append(f.rules, record{"id": f.nextID, "pricelist_id": []any{pricelistID, "Pricelist"},
		"applied_on": "3_global", "categ_id": false, "product_tmpl_id": false, "product_id": false,
		"compute_price": "percentage", "fixed_price": 0, "percent_price": percent, "price_discount": 0,
		"base": "list_price", "min_quantity": minQty})
}

// addOrder stores an order with one line per product id and quantity pair
func (f *fakeERP) addOrder(id int64, name string, partnerID int64, state string, productQty ...float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	partner := f.partners[partnerID]
	f.orders[id] = record{"id": id, "name": name, "partner_id": []any{partnerID, partner["name"]}, "state": state,
		"invoice_status": "no", "amount_total": 0.0, "order_line": []int64{}, "invoice_ids": []int64{}, "picking_ids": []int64{}}
	for i := 0; i+1 < len(productQty); i += 2 {
		product := f.products[int64(productQty[i])]
		f.addLineLocked(id, int64(productQty[i]), productQty[i+1], product["list_price"].(float64))
	}
	f.recomputeLocked(id)
}

func (f *fakeERP) addInvoice(orderID int64, name, state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.invoices[f.nextID] = record{"id": f.nextID, "name": name, "state": state}
	f.orders[orderID]["invoice_ids"] = append(copyIDs(f.orders[orderID]["invoice_ids"]), f.nextID)
}

func (f *fakeERP) addPicking(orderID int64, name, state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.pickings[f.nextID] = record{"id": f.nextID, "name": name, "state": state}
	f.orders[orderID]["picking_ids"] = append(copyIDs(f.orders[orderID]["picking_ids"]), f.nextID)
}

func (f *fakeERP) order(id int64) record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyRecord(f.orders[id])
}

func (f *fakeERP) orderLines(id int64) []record {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []record
	for _, lineID := range copyIDs(f.orders[id]["order_line"]) {
		out = append(out, copyRecord(f.lines[lineID]))
	}
	return out
}

func (f *fakeERP) install() {
	f.Handle(repository.ModelPartner, "search_read", f.locked(func(args []any, kw record) (any, error) {
		return limit(sorted(f.partners), kw), nil
	}))
	f.Handle(repository.ModelPartner, "read", f.locked(func(args []any, kw record) (any, error) {
		return pick(f.partners, ids(args)), nil
	}))
	f.Handle(repository.ModelPartner, "create", f.locked(func(args []any, kw record) (any, error) {
		values := args[0].(record)
		f.nextID++
		f.partners[f.nextID] = record{"id": f.nextID, "name": values["name"], "display_name": values["name"],
			"phone": orFalse(values["phone"]), "email": orFalse(values["email"]), "property_product_pricelist": false}
		return f.nextID, nil
	}))

	f.Handle(repository.ModelProduct, "search_read", f.locked(func(args []any, kw record) (any, error) {
		keyword, _ := termValue(args[0], "name", "ilike").(string)
		var out []record
		for _, p := range sorted(f.products) {
			// unaccent ilike, as on a database with the unaccent extension
			if keyword == "" || strings.Contains(matcher.Fold(p["name"].(string)), matcher.Fold(keyword)) {
				out = append(out, p)
			}
		}
		return limit(out, kw), nil
	}))
	f.Handle(repository.ModelProduct, "read", f.locked(func(args []any, kw record) (any, error) {
		return pick(f.products, ids(args)), nil
	}))
	f.Handle(repository.ModelTax, "read", f.locked(func(args []any, kw record) (any, error) {
		out := []record{}
		for _, id := range ids(args) {
			if amount, ok := f.taxes[id]; ok {
				out = append(out, record{"id": id, "amount": amount})
			}
		}
		return out, nil
	}))

	f.Handle(repository.ModelPricelist, "search_read", f.locked(func(args []any, kw record) (any, error) {
		var out []record
		for _, pl := range sorted(f.pricelists) {
			if pl["active"] == true {
				out = append(out, pl)
			}
		}
		return limit(out, kw), nil
	}))
	f.Handle(repository.ModelPricelist, "read", f.locked(func(args []any, kw record) (any, error) {
		return pick(f.pricelists, ids(args)), nil
	}))
	f.Handle(repository.ModelPricelistItem, "search_read", f.locked(func(args []any, kw record) (any, error) {
		pricelistID := toInt(termValue(args[0], "pricelist_id", "="))
		out := []record{}
		for _, r := range f.rules {
			if r["pricelist_id"].([]any)[0].(int64) == pricelistID {
				out = append(out, r)
			}
		}
		return limit(out, kw), nil
	}))

	f.Handle(repository.ModelSaleOrder, "search_read", f.locked(func(args []any, kw record) (any, error) {
		name, _ := termValue(args[0], "name", "=").(string)
		partnerID := toInt(termValue(args[0], "partner_id", "="))
		var out []record
		all := sorted(f.orders)
		for i := len(all) - 1; i >= 0; i-- {
			o := all[i]
			if name != "" && o["name"] != name {
				continue
			}
			if partnerID != 0 && o["partner_id"].([]any)[0] != partnerID {
				continue
			}
			out = append(out, o)
		}
		return limit(out, kw), nil
	}))
	f.Handle(repository.ModelSaleOrder, "read", f.locked(func(args []any, kw record) (any, error) {
		return pick(f.orders, ids(args)), nil
	}))
	f.Handle(repository.ModelSaleOrder, "create", f.locked(func(args []any, kw record) (any, error) {
		values := args[0].(record)
		partnerID := toInt(values["partner_id"])
		f.nextID++
		id := f.nextID
		f.orders[id] = record{"id": id, "name": fmt.Sprintf("S%05d", id), "partner_id": []any{partnerID, f.partners[partnerID]["name"]},
			"state": "draft", "invoice_status": "no", "amount_total": 0.0, "order_line": []int64{},
			"invoice_ids": []int64{}, "picking_ids": []int64{}, "note": values["note"]}
		f.applyLineCommandsLocked(id, values["order_line"])
		f.recomputeLocked(id)
		return id, nil
	}))
	f.Handle(repository.ModelSaleOrder, "write", f.locked(func(args []any, kw record) (any, error) {
		values := args[1].(record)
		for _, id := range ids(args) {
			if note, ok := values["note"]; ok {
				f.orders[id]["note"] = note
			}
			f.applyLineCommandsLocked(id, values["order_line"])
			f.recomputeLocked(id)
		}
		return true, nil
	}))
	f.Handle(repository.ModelSaleOrder, "action_confirm", f.locked(func(args []any, kw record) (any, error) {
		for _, id := range ids(args) {
			f.orders[id]["state"] = "sale"
		}
		return true, nil
	}))
	f.Handle(repository.ModelSaleOrder, "action_cancel", f.locked(func(args []any, kw record) (any, error) {
		if f.cancelFault != nil {
			return nil, f.cancelFault
		}
		if !f.ignoreCancel {
			for _, id := range ids(args) {
				f.orders[id]["state"] = "cancel"
			}
		}
		return true, nil
	}))

	f.Handle(repository.ModelSaleOrderLine, "read", f.locked(func(args []any, kw record) (any, error) {
		return pick(f.lines, ids(args)), nil
	}))
	f.Handle(repository.ModelSaleOrderLine, "write", f.locked(func(args []any, kw record) (any, error) {
		values := args[1].(record)
		for _, id := range ids(args) {
			line := f.lines[id]
			if qty, ok := values["product_uom_qty"]; ok {
				line["product_uom_qty"] = qty.(float64)
			}
			f.recomputeLocked(toInt(line["order_id"]))
		}
		return true, nil
	}))
	f.Handle(repository.ModelSaleOrderLine, "unlink", f.locked(func(args []any, kw record) (any, error) {
		for _, id := range ids(args) {
			line, ok := f.lines[id]
			if !ok {
				continue
			}
			orderID := toInt(line["order_id"])
			var kept []int64
			for _, lineID := range copyIDs(f.orders[orderID]["order_line"]) {
				if lineID != id {
					kept = append(kept, lineID)
				}
			}
			f.orders[orderID]["order_line"] = kept
			delete(f.lines, id)
			f.recomputeLocked(orderID)
		}
		return true, nil
	}))

	f.Handle(repository.ModelInvoice, "read", f.locked(func(args []any, kw record) (any, error) {
		return pick(f.invoices, ids(args)), nil
	}))
	f.Handle(repository.ModelPicking, "read", f.locked(func(args []any, kw record) (any, error) {
		return pick(f.pickings, ids(args)), nil
	}))

	f.Handle(repository.ModelLead, "create", f.locked(func(args []any, kw record) (any, error) {
		values := copyRecord(args[0].(record))
		f.nextID++
		values["id"] = f.nextID
		f.leads[f.nextID] = values
		return f.nextID, nil
	}))
	f.Handle(repository.ModelLead, "read", f.locked(func(args []any, kw record) (any, error) {
		return pick(f.leads, ids(args)), nil
	}))
}

func (f *fakeERP) locked(h func(args []any, kw record) (any, error)) erptest.Handler {
	return func(args []any, kwargs map[string]any) (any, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		return h(args, kwargs)
	}
}

func (f *fakeERP) applyLineCommandsLocked(orderID int64, commands any) {
	list, _ := commands.([]any)
	for _, c := range list {
		cmd := c.([]any)
		if toInt(cmd[0]) != 0 {
			continue
		}
		values := cmd[2].(record)
		f.addLineLocked(orderID, toInt(values["product_id"]), values["product_uom_qty"].(float64), values["price_unit"].(float64))
	}
}

func (f *fakeERP) addLineLocked(orderID, productID int64, qty, price float64) {
	f.nextID++
	f.lines[f.nextID] = record{"id": f.nextID, "order_id": orderID,
		"product_id": []any{productID, f.products[productID]["name"]}, "product_uom_qty": qty, "price_unit": price}
	f.orders[orderID]["order_line"] = append(copyIDs(f.orders[orderID]["order_line"]), f.nextID)
}

func (f *fakeERP) recomputeLocked(orderID int64) {
	total := 0.0
	for _, lineID := range copyIDs(f.orders[orderID]["order_line"]) {
		line := f.lines[lineID]
		total += line["product_uom_qty"].(float64) * line["price_unit"].(float64)
	}
	f.orders[orderID]["amount_total"] = total
}

// termValue finds the value of the first (field, operator, value) condition in a domain
func termValue(domain any, field, operator string) any {
	list, _ := domain.([]any)
	for _, el := range list {
		term, ok := el.([]any)
		if ok && len(term) == 3 && term[0] == field && term[1] == operator {
			return term[2]
		}
	}
	return nil
}

func ids(args []any) []int64 {
	list, _ := args[0].([]any)
	out := make([]int64, 0, len(list))
	for _, v := range list {
		out = append(out, toInt(v))
	}
	return out
}

func toInt(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

func copyIDs(v any) []int64 {
	list, _ := v.([]int64)
	return append([]int64(nil), list...)
}

func copyRecord(r record) record {
	out := make(record, len(r))
	for k, v := range r {
		if l, ok := v.([]int64); ok {
			v = append([]int64{}, l...)
		}
		out[k] = v
	}
	return out
}

func sorted(store map[int64]record) []record {
	keys := make([]int64, 0, len(store))
	for k := range store {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]record, 0, len(keys))
	for _, k := range keys {
		out = append(out, copyRecord(store[k]))
	}
	return out
}

func pick(store map[int64]record, wanted []int64) []record {
	out := []record{}
	for _, id := range wanted {
		if r, ok := store[id]; ok {
			out = append(out, copyRecord(r))
		}
	}
	return out
}

func limit(records []record, kwargs record) []record {
	if records == nil {
		records = []record{}
	}
	if n := toInt(kwargs["limit"]); n > 0 && int(n) < len(records) {
		return records[:n]
	}
	return records
}

func orFalse(v any) any {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return false
}

// services wires every service against a fake ERP
type services struct {
	erp        *fakeERP
	customers  *service.CustomerService
	products   *service.ProductService
	orders     *service.OrderService
	crm        *service.CRMService
	dispatcher *service.Dispatcher
}

func newServices(t *testing.T) *services {
	t.Helper()
	fake := newFakeERP(t)
	client, err := erp.NewClient(fake.Config(), zap.NewNop())
	require.NoError(t, err)

	logger := zap.NewNop()
	formatter := reply.NewFormatter("")
	limits := config.AssistantConfig{}

	partnerRepo := repository.NewPartnerRepository(client)
	productRepo := repository.NewProductRepository(client)
	pricelistRepo := repository.NewPricelistRepository(client)
	orderRepo := repository.NewSaleOrderRepository(client)
	leadRepo := repository.NewLeadRepository(client)

	customers := service.NewCustomerService(partnerRepo, pricelistRepo, formatter, limits, logger)
	products := service.NewProductService(productRepo, pricelistRepo, customers, formatter, limits, logger)
	orders := service.NewOrderService(orderRepo, customers, products, formatter, limits, logger)
	crm := service.NewCRMService(leadRepo, partnerRepo, customers, products, formatter, logger)

	return &services{
		erp:        fake,
		customers:  customers,
		products:   products,
		orders:     orders,
		crm:        crm,
		dispatcher: service.NewDispatcher(customers, products, orders, crm, logger),
	}
}

// seedCatalog adds a public pricelist without rules, a VIP customer with a 10%
// discount from 2 units, a plain customer and one taxed product
func (s *services) seedCatalog() {
	s.erp.addPricelist(1, "Public Pricelist", true)
	s.erp.addPricelist(3, "VIP", true)
	s.erp.addPercentRule(3, 10, 2)
	s.erp.addPartner(7, "Anh Tuấn", "0799 368 057", []any{3, "VIP"})
	s.erp.addPartner(8, "Chị Lan", "0901 234 567", false)
	s.erp.addTax(1, 10)
	s.erp.addProduct(11, "iPhone 15", 20000000, 50, 1)
}
