package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/straye-as/sales-assistant/internal/config"
	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/matcher"
	"github.com/straye-as/sales-assistant/internal/pricing"
	"github.com/straye-as/sales-assistant/internal/reply"
	"github.com/straye-as/sales-assistant/internal/repository"
	"go.uber.org/zap"
)

const msgMissingProduct = "❌ Vui lòng cung cấp tên sản phẩm"

// PricingRequest asks for the price of one product for a customer.
// Partner, when set, skips the customer lookup.
type PricingRequest struct {
	Product  string
	Customer matcher.Query
	Partner  *domain.Partner
	Quantity int
}

type ProductService struct {
	productRepo   *repository.ProductRepository
	pricelistRepo *repository.PricelistRepository
	customers     *CustomerService
	formatter     *reply.Formatter
	limits        config.AssistantConfig
	logger        *zap.Logger
}

func NewProductService(
	productRepo *repository.ProductRepository,
	pricelistRepo *repository.PricelistRepository,
	customers *CustomerService,
	formatter *reply.Formatter,
	limits config.AssistantConfig,
	logger *zap.Logger,
) *ProductService {
	if limits.ProductListLimit <= 0 {
		limits.ProductListLimit = 10
	}
	if limits.ProductSearchLimit <= 0 {
		limits.ProductSearchLimit = 20
	}
	if limits.ProductMatchLimit <= 0 {
		limits.ProductMatchLimit = 15
	}
	return &ProductService{
		productRepo:   productRepo,
		pricelistRepo: pricelistRepo,
		customers:     customers,
		formatter:     formatter,
		limits:        limits,
		logger:        logger,
	}
}

// ListProducts shows saleable products with tax-inclusive prices and stock.
// Without a keyword the top of the catalogue is listed.
func (s *ProductService) ListProducts(ctx context.Context, keyword string) (string, error) {
	keyword = strings.TrimSpace(keyword)
	limit := s.limits.ProductListLimit
	if keyword != "" {
		limit = s.limits.ProductSearchLimit
	}

	products, err := s.productRepo.SearchSaleable(ctx, keyword, limit)
	if err != nil {
		return "", remote(OpListProducts, err)
	}

	lines, err := s.productLines(ctx, products)
	if err != nil {
		return "", remote(OpListProducts, err)
	}
	return s.formatter.ProductList(keyword, lines), nil
}

// ResolveProduct finds the single saleable product matching name
func (s *ProductService) ResolveProduct(ctx context.Context, name string) (*domain.Product, error) {
	products, err := s.productRepo.SearchSaleable(ctx, name, s.limits.ProductMatchLimit)
	if err != nil {
		return nil, remote(OpSuggestPrice, err)
	}

	candidates := make([]domain.Candidate, 0, len(products))
	for _, p := range products {
		candidates = append(candidates, domain.Candidate{ID: p.ID, Name: p.Name})
	}

	result, err := matcher.Match(matcher.Query{Name: name}, candidates, s.limits.ProductMatchLimit)
	if err != nil {
		return nil, &domain.InputError{Message: msgMissingProduct}
	}

	byID := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	switch result.Kind {
	case matcher.Unique:
		product := byID[result.ID]
		return &product, nil
	case matcher.Ambiguous:
		matched := make([]domain.Product, 0, len(result.Candidates))
		for _, c := range result.Candidates {
			matched = append(matched, byID[c.ID])
		}
		lines, err := s.productLines(ctx, matched)
		if err != nil {
			return nil, remote(OpSuggestPrice, err)
		}
		return nil, &domain.AmbiguousError{
			Entity:     "product",
			Candidates: result.Candidates,
			Message:    s.formatter.AmbiguousProducts(name, lines),
		}
	default:
		return nil, &domain.NotFoundError{Entity: "product", Terms: []string{name}, Message: s.formatter.ProductNotFound(name)}
	}
}

// SuggestPricing prices a product for a customer and quantity.
// An unknown or ambiguous product is reported in the result rather than as an error,
// as is a quantity larger than the stock on hand.
func (s *ProductService) SuggestPricing(ctx context.Context, req PricingRequest) (domain.PricingResult, error) {
	name := strings.TrimSpace(req.Product)
	if name == "" {
		return domain.PricingResult{}, &domain.InputError{Message: msgMissingProduct}
	}

	product, err := s.ResolveProduct(ctx, name)
	if err != nil {
		var notFound *domain.NotFoundError
		var ambiguous *domain.AmbiguousError
		switch {
		case errors.As(err, &notFound):
			return domain.PricingResult{Quantity: req.Quantity, Message: notFound.Message}, nil
		case errors.As(err, &ambiguous):
			return domain.PricingResult{IsAmbiguous: true, Quantity: req.Quantity, Message: ambiguous.Message}, nil
		}
		return domain.PricingResult{}, err
	}

	if req.Quantity > 0 && product.QtyAvailable.LessThan(decimal.NewFromInt(int64(req.Quantity))) {
		return domain.PricingResult{
			ProductName: product.Name,
			BasePrice:   product.ListPrice,
			Quantity:    req.Quantity,
			Message:     s.formatter.InsufficientStock(*product, req.Quantity),
		}, nil
	}

	taxRate, err := s.productRepo.TaxRate(ctx, *product)
	if err != nil {
		return domain.PricingResult{}, remote(OpSuggestPrice, err)
	}

	pricelistID, pricelistName, err := s.pricelistFor(ctx, req)
	if err != nil {
		return domain.PricingResult{}, err
	}

	var rules []domain.PriceRule
	if pricelistID != 0 {
		rules, err = s.pricelistRepo.RulesForProduct(ctx, pricelistID, *product)
		if err != nil {
			s.logger.Warn("Failed to load pricelist rules, using list price",
				zap.Int64("pricelist_id", pricelistID),
				zap.Int64("product_id", product.ID),
				zap.Error(err),
			)
			rules = nil
		}
	}

	out := pricing.Resolve(pricing.Input{
		BasePrice: product.ListPrice,
		CostPrice: product.StandardPrice,
		TaxRate:   taxRate,
		Quantity:  req.Quantity,
		Rules:     rules,
	})

	result := domain.PricingResult{
		ProductID:      product.ID,
		ProductName:    product.Name,
		BasePrice:      product.ListPrice,
		SuggestedPrice: out.FinalPrice,
		PriceWithTax:   out.PriceWithTax,
		TaxRate:        taxRate,
		Quantity:       req.Quantity,
		PricelistName:  pricelistName,
	}
	result.Message = s.formatter.PricingMessage(result)
	return result, nil
}

// SuggestPrice is SuggestPricing rendered for chat, with the total when more than one unit is asked for
func (s *ProductService) SuggestPrice(ctx context.Context, req PricingRequest) (string, error) {
	result, err := s.SuggestPricing(ctx, req)
	if err != nil {
		return "", err
	}
	return s.formatter.PricingWithTotal(result), nil
}

// EstimateRevenue is list price times quantity of the first product matching keyword.
// It returns nil when nothing matches.
func (s *ProductService) EstimateRevenue(ctx context.Context, keyword string, quantity int) (*decimal.Decimal, error) {
	products, err := s.productRepo.SearchSaleable(ctx, keyword, 1)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, nil
	}
	revenue := products[0].ListPrice.Mul(decimal.NewFromInt(int64(quantity)))
	return &revenue, nil
}

// pricelistFor picks the customer's pricelist, falling back to the first active one.
// The name stays the default label unless the customer has a pricelist of their own.
func (s *ProductService) pricelistFor(ctx context.Context, req PricingRequest) (int64, string, error) {
	partner := req.Partner
	if partner == nil && strings.TrimSpace(req.Customer.Name) != "" {
		found, err := s.customers.FindCustomer(ctx, req.Customer)
		switch Kind(err) {
		case nil:
			partner = found
		case ErrRemote:
			return 0, "", err
		}
	}

	if partner != nil && partner.PricelistID != 0 {
		name := partner.PricelistName
		if name == "" {
			name = domain.DefaultPricelistName
		}
		return partner.PricelistID, name, nil
	}

	pl, err := s.pricelistRepo.FirstActive(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, domain.DefaultPricelistName, nil
		}
		return 0, "", remote(OpSuggestPrice, err)
	}
	return pl.ID, domain.DefaultPricelistName, nil
}

func (s *ProductService) productLines(ctx context.Context, products []domain.Product) ([]reply.ProductLine, error) {
	rates, err := s.productRepo.TaxRates(ctx, products)
	if err != nil {
		return nil, err
	}

	lines := make([]reply.ProductLine, 0, len(products))
	for _, p := range products {
		lines = append(lines, reply.ProductLine{
			Name:         p.Name,
			PriceWithTax: pricing.WithTax(p.ListPrice, rates[p.ID]),
			QtyAvailable: p.QtyAvailable,
		})
	}
	return lines, nil
}
