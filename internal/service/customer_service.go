package service

import (
	"context"
	"errors"
	"strings"

	"github.com/straye-as/sales-assistant/internal/config"
	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/matcher"
	"github.com/straye-as/sales-assistant/internal/reply"
	"github.com/straye-as/sales-assistant/internal/repository"
	"go.uber.org/zap"
)

const msgMissingCustomer = "⚠️ Vui lòng cung cấp tên khách hàng"

type CustomerService struct {
	partnerRepo   *repository.PartnerRepository
	pricelistRepo *repository.PricelistRepository
	formatter     *reply.Formatter
	limits        config.AssistantConfig
	logger        *zap.Logger
}

func NewCustomerService(
	partnerRepo *repository.PartnerRepository,
	pricelistRepo *repository.PricelistRepository,
	formatter *reply.Formatter,
	limits config.AssistantConfig,
	logger *zap.Logger,
) *CustomerService {
	if limits.AmbiguousLimit <= 0 {
		limits.AmbiguousLimit = matcher.DefaultAmbiguousLimit
	}
	if limits.PricelistRuleLimit <= 0 {
		limits.PricelistRuleLimit = 10
	}
	return &CustomerService{
		partnerRepo:   partnerRepo,
		pricelistRepo: pricelistRepo,
		formatter:     formatter,
		limits:        limits,
		logger:        logger,
	}
}

// FindCustomer resolves a name, phone and email to exactly one partner.
// It returns a NotFoundError or AmbiguousError carrying the reply for the user otherwise.
func (s *CustomerService) FindCustomer(ctx context.Context, query matcher.Query) (*domain.Partner, error) {
	if strings.TrimSpace(query.Name) == "" {
		return nil, &domain.InputError{Message: msgMissingCustomer}
	}

	partners, err := s.partnerRepo.Search(ctx, query, s.limits.AmbiguousLimit)
	if err != nil {
		return nil, remote(OpFindCustomer, err)
	}

	candidates := make([]domain.Candidate, 0, len(partners))
	for _, p := range partners {
		candidates = append(candidates, p.Candidate())
	}

	result, err := matcher.Match(query, candidates, s.limits.AmbiguousLimit)
	if err != nil {
		return nil, &domain.InputError{Message: msgMissingCustomer}
	}

	switch result.Kind {
	case matcher.Unique:
		for i := range partners {
			if partners[i].ID == result.ID {
				return &partners[i], nil
			}
		}
		return nil, &domain.NotFoundError{Entity: "customer", Terms: matcher.Terms(query),
			Message: s.formatter.CustomerNotFound(query.Name, query.Phone, query.Email)}
	case matcher.Ambiguous:
		s.logger.Debug("Ambiguous customer lookup",
			zap.String("name", query.Name),
			zap.Int("matches", result.Total),
		)
		return nil, &domain.AmbiguousError{
			Entity:     "customer",
			Candidates: result.Candidates,
			Message:    s.formatter.AmbiguousCustomers(result.Candidates),
		}
	default:
		return nil, &domain.NotFoundError{
			Entity:  "customer",
			Terms:   matcher.Terms(query),
			Message: s.formatter.CustomerNotFound(query.Name, query.Phone, query.Email),
		}
	}
}

// GetByID loads a partner already referenced by another record, such as an order
func (s *CustomerService) GetByID(ctx context.Context, id int64) (*domain.Partner, error) {
	partner, err := s.partnerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &domain.NotFoundError{Entity: "customer", Terms: []string{"id"}}
		}
		return nil, remote(OpFindCustomer, err)
	}
	return partner, nil
}

// GetPricelistSheet renders the price policy that applies to a customer
func (s *CustomerService) GetPricelistSheet(ctx context.Context, query matcher.Query) (string, error) {
	partner, err := s.FindCustomer(ctx, query)
	if err != nil {
		return "", err
	}

	if partner.PricelistID == 0 {
		return s.formatter.DefaultPricelist(partner.Name), nil
	}

	pricelist, err := s.pricelistRepo.GetByID(ctx, partner.PricelistID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.formatter.DefaultPricelist(partner.Name), nil
		}
		return "", remote(OpPricelistSheet, err)
	}

	rules, err := s.pricelistRepo.Rules(ctx, pricelist.ID, s.limits.PricelistRuleLimit)
	if err != nil {
		return "", remote(OpPricelistSheet, err)
	}

	return s.formatter.PricelistSheet(partner.Name, *pricelist, rules), nil
}
