package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/matcher"
	"github.com/straye-as/sales-assistant/internal/reply"
	"github.com/straye-as/sales-assistant/internal/repository"
	"go.uber.org/zap"
)

// defaultProbability is set on opportunities that carry an expected revenue
const defaultProbability = 50

// OpportunityRequest describes a sales opportunity captured from chat
type OpportunityRequest struct {
	Customer matcher.Query
	Product  string
	Quantity int
	Note     string
}

type CRMService struct {
	leadRepo    *repository.LeadRepository
	partnerRepo *repository.PartnerRepository
	customers   *CustomerService
	products    *ProductService
	formatter   *reply.Formatter
	logger      *zap.Logger
}

func NewCRMService(
	leadRepo *repository.LeadRepository,
	partnerRepo *repository.PartnerRepository,
	customers *CustomerService,
	products *ProductService,
	formatter *reply.Formatter,
	logger *zap.Logger,
) *CRMService {
	return &CRMService{
		leadRepo:    leadRepo,
		partnerRepo: partnerRepo,
		customers:   customers,
		products:    products,
		formatter:   formatter,
		logger:      logger,
	}
}

// CreateOpportunity records a CRM opportunity. An unknown customer is created on the fly.
func (s *CRMService) CreateOpportunity(ctx context.Context, req OpportunityRequest) (string, error) {
	name := strings.TrimSpace(req.Customer.Name)
	if name == "" {
		return "", &domain.InputError{Message: msgMissingCustomer}
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	var partnerID int64
	newCustomer := false

	partner, err := s.customers.FindCustomer(ctx, req.Customer)
	switch Kind(err) {
	case nil:
		partnerID = partner.ID
	case ErrNotFound:
		partnerID, err = s.partnerRepo.Create(ctx, repository.NewPartner{
			Name:  name,
			Phone: req.Customer.Phone,
			Email: req.Customer.Email,
		})
		if err != nil {
			return "", remote(OpCreateOpportunity, err)
		}
		newCustomer = true
		s.logger.Info("Customer created for opportunity", zap.Int64("partner_id", partnerID), zap.String("name", name))
	default:
		return "", err
	}

	var revenue *decimal.Decimal
	if req.Product != "" {
		revenue, err = s.products.EstimateRevenue(ctx, req.Product, req.Quantity)
		if err != nil {
			s.logger.Warn("Failed to estimate opportunity revenue", zap.String("product", req.Product), zap.Error(err))
			revenue = nil
		}
		if revenue != nil && !revenue.IsPositive() {
			revenue = nil
		}
	}

	lead := domain.Lead{
		Name:        opportunityTitle(name, req.Product),
		PartnerID:   partnerID,
		Phone:       req.Customer.Phone,
		Email:       req.Customer.Email,
		Description: opportunityDescription(req, newCustomer),
	}
	if revenue != nil {
		lead.ExpectedRevenue = revenue
		lead.Probability = defaultProbability
	}

	id, err := s.leadRepo.CreateOpportunity(ctx, lead)
	if err != nil {
		return "", remote(OpCreateOpportunity, err)
	}

	leadName, err := s.leadRepo.Name(ctx, id)
	if err != nil {
		leadName = lead.Name
	}

	s.logger.Info("Opportunity created",
		zap.Int64("lead_id", id),
		zap.Int64("partner_id", partnerID),
		zap.Bool("new_customer", newCustomer),
	)

	return s.formatter.OpportunityCreated(reply.Opportunity{
		LeadName:        leadName,
		Customer:        name,
		NewCustomer:     newCustomer,
		Phone:           req.Customer.Phone,
		Email:           req.Customer.Email,
		Product:         req.Product,
		ExpectedRevenue: revenue,
	}), nil
}

func opportunityTitle(customer, product string) string {
	if product != "" {
		return fmt.Sprintf("Cơ hội: %s - %s", customer, product)
	}
	return "Cơ hội: " + customer
}

func opportunityDescription(req OpportunityRequest, newCustomer bool) string {
	var parts []string
	if req.Product != "" {
		parts = append(parts, fmt.Sprintf("Sản phẩm quan tâm: %s x %d", req.Product, req.Quantity))
	}
	if req.Note != "" {
		parts = append(parts, "Ghi chú: "+req.Note)
	}
	if newCustomer {
		parts = append(parts, "⭐ Khách hàng mới (tạo tự động)")
	}
	return strings.Join(parts, "\n")
}
