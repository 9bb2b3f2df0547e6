package repository

import (
	"context"
	"fmt"

	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/erp"
	"github.com/straye-as/sales-assistant/internal/matcher"
)

var partnerFields = []string{"name", "display_name", "phone", "email", "property_product_pricelist"}

type partnerRecord struct {
	ID          int64        `json:"id"`
	Name        erp.String   `json:"name"`
	DisplayName erp.String   `json:"display_name"`
	Phone       erp.String   `json:"phone"`
	Email       erp.String   `json:"email"`
	Pricelist   erp.Many2One `json:"property_product_pricelist"`
}

func (r partnerRecord) toDomain() domain.Partner {
	return domain.Partner{
		ID:            r.ID,
		Name:          string(r.Name),
		DisplayName:   string(r.DisplayName),
		Phone:         string(r.Phone),
		Email:         string(r.Email),
		PricelistID:   r.Pricelist.ID,
		PricelistName: r.Pricelist.Name,
	}
}

// NewPartner is a customer to be created from a chat request
type NewPartner struct {
	Name  string
	Phone string
	Email string
}

// PartnerRepository reads and creates customers in the ERP
type PartnerRepository struct {
	erp ERP
}

// NewPartnerRepository creates a new partner repository
func NewPartnerRepository(client ERP) *PartnerRepository {
	return &PartnerRepository{erp: client}
}

// Search returns partners matching the query, using the same conditions as matcher.Match
func (r *PartnerRepository) Search(ctx context.Context, query matcher.Query, limit int) ([]domain.Partner, error) {
	var records []partnerRecord
	opts := &erp.SearchOptions{Limit: limit}
	if err := r.erp.SearchRead(ctx, ModelPartner, matcher.PartnerDomain(query), partnerFields, opts, &records); err != nil {
		return nil, fmt.Errorf("failed to search partners: %w", err)
	}

	partners := make([]domain.Partner, 0, len(records))
	for _, rec := range records {
		partners = append(partners, rec.toDomain())
	}
	return partners, nil
}

// GetByID loads one partner
func (r *PartnerRepository) GetByID(ctx context.Context, id int64) (*domain.Partner, error) {
	var records []partnerRecord
	if err := r.erp.Read(ctx, ModelPartner, []int64{id}, partnerFields, &records); err != nil {
		return nil, fmt.Errorf("failed to read partner %d: %w", id, err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	p := records[0].toDomain()
	return &p, nil
}

// Create inserts an individual customer and returns its id
func (r *PartnerRepository) Create(ctx context.Context, p NewPartner) (int64, error) {
	values := map[string]any{
		"name":          p.Name,
		"customer_rank": 1,
		"is_company":    false,
	}
	if p.Phone != "" {
		values["phone"] = p.Phone
	}
	if p.Email != "" {
		values["email"] = p.Email
	}

	id, err := r.erp.Create(ctx, ModelPartner, values)
	if err != nil {
		return 0, fmt.Errorf("failed to create partner: %w", err)
	}
	return id, nil
}
