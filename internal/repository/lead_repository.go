package repository

import (
	"context"
	"fmt"

	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/erp"
)

// LeadRepository creates CRM opportunities in the ERP
type LeadRepository struct {
	erp ERP
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(client ERP) *LeadRepository {
	return &LeadRepository{erp: client}
}

// CreateOpportunity inserts a lead of type opportunity and returns its id
func (r *LeadRepository) CreateOpportunity(ctx context.Context, lead domain.Lead) (int64, error) {
	values := map[string]any{
		"name":     lead.Name,
		"type":     "opportunity",
		"priority": "1",
	}
	if lead.PartnerID != 0 {
		values["partner_id"] = lead.PartnerID
	}
	if lead.Phone != "" {
		values["phone"] = lead.Phone
	}
	if lead.Email != "" {
		values["email_from"] = lead.Email
	}
	if lead.Description != "" {
		values["description"] = lead.Description
	}
	if lead.ExpectedRevenue != nil && lead.ExpectedRevenue.IsPositive() {
		revenue, _ := lead.ExpectedRevenue.Float64()
		values["expected_revenue"] = revenue
		values["probability"] = lead.Probability
	}

	id, err := r.erp.Create(ctx, ModelLead, values)
	if err != nil {
		return 0, fmt.Errorf("failed to create opportunity: %w", err)
	}
	return id, nil
}

// Name reads back the stored name of a lead
func (r *LeadRepository) Name(ctx context.Context, id int64) (string, error) {
	var records []struct {
		ID   int64      `json:"id"`
		Name erp.String `json:"name"`
	}
	if err := r.erp.Read(ctx, ModelLead, []int64{id}, []string{"name"}, &records); err != nil {
		return "", fmt.Errorf("failed to read opportunity %d: %w", id, err)
	}
	if len(records) == 0 {
		return "", ErrNotFound
	}
	return string(records[0].Name), nil
}
