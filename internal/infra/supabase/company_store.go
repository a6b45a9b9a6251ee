package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/evolutiehub/hub-api/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Companies (CRUD via PostgREST)
// ============================================================

// ListCompanies fetches all companies owned by the given user.
func (c *Client) ListCompanies(ctx context.Context, userID string) ([]domain.CompanyRow, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCompanies")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	path := fmt.Sprintf("companies?user_id=eq.%s&order=created_at.asc", url.QueryEscape(userID))
	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, err
	}

	var rows []domain.CompanyRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode companies: %w", err)
	}
	return rows, nil
}

// InsertCompany inserts a company row. The caller supplies the id so the
// schedule seeding that follows can reference it without a read-back.
func (c *Client) InsertCompany(ctx context.Context, row domain.CompanyRow) error {
	ctx, span := tracer.Start(ctx, "Supabase.InsertCompany")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", row.ID))

	body, err := c.doPost(ctx, "companies", row, preferRepresentation)
	if err != nil {
		return err
	}

	var results []domain.CompanyRow
	if err := json.Unmarshal(body, &results); err != nil {
		return fmt.Errorf("decode company insert: %w", err)
	}
	if len(results) == 0 {
		return fmt.Errorf("no result from companies insert")
	}
	return nil
}

// UpdateCompany issues a partial update scoped to the owning user.
// A company belonging to someone else patches zero rows and reports
// not-found, never leaking the other portfolio.
func (c *Client) UpdateCompany(ctx context.Context, userID, companyID string, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateCompany")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	path := fmt.Sprintf("companies?id=eq.%s&user_id=eq.%s",
		url.QueryEscape(companyID), url.QueryEscape(userID))
	body, err := c.doPatch(ctx, path, updates)
	if err != nil {
		return err
	}

	var results []domain.CompanyRow
	if err := json.Unmarshal(body, &results); err != nil {
		return fmt.Errorf("decode company update: %w", err)
	}
	if len(results) == 0 {
		return &domain.ErrNotFound{Resource: "company", ID: companyID}
	}
	return nil
}

// DeleteCompany removes a company; tax and fee rows cascade in the
// backend schema.
func (c *Client) DeleteCompany(ctx context.Context, userID, companyID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteCompany")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	path := fmt.Sprintf("companies?id=eq.%s&user_id=eq.%s",
		url.QueryEscape(companyID), url.QueryEscape(userID))
	body, err := c.doDelete(ctx, path)
	if err != nil {
		return err
	}

	var results []domain.CompanyRow
	if err := json.Unmarshal(body, &results); err != nil {
		return fmt.Errorf("decode company delete: %w", err)
	}
	if len(results) == 0 {
		return &domain.ErrNotFound{Resource: "company", ID: companyID}
	}
	return nil
}
