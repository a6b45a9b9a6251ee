package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/evolutiehub/hub-api/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Tax & fee entries: bulk reads, seed inserts and keyed upserts
// ============================================================

const (
	taxConflictKey = "company_id,tipo,ano,mes"
	feeConflictKey = "company_id,ano,mes"
)

func inList(ids []string) string {
	escaped := make([]string, 0, len(ids))
	for _, id := range ids {
		escaped = append(escaped, url.QueryEscape(id))
	}
	return "in.(" + strings.Join(escaped, ",") + ")"
}

// ListTaxRows fetches every tax row of the given companies.
func (c *Client) ListTaxRows(ctx context.Context, companyIDs []string) ([]domain.TaxRow, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTaxRows")
	defer span.End()
	span.SetAttributes(attribute.Int("company.count", len(companyIDs)))

	if len(companyIDs) == 0 {
		return nil, nil
	}

	path := fmt.Sprintf("tax_entries?company_id=%s&order=ano.asc,mes.asc", inList(companyIDs))
	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, err
	}

	var rows []domain.TaxRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode tax_entries: %w", err)
	}
	return rows, nil
}

// InsertTaxRows bulk-inserts tax rows (schedule seeding).
func (c *Client) InsertTaxRows(ctx context.Context, rows []domain.TaxRow) error {
	ctx, span := tracer.Start(ctx, "Supabase.InsertTaxRows")
	defer span.End()
	span.SetAttributes(attribute.Int("row.count", len(rows)))

	if len(rows) == 0 {
		return nil
	}
	_, err := c.doPost(ctx, "tax_entries", rows, "return=minimal")
	return err
}

// UpsertTaxRow writes one tax cell keyed by its uniqueness constraint.
// Last write wins; there is no conflict detection across editors.
func (c *Client) UpsertTaxRow(ctx context.Context, row domain.TaxRow) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertTaxRow")
	defer span.End()
	span.SetAttributes(
		attribute.String("company.id", row.CompanyID),
		attribute.String("tipo", string(row.Tipo)),
		attribute.Int("ano", row.Ano),
		attribute.Int("mes", row.Mes),
	)

	path := "tax_entries?on_conflict=" + taxConflictKey
	_, err := c.doPost(ctx, path, row, preferMerge)
	return err
}

// ListFeeRows fetches every fee row of the given companies.
func (c *Client) ListFeeRows(ctx context.Context, companyIDs []string) ([]domain.FeeRow, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListFeeRows")
	defer span.End()
	span.SetAttributes(attribute.Int("company.count", len(companyIDs)))

	if len(companyIDs) == 0 {
		return nil, nil
	}

	path := fmt.Sprintf("fee_entries?company_id=%s&order=ano.asc,mes.asc", inList(companyIDs))
	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, err
	}

	var rows []domain.FeeRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode fee_entries: %w", err)
	}
	return rows, nil
}

// InsertFeeRows bulk-inserts fee rows (schedule seeding).
func (c *Client) InsertFeeRows(ctx context.Context, rows []domain.FeeRow) error {
	ctx, span := tracer.Start(ctx, "Supabase.InsertFeeRows")
	defer span.End()
	span.SetAttributes(attribute.Int("row.count", len(rows)))

	if len(rows) == 0 {
		return nil
	}
	_, err := c.doPost(ctx, "fee_entries", rows, "return=minimal")
	return err
}

// UpsertFeeRow writes one fee cell keyed by its uniqueness constraint.
func (c *Client) UpsertFeeRow(ctx context.Context, row domain.FeeRow) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertFeeRow")
	defer span.End()
	span.SetAttributes(
		attribute.String("company.id", row.CompanyID),
		attribute.Int("ano", row.Ano),
		attribute.Int("mes", row.Mes),
	)

	path := "fee_entries?on_conflict=" + feeConflictKey
	_, err := c.doPost(ctx, path, row, preferMerge)
	return err
}
