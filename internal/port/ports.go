// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/evolutiehub/hub-api/internal/domain"
)

// CompanyStore defines all data operations on the portfolio tables.
// Implemented by the Supabase adapter (or any other persistence layer).
type CompanyStore interface {
	// Companies
	ListCompanies(ctx context.Context, userID string) ([]domain.CompanyRow, error)
	InsertCompany(ctx context.Context, row domain.CompanyRow) error
	UpdateCompany(ctx context.Context, userID, companyID string, updates map[string]any) error
	DeleteCompany(ctx context.Context, userID, companyID string) error

	// Tax entries
	ListTaxRows(ctx context.Context, companyIDs []string) ([]domain.TaxRow, error)
	InsertTaxRows(ctx context.Context, rows []domain.TaxRow) error
	UpsertTaxRow(ctx context.Context, row domain.TaxRow) error

	// Fee entries
	ListFeeRows(ctx context.Context, companyIDs []string) ([]domain.FeeRow, error)
	InsertFeeRows(ctx context.Context, rows []domain.FeeRow) error
	UpsertFeeRow(ctx context.Context, row domain.FeeRow) error
}

// AuthProvider delegates authentication to the backend's built-in auth.
// This system stores no credentials of its own.
type AuthProvider interface {
	SignUp(ctx context.Context, email, password, nome string) (*domain.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// RegistryLookup fetches public company-registry data by CNPJ.
type RegistryLookup interface {
	LookupCNPJ(ctx context.Context, cnpj string) (*domain.RegistryCompany, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
