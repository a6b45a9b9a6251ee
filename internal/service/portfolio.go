// Package service provides the business logic layer (use cases).
// PortfolioService owns the per-user company portfolio: loading it from
// the backend, filtering it, and mutating companies and their schedules.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/evolutiehub/hub-api/internal/domain"
	"github.com/evolutiehub/hub-api/internal/infra/observability"
	"github.com/evolutiehub/hub-api/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var portfolioTracer = otel.Tracer("service/portfolio")

// Subscriber is notified whenever a user's portfolio snapshot is replaced.
type Subscriber func(userID string, companies []domain.Company)

// portfolio is one user's in-memory snapshot. loadedSeq is the sequence
// number of the reload whose result is currently applied; a reload that
// finishes after a later one is discarded instead of clobbering it.
type portfolio struct {
	companies []domain.Company
	loadedSeq uint64
}

// PortfolioService orchestrates portfolio operations via the company store.
// Writes go to the backend first; the snapshot is then refreshed by a full
// reload, except deletion, which only removes the company locally.
type PortfolioService struct {
	store   port.CompanyStore
	metrics *observability.Metrics
	logger  *zap.Logger

	mu         sync.Mutex
	portfolios map[string]*portfolio
	nextSeq    map[string]uint64
	subs       []Subscriber
}

// NewPortfolioService creates a new portfolio service.
func NewPortfolioService(store port.CompanyStore, metrics *observability.Metrics, logger *zap.Logger) *PortfolioService {
	return &PortfolioService{
		store:      store,
		metrics:    metrics,
		logger:     logger,
		portfolios: make(map[string]*portfolio),
		nextSeq:    make(map[string]uint64),
	}
}

// Subscribe registers a callback invoked after every snapshot replacement.
// Callbacks run synchronously under the service lock; keep them cheap.
func (s *PortfolioService) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Load fetches the user's full portfolio from the backend and replaces the
// in-memory snapshot. Tax and fee rows are fetched in parallel. On any
// backend or integrity failure the previous snapshot stays untouched.
func (s *PortfolioService) Load(ctx context.Context, userID, trigger string) error {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.Load")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("trigger", trigger),
	)

	s.mu.Lock()
	s.nextSeq[userID]++
	seq := s.nextSeq[userID]
	s.mu.Unlock()

	start := time.Now()

	companies, err := s.fetch(ctx, userID)
	if err != nil {
		s.metrics.IncrBackendError("supabase")
		s.logger.Error("portfolio: load failed",
			zap.String("user_id", userID),
			zap.String("trigger", trigger),
			zap.Error(err),
		)
		return fmt.Errorf("load portfolio: %w", err)
	}

	s.mu.Lock()
	p := s.portfolios[userID]
	if p != nil && p.loadedSeq > seq {
		s.mu.Unlock()
		s.metrics.IncrStaleReload()
		s.logger.Debug("portfolio: stale reload discarded",
			zap.String("user_id", userID),
			zap.Uint64("seq", seq),
		)
		return nil
	}
	s.portfolios[userID] = &portfolio{companies: companies, loadedSeq: seq}
	subs := s.subs
	s.mu.Unlock()

	s.metrics.RecordReloadDuration(trigger, time.Since(start))
	for _, fn := range subs {
		fn(userID, companies)
	}
	return nil
}

// fetch reads and normalizes the full portfolio.
func (s *PortfolioService) fetch(ctx context.Context, userID string) ([]domain.Company, error) {
	rows, err := s.store.ListCompanies(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}

	var taxRows []domain.TaxRow
	var feeRows []domain.FeeRow

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		taxRows, err = s.store.ListTaxRows(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		feeRows, err = s.store.ListFeeRows(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	taxByCompany := make(map[string][]domain.TaxRow, len(rows))
	for _, r := range taxRows {
		taxByCompany[r.CompanyID] = append(taxByCompany[r.CompanyID], r)
	}
	feeByCompany := make(map[string][]domain.FeeRow, len(rows))
	for _, r := range feeRows {
		feeByCompany[r.CompanyID] = append(feeByCompany[r.CompanyID], r)
	}

	companies := make([]domain.Company, 0, len(rows))
	for _, row := range rows {
		company, err := domain.NewCompany(row, taxByCompany[row.ID], feeByCompany[row.ID])
		if err != nil {
			return nil, err
		}
		companies = append(companies, company)
	}
	return companies, nil
}

// snapshot returns the cached companies, loading them on first access.
// A Clear racing the lazy load can drop the entry again before we read
// it back; that counts as an empty portfolio, not a failure.
func (s *PortfolioService) snapshot(ctx context.Context, userID string) ([]domain.Company, error) {
	s.mu.Lock()
	p, ok := s.portfolios[userID]
	s.mu.Unlock()
	if !ok {
		if err := s.Load(ctx, userID, "initial"); err != nil {
			return nil, err
		}
		s.mu.Lock()
		p = s.portfolios[userID]
		s.mu.Unlock()
		if p == nil {
			return nil, nil
		}
	}
	return p.companies, nil
}

// Companies returns the user's companies matching the filter.
func (s *PortfolioService) Companies(ctx context.Context, userID string, filter domain.CompanyFilter) ([]domain.Company, error) {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.Companies")
	defer span.End()

	companies, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return filter.Apply(companies), nil
}

// Get returns one company by id.
func (s *PortfolioService) Get(ctx context.Context, userID, companyID string) (*domain.Company, error) {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.Get")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	companies, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range companies {
		if companies[i].ID == companyID {
			return &companies[i], nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "company", ID: companyID}
}

// Create registers a company and seeds its current-year schedules: 12
// months of every tax obligation plus 12 fee months, all open. The three
// inserts are not atomic on the backend, so a partial failure rolls the
// company row back before the error surfaces.
func (s *PortfolioService) Create(ctx context.Context, userID string, req *domain.CreateCompanyRequest) (*domain.Company, error) {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.Create")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if !domain.ValidCNPJ(req.CNPJ) {
		return nil, &domain.ErrValidation{Field: "cnpj", Message: "CNPJ inválido"}
	}

	row := domain.CompanyRow{
		ID:                  uuid.NewString(),
		UserID:              userID,
		CodigoAlterdata:     req.CodigoAlterdata,
		Nome:                req.Nome,
		CNPJ:                domain.FormatCNPJ(req.CNPJ),
		ConciliacaoBancaria: req.ConciliacaoBancaria,
		SituacaoCaixa:       req.SituacaoCaixa,
		ParcelamentoAtivo:   req.ParcelamentoAtivo,
	}

	if err := s.store.InsertCompany(ctx, row); err != nil {
		s.metrics.IncrBackendError("supabase")
		return nil, fmt.Errorf("insert company: %w", err)
	}

	taxRows, feeRows := domain.SeedRows(row.ID, time.Now().Year())
	if err := s.store.InsertTaxRows(ctx, taxRows); err != nil {
		s.compensate(ctx, userID, row.ID, "tax seed", err)
		return nil, fmt.Errorf("seed tax rows: %w", err)
	}
	if err := s.store.InsertFeeRows(ctx, feeRows); err != nil {
		s.compensate(ctx, userID, row.ID, "fee seed", err)
		return nil, fmt.Errorf("seed fee rows: %w", err)
	}

	s.metrics.IncrMutation("create_company")
	if err := s.Load(ctx, userID, "mutation"); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, row.ID)
}

// compensate rolls back the company row after a partial creation failure.
// The rollback is best-effort; a failed rollback is logged loudly because
// it leaves an orphan row behind.
func (s *PortfolioService) compensate(ctx context.Context, userID, companyID, stage string, cause error) {
	s.metrics.IncrBackendError("supabase")
	s.logger.Error("portfolio: company creation failed, rolling back",
		zap.String("company_id", companyID),
		zap.String("stage", stage),
		zap.Error(cause),
	)
	if err := s.store.DeleteCompany(ctx, userID, companyID); err != nil {
		s.logger.Error("portfolio: rollback failed, orphan company row left behind",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
	}
}

// Update applies a partial update to a company and reloads the portfolio.
func (s *PortfolioService) Update(ctx context.Context, userID, companyID string, req *domain.UpdateCompanyRequest) (*domain.Company, error) {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	if req.CNPJ != nil {
		if !domain.ValidCNPJ(*req.CNPJ) {
			return nil, &domain.ErrValidation{Field: "cnpj", Message: "CNPJ inválido"}
		}
		formatted := domain.FormatCNPJ(*req.CNPJ)
		req.CNPJ = &formatted
	}

	updates := req.StorageUpdates()
	if len(updates) == 0 {
		return nil, &domain.ErrValidation{Field: "body", Message: "nenhum campo para atualizar"}
	}

	if err := s.store.UpdateCompany(ctx, userID, companyID, updates); err != nil {
		return nil, fmt.Errorf("update company: %w", err)
	}

	s.metrics.IncrMutation("update_company")
	if err := s.Load(ctx, userID, "mutation"); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, companyID)
}

// Delete removes a company from the backend and drops it from the local
// snapshot. Unlike the other mutations this does not reload: the removal
// is unambiguous, so a round trip buys nothing.
func (s *PortfolioService) Delete(ctx context.Context, userID, companyID string) error {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	if err := s.store.DeleteCompany(ctx, userID, companyID); err != nil {
		return fmt.Errorf("delete company: %w", err)
	}

	s.mu.Lock()
	var remaining []domain.Company
	if p, ok := s.portfolios[userID]; ok {
		remaining = make([]domain.Company, 0, len(p.companies))
		for _, c := range p.companies {
			if c.ID != companyID {
				remaining = append(remaining, c)
			}
		}
		p.companies = remaining
	}
	subs := s.subs
	s.mu.Unlock()

	s.metrics.IncrMutation("delete_company")
	if remaining != nil {
		for _, fn := range subs {
			fn(userID, remaining)
		}
	}
	return nil
}

// UpdateTaxStatus writes one tax cell and reloads the portfolio. The cell
// is keyed by (company, type, year, month); writing a month the seeding
// never created inserts it.
func (s *PortfolioService) UpdateTaxStatus(ctx context.Context, userID, companyID string, tipo domain.ObligationType, ano, mes int, req *domain.UpdateTaxStatusRequest) error {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.UpdateTaxStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("company.id", companyID),
		attribute.String("tipo", string(tipo)),
		attribute.Int("ano", ano),
		attribute.Int("mes", mes),
	)

	if !domain.ValidObligationType(tipo) {
		return &domain.ErrValidation{Field: "type", Message: "tipo de imposto desconhecido"}
	}
	if mes < 1 || mes > 12 {
		return &domain.ErrValidation{Field: "month", Message: "mês fora do intervalo 1-12"}
	}
	if !domain.ValidTaxStatus(req.Status) {
		return &domain.ErrValidation{Field: "status", Message: "status desconhecido"}
	}
	if _, err := s.Get(ctx, userID, companyID); err != nil {
		return err
	}

	row := domain.TaxRow{
		CompanyID:  companyID,
		Tipo:       tipo,
		Ano:        ano,
		Mes:        mes,
		Status:     req.Status,
		Data:       req.Data,
		Observacao: optional(req.Obs),
	}
	if err := s.store.UpsertTaxRow(ctx, row); err != nil {
		s.metrics.IncrBackendError("supabase")
		return fmt.Errorf("upsert tax row: %w", err)
	}

	s.metrics.IncrMutation("update_tax_status")
	return s.Load(ctx, userID, "mutation")
}

// UpdateFeeStatus writes one fee cell and reloads the portfolio.
func (s *PortfolioService) UpdateFeeStatus(ctx context.Context, userID, companyID string, ano, mes int, req *domain.UpdateFeeStatusRequest) error {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.UpdateFeeStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("company.id", companyID),
		attribute.Int("ano", ano),
		attribute.Int("mes", mes),
	)

	if mes < 1 || mes > 12 {
		return &domain.ErrValidation{Field: "month", Message: "mês fora do intervalo 1-12"}
	}
	if !domain.ValidFeeStatus(req.Status) {
		return &domain.ErrValidation{Field: "status", Message: "status desconhecido"}
	}
	if _, err := s.Get(ctx, userID, companyID); err != nil {
		return err
	}

	row := domain.FeeRow{
		CompanyID:  companyID,
		Ano:        ano,
		Mes:        mes,
		Status:     req.Status,
		Data:       req.Data,
		Valor:      req.Valor,
		Observacao: optional(req.Obs),
	}
	if err := s.store.UpsertFeeRow(ctx, row); err != nil {
		s.metrics.IncrBackendError("supabase")
		return fmt.Errorf("upsert fee row: %w", err)
	}

	s.metrics.IncrMutation("update_fee_status")
	return s.Load(ctx, userID, "mutation")
}

// Summary derives the dashboard metrics for one year.
func (s *PortfolioService) Summary(ctx context.Context, userID string, year int) (*domain.PortfolioSummary, error) {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.Summary")
	defer span.End()

	companies, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := domain.BuildPortfolioSummary(companies, year)
	return &summary, nil
}

// BillingSummary aggregates fee billing for one year.
func (s *PortfolioService) BillingSummary(ctx context.Context, userID string, year int) (*domain.BillingSummary, error) {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.BillingSummary")
	defer span.End()

	companies, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := domain.BuildBillingSummary(companies, year)
	return &summary, nil
}

// Clear drops the user's snapshot, typically on logout.
func (s *PortfolioService) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.portfolios, userID)
	delete(s.nextSeq, userID)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
