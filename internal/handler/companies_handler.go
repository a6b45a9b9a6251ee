package handler

import (
	"net/http"

	"github.com/evolutiehub/hub-api/internal/domain"
	"github.com/evolutiehub/hub-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Empresas (portfolio CRUD)
// ============================================================

// parseCompanyFilter reads the listing filters from the query string.
// q searches name, CNPJ and ERP code; the flag filters are tri-state and
// absent parameters impose no constraint.
func parseCompanyFilter(r *http.Request) (domain.CompanyFilter, error) {
	q := r.URL.Query()
	filter := domain.CompanyFilter{Search: q.Get("q")}

	if v := q.Get("conciliacao"); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return filter, &domain.ErrValidation{Field: "conciliacao", Message: "esperado true ou false"}
		}
		filter.Conciliacao = &b
	}
	if v := q.Get("caixa"); v != "" {
		status := domain.CashStatus(v)
		if status != domain.CashPositive && status != domain.CashNegative {
			return filter, &domain.ErrValidation{Field: "caixa", Message: "esperado positivo ou negativo"}
		}
		filter.Caixa = &status
	}
	if v := q.Get("parcelamento"); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return filter, &domain.ErrValidation{Field: "parcelamento", Message: "esperado true ou false"}
		}
		filter.Parcelamento = &b
	}
	return filter, nil
}

func parseBool(v string) (bool, error) {
	switch v {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, &domain.ErrValidation{Field: "flag", Message: "esperado true ou false"}
}

func listCompaniesHandler(portfolioSvc *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/companies")
		defer span.End()

		filter, err := parseCompanyFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		companies, err := portfolioSvc.Companies(ctx, UserIDFromContext(ctx), filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, companies)
	}
}

func getCompanyHandler(portfolioSvc *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/companies/{companyId}")
		defer span.End()

		company, err := portfolioSvc.Get(ctx, UserIDFromContext(ctx), chi.URLParam(r, "companyId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, company)
	}
}

func createCompanyHandler(portfolioSvc *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/companies")
		defer span.End()

		var req domain.CreateCompanyRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		company, err := portfolioSvc.Create(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, company)
	}
}

func updateCompanyHandler(portfolioSvc *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/companies/{companyId}")
		defer span.End()

		var req domain.UpdateCompanyRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		company, err := portfolioSvc.Update(ctx, UserIDFromContext(ctx), chi.URLParam(r, "companyId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, company)
	}
}

func deleteCompanyHandler(portfolioSvc *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/companies/{companyId}")
		defer span.End()

		if err := portfolioSvc.Delete(ctx, UserIDFromContext(ctx), chi.URLParam(r, "companyId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func reloadPortfolioHandler(portfolioSvc *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/companies/reload")
		defer span.End()

		if err := portfolioSvc.Load(ctx, UserIDFromContext(ctx), "manual"); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
