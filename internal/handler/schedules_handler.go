package handler

import (
	"net/http"
	"strconv"

	"github.com/evolutiehub/hub-api/internal/domain"
	"github.com/evolutiehub/hub-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Impostos & honorários (schedule cell updates)
// ============================================================

// scheduleKey parses the year and month URL parameters.
func scheduleKey(w http.ResponseWriter, r *http.Request) (ano, mes int, ok bool) {
	ano, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || ano < 1 {
		writeError(w, http.StatusBadRequest, "ano inválido")
		return 0, 0, false
	}
	mes, err = strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "mês inválido")
		return 0, 0, false
	}
	return ano, mes, true
}

func updateTaxStatusHandler(portfolioSvc *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/companies/{companyId}/taxes/{year}/{type}/{month}")
		defer span.End()

		ano, mes, ok := scheduleKey(w, r)
		if !ok {
			return
		}
		tipo := domain.ObligationType(chi.URLParam(r, "type"))

		var req domain.UpdateTaxStatusRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		err := portfolioSvc.UpdateTaxStatus(ctx, UserIDFromContext(ctx), chi.URLParam(r, "companyId"), tipo, ano, mes, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		company, err := portfolioSvc.Get(ctx, UserIDFromContext(ctx), chi.URLParam(r, "companyId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, company)
	}
}

func updateFeeStatusHandler(portfolioSvc *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/companies/{companyId}/fees/{year}/{month}")
		defer span.End()

		ano, mes, ok := scheduleKey(w, r)
		if !ok {
			return
		}

		var req domain.UpdateFeeStatusRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		err := portfolioSvc.UpdateFeeStatus(ctx, UserIDFromContext(ctx), chi.URLParam(r, "companyId"), ano, mes, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		company, err := portfolioSvc.Get(ctx, UserIDFromContext(ctx), chi.URLParam(r, "companyId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, company)
	}
}
