package handler

import (
	"net/http"

	"github.com/evolutiehub/hub-api/internal/infra/observability"
	"github.com/evolutiehub/hub-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract of the Evolutie Hub dashboard frontend.
func NewRouter(
	portfolioSvc *service.PortfolioService,
	sessionSvc *service.SessionService,
	registrySvc *service.RegistryService,
	metrics *observability.Metrics,
	allowedOrigins []string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Autenticação (public)
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			if sessionSvc == nil {
				r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusServiceUnavailable, "auth service unavailable: Supabase not configured")
				}))
				return
			}
			r.Post("/register", authRegisterHandler(sessionSvc, logger))
			r.Post("/login", authLoginHandler(sessionSvc, logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(sessionSvc, logger))
				r.Post("/logout", authLogoutHandler(sessionSvc, logger))
			})
		})

		if sessionSvc == nil || portfolioSvc == nil {
			return
		}

		// =============================================
		// Protected API (everything below needs a token)
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(sessionSvc, logger))

			r.Get("/me", meHandler())

			// Empresas
			r.Get("/companies", listCompaniesHandler(portfolioSvc, logger))
			r.Post("/companies", createCompanyHandler(portfolioSvc, logger))
			r.Post("/companies/reload", reloadPortfolioHandler(portfolioSvc, logger))
			r.Get("/companies/{companyId}", getCompanyHandler(portfolioSvc, logger))
			r.Patch("/companies/{companyId}", updateCompanyHandler(portfolioSvc, logger))
			r.Delete("/companies/{companyId}", deleteCompanyHandler(portfolioSvc, logger))

			// Impostos & honorários
			r.Put("/companies/{companyId}/taxes/{year}/{type}/{month}", updateTaxStatusHandler(portfolioSvc, logger))
			r.Put("/companies/{companyId}/fees/{year}/{month}", updateFeeStatusHandler(portfolioSvc, logger))

			// Dashboard & faturamento
			r.Get("/summary", summaryHandler(portfolioSvc, logger))
			r.Get("/billing/summary", billingSummaryHandler(portfolioSvc, logger))
			r.Get("/metrics/portfolio", portfolioMetricsHandler(metrics))

			// Consulta CNPJ (form prefill)
			if registrySvc != nil {
				r.Get("/cnpj/{cnpj}", cnpjLookupHandler(registrySvc, logger))
			}
		})
	})

	return r
}
