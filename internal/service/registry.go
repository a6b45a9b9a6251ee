package service

import (
	"context"

	"github.com/evolutiehub/hub-api/internal/domain"
	"github.com/evolutiehub/hub-api/internal/infra/observability"
	"github.com/evolutiehub/hub-api/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var registryTracer = otel.Tracer("service/registry")

// RegistryService resolves CNPJs against the public company registry,
// caching results so repeated form prefills do not hammer the API.
type RegistryService struct {
	lookup  port.RegistryLookup
	cache   port.Cache[*domain.RegistryCompany]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewRegistryService creates a new registry service.
func NewRegistryService(lookup port.RegistryLookup, cache port.Cache[*domain.RegistryCompany], metrics *observability.Metrics, logger *zap.Logger) *RegistryService {
	return &RegistryService{lookup: lookup, cache: cache, metrics: metrics, logger: logger}
}

// Lookup validates the CNPJ and returns its registry record, from cache
// when possible.
func (s *RegistryService) Lookup(ctx context.Context, cnpj string) (*domain.RegistryCompany, error) {
	ctx, span := registryTracer.Start(ctx, "RegistryService.Lookup")
	defer span.End()

	digits := domain.CNPJDigits(cnpj)
	span.SetAttributes(attribute.String("cnpj", digits))

	if !domain.ValidCNPJ(digits) {
		return nil, &domain.ErrValidation{Field: "cnpj", Message: "CNPJ inválido"}
	}

	if cached, ok := s.cache.Get(digits); ok {
		s.metrics.IncrCacheHit("registry")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("registry")

	record, err := s.lookup.LookupCNPJ(ctx, digits)
	if err != nil {
		s.metrics.IncrBackendError("receita")
		s.logger.Warn("registry: lookup failed", zap.String("cnpj", digits), zap.Error(err))
		return nil, err
	}

	s.cache.Set(digits, record)
	return record, nil
}
