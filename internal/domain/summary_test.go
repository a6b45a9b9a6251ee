package domain_test

import (
	"testing"

	"github.com/evolutiehub/hub-api/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPortfolioSummary(t *testing.T) {
	companies := []domain.Company{
		{
			ID:                  "c1",
			ConciliacaoBancaria: true,
			SituacaoCaixa:       domain.CashPositive,
			Impostos: domain.TaxSchedule{
				2025: {INSS: []domain.TaxEntry{{Mes: 1, Status: domain.TaxLate}}},
			},
		},
		{
			ID:                "c2",
			SituacaoCaixa:     domain.CashNegative,
			ParcelamentoAtivo: true,
			Impostos: domain.TaxSchedule{
				2024: {FGTS: []domain.TaxEntry{{Mes: 1, Status: domain.TaxLate}}},
			},
		},
	}

	s := domain.BuildPortfolioSummary(companies, 2025)

	assert.Equal(t, 2, s.TotalEmpresas)
	assert.Equal(t, 1, s.ConciliacaoFeita)
	assert.InDelta(t, 50.0, s.ConciliacaoPct, 0.001)
	assert.Equal(t, 1, s.CaixaPositivo)
	assert.Equal(t, 1, s.ParcelamentosAtivos)
	// c2's late entry is in 2024, outside the requested year.
	assert.Equal(t, 1, s.ImpostosAtrasados)
}

func TestBuildPortfolioSummary_Empty(t *testing.T) {
	s := domain.BuildPortfolioSummary(nil, 2025)

	assert.Equal(t, 0, s.TotalEmpresas)
	assert.Equal(t, 0.0, s.ConciliacaoPct)
}

func TestBuildBillingSummary(t *testing.T) {
	v100 := decimal.NewFromInt(100)
	v250 := decimal.RequireFromString("250.50")

	companies := []domain.Company{
		{
			ID: "c1",
			Honorarios: domain.FeeSchedule{
				2025: {
					{Mes: 1, Status: domain.FeeFiled, Valor: &v100},
					{Mes: 2, Status: domain.FeeFiled, Valor: &v250},
					{Mes: 3, Status: domain.FeeFiled}, // no amount recorded
					{Mes: 4, Status: domain.FeeOpen},
				},
			},
		},
	}

	s := domain.BuildBillingSummary(companies, 2025)

	require.Equal(t, 2025, s.Ano)
	assert.Equal(t, 3, s.Lancados)
	assert.Equal(t, 1, s.EmAberto)
	assert.True(t, s.TotalFaturado.Equal(decimal.RequireFromString("350.50")),
		"expected 350.50, got %s", s.TotalFaturado)
}
