package domain

import "github.com/shopspring/decimal"

// PortfolioSummary backs the dashboard metric cards and alert panel.
type PortfolioSummary struct {
	TotalEmpresas       int     `json:"totalEmpresas"`
	ConciliacaoFeita    int     `json:"conciliacaoFeita"`
	ConciliacaoPct      float64 `json:"conciliacaoPct"`
	CaixaPositivo       int     `json:"caixaPositivo"`
	ParcelamentosAtivos int     `json:"parcelamentosAtivos"`
	ImpostosAtrasados   int     `json:"impostosAtrasados"`
	Ano                 int     `json:"ano"`
}

// BuildPortfolioSummary derives dashboard metrics from the loaded
// portfolio. ImpostosAtrasados counts companies with at least one late
// obligation in the given year.
func BuildPortfolioSummary(companies []Company, year int) PortfolioSummary {
	s := PortfolioSummary{TotalEmpresas: len(companies), Ano: year}
	for _, c := range companies {
		if c.ConciliacaoBancaria {
			s.ConciliacaoFeita++
		}
		if c.SituacaoCaixa == CashPositive {
			s.CaixaPositivo++
		}
		if c.ParcelamentoAtivo {
			s.ParcelamentosAtivos++
		}
		if hasLateTax(c, year) {
			s.ImpostosAtrasados++
		}
	}
	if s.TotalEmpresas > 0 {
		s.ConciliacaoPct = float64(s.ConciliacaoFeita) / float64(s.TotalEmpresas) * 100
	}
	return s
}

func hasLateTax(c Company, year int) bool {
	yearTaxes, ok := c.Impostos[year]
	if !ok {
		return false
	}
	for _, entries := range [][]TaxEntry{yearTaxes.INSS, yearTaxes.Simples, yearTaxes.FGTS} {
		for _, e := range entries {
			if e.Status == TaxLate {
				return true
			}
		}
	}
	return false
}

// BillingSummary aggregates service-fee billing for one year across the
// portfolio.
type BillingSummary struct {
	Ano           int             `json:"ano"`
	Lancados      int             `json:"lancados"`
	EmAberto      int             `json:"emAberto"`
	TotalFaturado decimal.Decimal `json:"totalFaturado"`
}

// BuildBillingSummary sums issued and open fee months for the given year.
// Only issued entries with a recorded amount contribute to TotalFaturado.
func BuildBillingSummary(companies []Company, year int) BillingSummary {
	s := BillingSummary{Ano: year, TotalFaturado: decimal.Zero}
	for _, c := range companies {
		for _, e := range c.Honorarios[year] {
			switch e.Status {
			case FeeFiled:
				s.Lancados++
				if e.Valor != nil {
					s.TotalFaturado = s.TotalFaturado.Add(*e.Valor)
				}
			case FeeOpen:
				s.EmAberto++
			}
		}
	}
	return s
}
