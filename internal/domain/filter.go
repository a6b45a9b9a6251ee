package domain

import "strings"

// CompanyFilter narrows a company listing. Search matches name, CNPJ or
// ERP code as a case-insensitive substring. Each flag filter is tri-state:
// nil imposes no constraint, otherwise the company must match exactly.
// Filters compose with logical AND.
type CompanyFilter struct {
	Search       string
	Conciliacao  *bool
	Caixa        *CashStatus
	Parcelamento *bool
}

// Matches reports whether c passes every active constraint.
func (f CompanyFilter) Matches(c Company) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(c.Nome), q) &&
			!strings.Contains(strings.ToLower(c.CNPJ), q) &&
			!strings.Contains(strings.ToLower(c.CodigoAlterdata), q) {
			return false
		}
	}
	if f.Conciliacao != nil && c.ConciliacaoBancaria != *f.Conciliacao {
		return false
	}
	if f.Caixa != nil && c.SituacaoCaixa != *f.Caixa {
		return false
	}
	if f.Parcelamento != nil && c.ParcelamentoAtivo != *f.Parcelamento {
		return false
	}
	return true
}

// ToggleConciliacao sets the reconciliation filter to v, or clears it when
// v is already the active value.
func (f *CompanyFilter) ToggleConciliacao(v bool) {
	if f.Conciliacao != nil && *f.Conciliacao == v {
		f.Conciliacao = nil
		return
	}
	f.Conciliacao = &v
}

// ToggleCaixa sets the cash-flow filter to v, or clears it when v is
// already the active value.
func (f *CompanyFilter) ToggleCaixa(v CashStatus) {
	if f.Caixa != nil && *f.Caixa == v {
		f.Caixa = nil
		return
	}
	f.Caixa = &v
}

// ToggleParcelamento sets the installment-plan filter to v, or clears it
// when v is already the active value.
func (f *CompanyFilter) ToggleParcelamento(v bool) {
	if f.Parcelamento != nil && *f.Parcelamento == v {
		f.Parcelamento = nil
		return
	}
	f.Parcelamento = &v
}

// Apply returns the companies matching the filter, preserving order.
func (f CompanyFilter) Apply(companies []Company) []Company {
	out := make([]Company, 0, len(companies))
	for _, c := range companies {
		if f.Matches(c) {
			out = append(out, c)
		}
	}
	return out
}
