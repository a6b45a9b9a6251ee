// Package domain holds the core types of the Evolutie Hub back office:
// client companies, their monthly tax-filing schedules (INSS, Simples
// Nacional, FGTS) and service-fee billing schedules.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxStatus is the filing state of a monthly tax obligation.
type TaxStatus string

const (
	TaxFiled TaxStatus = "lançado"
	TaxOpen  TaxStatus = "em_aberto"
	TaxLate  TaxStatus = "atrasado"
)

// FeeStatus is the billing state of a monthly service fee.
// Fees have no "late" state.
type FeeStatus string

const (
	FeeFiled FeeStatus = "lançado"
	FeeOpen  FeeStatus = "em_aberto"
)

// ObligationType is one of the three recurring tax categories tracked
// per company per month.
type ObligationType string

const (
	ObligationINSS    ObligationType = "inss"
	ObligationSimples ObligationType = "simples"
	ObligationFGTS    ObligationType = "fgts"
)

// ObligationTypes lists all tracked obligation types in display order.
var ObligationTypes = []ObligationType{ObligationINSS, ObligationSimples, ObligationFGTS}

// CashStatus is the cash-flow health flag of a company.
type CashStatus string

const (
	CashPositive CashStatus = "positivo"
	CashNegative CashStatus = "negativo"
)

// ValidTaxStatus reports whether s is a known tax filing status.
func ValidTaxStatus(s TaxStatus) bool {
	return s == TaxFiled || s == TaxOpen || s == TaxLate
}

// ValidFeeStatus reports whether s is a known fee billing status.
func ValidFeeStatus(s FeeStatus) bool {
	return s == FeeFiled || s == FeeOpen
}

// ValidObligationType reports whether t is a tracked obligation type.
func ValidObligationType(t ObligationType) bool {
	return t == ObligationINSS || t == ObligationSimples || t == ObligationFGTS
}

// TaxEntry is one month of one tax obligation.
type TaxEntry struct {
	Mes    int       `json:"mes"`
	Status TaxStatus `json:"status"`
	Data   *string   `json:"data"`
	Obs    string    `json:"obs,omitempty"`
}

// FeeEntry is one month of service-fee billing.
type FeeEntry struct {
	Mes    int              `json:"mes"`
	Status FeeStatus        `json:"status"`
	Data   *string          `json:"data"`
	Valor  *decimal.Decimal `json:"valor,omitempty"`
	Obs    string           `json:"obs,omitempty"`
}

// TaxYear holds the 12-month sequences for each obligation type of one year.
type TaxYear struct {
	INSS    []TaxEntry `json:"inss"`
	Simples []TaxEntry `json:"simples"`
	FGTS    []TaxEntry `json:"fgts"`
}

// TaxSchedule maps year → obligation type → 12 ordered monthly entries.
// Invariant: every year present has exactly 12 entries per type, months
// 1–12 ascending, no gaps, no duplicates.
type TaxSchedule map[int]TaxYear

// FeeSchedule maps year → 12 ordered monthly fee entries, same invariant.
type FeeSchedule map[int][]FeeEntry

// Company is a client company in the portfolio, with its normalized
// tax and fee schedules.
type Company struct {
	ID                  string      `json:"id"`
	CodigoAlterdata     string      `json:"codigoAlterdata"`
	Nome                string      `json:"nome"`
	CNPJ                string      `json:"cnpj"`
	ConciliacaoBancaria bool        `json:"conciliacaoBancaria"`
	SituacaoCaixa       CashStatus  `json:"situacaoCaixa"`
	ParcelamentoAtivo   bool        `json:"parcelamentoAtivo"`
	Impostos            TaxSchedule `json:"impostos"`
	Honorarios          FeeSchedule `json:"honorarios"`
	CreatedAt           time.Time   `json:"createdAt"`
}

// CompanyRow is a flat persisted row of the companies table.
type CompanyRow struct {
	ID                  string     `json:"id"`
	UserID              string     `json:"user_id"`
	CodigoAlterdata     string     `json:"codigo_alterdata"`
	Nome                string     `json:"nome"`
	CNPJ                string     `json:"cnpj"`
	ConciliacaoBancaria bool       `json:"conciliacao_bancaria"`
	SituacaoCaixa       CashStatus `json:"situacao_caixa"`
	ParcelamentoAtivo   bool       `json:"parcelamento_ativo"`
	CreatedAt           time.Time  `json:"created_at"`
}

// TaxRow is a flat persisted row of the tax_entries table.
// Unique on (company_id, tipo, ano, mes).
type TaxRow struct {
	ID         string         `json:"id,omitempty"`
	CompanyID  string         `json:"company_id"`
	Tipo       ObligationType `json:"tipo"`
	Ano        int            `json:"ano"`
	Mes        int            `json:"mes"`
	Status     TaxStatus      `json:"status"`
	Data       *string        `json:"data"`
	Observacao *string        `json:"observacao"`
}

// FeeRow is a flat persisted row of the fee_entries table.
// Unique on (company_id, ano, mes).
type FeeRow struct {
	ID         string           `json:"id,omitempty"`
	CompanyID  string           `json:"company_id"`
	Ano        int              `json:"ano"`
	Mes        int              `json:"mes"`
	Status     FeeStatus        `json:"status"`
	Data       *string          `json:"data"`
	Valor      *decimal.Decimal `json:"valor"`
	Observacao *string          `json:"observacao"`
}

// CreateCompanyRequest carries the fields of a new company.
type CreateCompanyRequest struct {
	CodigoAlterdata     string     `json:"codigoAlterdata" validate:"required"`
	Nome                string     `json:"nome" validate:"required"`
	CNPJ                string     `json:"cnpj" validate:"required,cnpj"`
	ConciliacaoBancaria bool       `json:"conciliacaoBancaria"`
	SituacaoCaixa       CashStatus `json:"situacaoCaixa" validate:"required,oneof=positivo negativo"`
	ParcelamentoAtivo   bool       `json:"parcelamentoAtivo"`
}

// UpdateCompanyRequest carries a partial update; nil fields are untouched.
type UpdateCompanyRequest struct {
	CodigoAlterdata     *string     `json:"codigoAlterdata"`
	Nome                *string     `json:"nome"`
	CNPJ                *string     `json:"cnpj" validate:"omitempty,cnpj"`
	ConciliacaoBancaria *bool       `json:"conciliacaoBancaria"`
	SituacaoCaixa       *CashStatus `json:"situacaoCaixa" validate:"omitempty,oneof=positivo negativo"`
	ParcelamentoAtivo   *bool       `json:"parcelamentoAtivo"`
}

// StorageUpdates maps application field names to storage column names,
// skipping fields that were not provided.
func (r *UpdateCompanyRequest) StorageUpdates() map[string]any {
	updates := map[string]any{}
	if r.CodigoAlterdata != nil {
		updates["codigo_alterdata"] = *r.CodigoAlterdata
	}
	if r.Nome != nil {
		updates["nome"] = *r.Nome
	}
	if r.CNPJ != nil {
		updates["cnpj"] = *r.CNPJ
	}
	if r.ConciliacaoBancaria != nil {
		updates["conciliacao_bancaria"] = *r.ConciliacaoBancaria
	}
	if r.SituacaoCaixa != nil {
		updates["situacao_caixa"] = *r.SituacaoCaixa
	}
	if r.ParcelamentoAtivo != nil {
		updates["parcelamento_ativo"] = *r.ParcelamentoAtivo
	}
	return updates
}

// UpdateTaxStatusRequest sets the status of one (type, year, month) cell.
type UpdateTaxStatusRequest struct {
	Status TaxStatus `json:"status" validate:"required,oneof=lançado em_aberto atrasado"`
	Data   *string   `json:"data"`
	Obs    string    `json:"obs"`
}

// UpdateFeeStatusRequest sets the status of one (year, month) fee cell.
type UpdateFeeStatusRequest struct {
	Status FeeStatus        `json:"status" validate:"required,oneof=lançado em_aberto"`
	Data   *string          `json:"data"`
	Valor  *decimal.Decimal `json:"valor"`
	Obs    string           `json:"obs"`
}
