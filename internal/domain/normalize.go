package domain

// Normalization of flat persisted rows into nested schedules.
//
// Rows arrive unordered and sparse: a year may have anywhere from 0 to 36
// tax rows and 0 to 12 fee rows. Every year that appears in the input comes
// out with exactly 12 entries per obligation type (taxes) or 12 entries
// total (fees), months 1–12 ascending. Absent months are filled with a
// default open entry. Rows with a month outside 1–12 or an unknown
// obligation type are a data-integrity violation and rejected outright;
// the schema constrains them upstream, so seeing one means the backend
// and this service disagree about the schema.

// NewCompany assembles a Company from its persisted rows.
func NewCompany(row CompanyRow, taxes []TaxRow, fees []FeeRow) (Company, error) {
	impostos, err := BuildTaxSchedule(taxes)
	if err != nil {
		return Company{}, err
	}
	honorarios, err := BuildFeeSchedule(fees)
	if err != nil {
		return Company{}, err
	}
	return Company{
		ID:                  row.ID,
		CodigoAlterdata:     row.CodigoAlterdata,
		Nome:                row.Nome,
		CNPJ:                row.CNPJ,
		ConciliacaoBancaria: row.ConciliacaoBancaria,
		SituacaoCaixa:       row.SituacaoCaixa,
		ParcelamentoAtivo:   row.ParcelamentoAtivo,
		Impostos:            impostos,
		Honorarios:          honorarios,
		CreatedAt:           row.CreatedAt,
	}, nil
}

// BuildTaxSchedule groups tax rows by year and obligation type and fills
// absent months with open entries.
func BuildTaxSchedule(rows []TaxRow) (TaxSchedule, error) {
	byYear := map[int]map[ObligationType][]TaxRow{}
	for _, r := range rows {
		if r.Mes < 1 || r.Mes > 12 {
			return nil, &ErrIntegrity{Table: "tax_entries", Detail: "mes out of range"}
		}
		if !ValidObligationType(r.Tipo) {
			return nil, &ErrIntegrity{Table: "tax_entries", Detail: "unknown tipo " + string(r.Tipo)}
		}
		if byYear[r.Ano] == nil {
			byYear[r.Ano] = map[ObligationType][]TaxRow{}
		}
		byYear[r.Ano][r.Tipo] = append(byYear[r.Ano][r.Tipo], r)
	}

	schedule := TaxSchedule{}
	for year, byType := range byYear {
		schedule[year] = TaxYear{
			INSS:    fillTaxMonths(byType[ObligationINSS]),
			Simples: fillTaxMonths(byType[ObligationSimples]),
			FGTS:    fillTaxMonths(byType[ObligationFGTS]),
		}
	}
	return schedule, nil
}

// BuildFeeSchedule groups fee rows by year and fills absent months.
func BuildFeeSchedule(rows []FeeRow) (FeeSchedule, error) {
	byYear := map[int][]FeeRow{}
	for _, r := range rows {
		if r.Mes < 1 || r.Mes > 12 {
			return nil, &ErrIntegrity{Table: "fee_entries", Detail: "mes out of range"}
		}
		byYear[r.Ano] = append(byYear[r.Ano], r)
	}

	schedule := FeeSchedule{}
	for year, yearRows := range byYear {
		schedule[year] = fillFeeMonths(yearRows)
	}
	return schedule, nil
}

func fillTaxMonths(rows []TaxRow) []TaxEntry {
	byMonth := map[int]TaxRow{}
	for _, r := range rows {
		byMonth[r.Mes] = r
	}
	entries := make([]TaxEntry, 0, 12)
	for mes := 1; mes <= 12; mes++ {
		if r, ok := byMonth[mes]; ok {
			entries = append(entries, TaxEntry{
				Mes:    r.Mes,
				Status: r.Status,
				Data:   r.Data,
				Obs:    deref(r.Observacao),
			})
			continue
		}
		entries = append(entries, TaxEntry{Mes: mes, Status: TaxOpen})
	}
	return entries
}

func fillFeeMonths(rows []FeeRow) []FeeEntry {
	byMonth := map[int]FeeRow{}
	for _, r := range rows {
		byMonth[r.Mes] = r
	}
	entries := make([]FeeEntry, 0, 12)
	for mes := 1; mes <= 12; mes++ {
		if r, ok := byMonth[mes]; ok {
			entries = append(entries, FeeEntry{
				Mes:    r.Mes,
				Status: r.Status,
				Data:   r.Data,
				Valor:  r.Valor,
				Obs:    deref(r.Observacao),
			})
			continue
		}
		entries = append(entries, FeeEntry{Mes: mes, Status: FeeOpen})
	}
	return entries
}

// SeedRows returns the default tax and fee rows for a freshly created
// company: 12 months × 3 obligation types plus 12 fee months for the
// given year, all open with no date.
func SeedRows(companyID string, year int) ([]TaxRow, []FeeRow) {
	taxRows := make([]TaxRow, 0, 36)
	feeRows := make([]FeeRow, 0, 12)
	for mes := 1; mes <= 12; mes++ {
		for _, tipo := range ObligationTypes {
			taxRows = append(taxRows, TaxRow{
				CompanyID: companyID,
				Tipo:      tipo,
				Ano:       year,
				Mes:       mes,
				Status:    TaxOpen,
			})
		}
		feeRows = append(feeRows, FeeRow{
			CompanyID: companyID,
			Ano:       year,
			Mes:       mes,
			Status:    FeeOpen,
		})
	}
	return taxRows, feeRows
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
