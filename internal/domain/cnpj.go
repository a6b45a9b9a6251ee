package domain

import "strings"

// CNPJ handling. The national registry number is stored formatted
// (00.000.000/0000-00) the way operators type it, but validated on its
// 14 digits including both mod-11 check digits.

// CNPJDigits strips everything but digits from a CNPJ.
func CNPJDigits(cnpj string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, cnpj)
}

// ValidCNPJ reports whether cnpj carries 14 digits with valid check
// digits. Repeated-digit sequences (00.000.000/0000-00 etc.) are invalid.
func ValidCNPJ(cnpj string) bool {
	digits := CNPJDigits(cnpj)
	if len(digits) != 14 {
		return false
	}
	allEqual := true
	for i := 1; i < 14; i++ {
		if digits[i] != digits[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return false
	}
	return cnpjCheckDigit(digits, 12) == int(digits[12]-'0') &&
		cnpjCheckDigit(digits, 13) == int(digits[13]-'0')
}

func cnpjCheckDigit(digits string, length int) int {
	weight := length - 7
	sum := 0
	for i := 0; i < length; i++ {
		sum += int(digits[i]-'0') * weight
		weight--
		if weight < 2 {
			weight = 9
		}
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}

// FormatCNPJ renders 14 digits as 00.000.000/0000-00. Input with the
// wrong digit count is returned unchanged.
func FormatCNPJ(cnpj string) string {
	d := CNPJDigits(cnpj)
	if len(d) != 14 {
		return cnpj
	}
	return d[:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
}

// RegistryCompany is the public-registry record returned by the CNPJ
// lookup service, used to prefill the company form.
type RegistryCompany struct {
	CNPJ             string `json:"cnpj"`
	RazaoSocial      string `json:"razaoSocial"`
	NomeFantasia     string `json:"nomeFantasia"`
	Municipio        string `json:"municipio"`
	UF               string `json:"uf"`
	SituacaoCadastro string `json:"situacaoCadastro"`
}
