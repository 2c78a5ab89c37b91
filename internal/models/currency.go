package models

import "strings"

// Currency is an ISO 4217 code.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	GEL Currency = "GEL"
)

var supportedCurrencies = map[Currency]struct{}{
	USD: {},
	EUR: {},
	GBP: {},
	GEL: {},
}

// NormalizeCurrency trims and upper-cases a code.
func NormalizeCurrency(code string) Currency {
	return Currency(strings.ToUpper(strings.TrimSpace(code)))
}

// IsSupported reports whether the ledger keeps accounts in c.
func (c Currency) IsSupported() bool {
	_, ok := supportedCurrencies[c]
	return ok
}

// SupportedCurrencies lists the codes in a stable order.
func SupportedCurrencies() []Currency {
	return []Currency{USD, EUR, GBP, GEL}
}
