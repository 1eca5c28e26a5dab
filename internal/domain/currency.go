package domain

import "fmt"

// Currency identifies a settlement currency supported by the orchestration core
type Currency int

const (
	// CurrencyUnspecified - zero value, never valid on a request
	CurrencyUnspecified Currency = iota
	// CurrencyUSD - United States dollar
	CurrencyUSD
	// CurrencyEUR - Euro
	CurrencyEUR
	// CurrencyRUB - Russian ruble
	CurrencyRUB
)

func (c Currency) String() string {
	switch c {
	case CurrencyUSD:
		return "USD"
	case CurrencyEUR:
		return "EUR"
	case CurrencyRUB:
		return "RUB"
	case CurrencyUnspecified:
		return "UNSPECIFIED"
	default:
		return fmt.Sprintf("CURRENCY(%d)", int(c))
	}
}

// IsValid returns true if the currency is one of the supported settlement currencies
func (c Currency) IsValid() bool {
	switch c {
	case CurrencyUSD, CurrencyEUR, CurrencyRUB:
		return true
	default:
		return false
	}
}

// ParseCurrency converts an ISO 4217 alphabetic code to a Currency
func ParseCurrency(code string) (Currency, error) {
	switch code {
	case "USD":
		return CurrencyUSD, nil
	case "EUR":
		return CurrencyEUR, nil
	case "RUB":
		return CurrencyRUB, nil
	default:
		return CurrencyUnspecified, fmt.Errorf("unknown currency code %q", code)
	}
}

// Currencies returns the supported settlement currencies in a stable order
func Currencies() []Currency {
	return []Currency{CurrencyUSD, CurrencyEUR, CurrencyRUB}
}
