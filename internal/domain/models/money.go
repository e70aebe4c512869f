package models

import (
	"LeoneAI/pkg/util"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencySLL Currency = "SLL"
	CurrencyUSD Currency = "USD"
)

// DefaultUSDToSLL is the New Leone (SLE) rate used by the backend.
const DefaultUSDToSLL = 23.70

// Converter translates between USD and Leone at a single fixed rate.
type Converter struct {
	rate decimal.Decimal
}

func NewConverter(usdToSLL float64) Converter {
	if usdToSLL <= 0 {
		usdToSLL = DefaultUSDToSLL
	}
	return Converter{rate: decimal.NewFromFloat(usdToSLL)}
}

func (c Converter) Rate() decimal.Decimal { return c.rate }

func (c Converter) ToSLL(usd decimal.Decimal) decimal.Decimal {
	return usd.Mul(c.rate).Round(2)
}

func (c Converter) ToUSD(sll decimal.Decimal) decimal.Decimal {
	return sll.DivRound(c.rate, 2)
}

// FormatMoney renders an amount as "Le 1,234.50" or "$1,234.50".
func FormatMoney(amount decimal.Decimal, cur Currency) string {
	s := util.GroupThousands(amount.Abs().StringFixed(2))
	prefix := "$"
	if cur == CurrencySLL {
		prefix = "Le "
	}
	if amount.IsNegative() {
		return "-" + prefix + s
	}
	return prefix + s
}
