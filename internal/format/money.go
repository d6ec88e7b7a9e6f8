package format

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	currency       = "MAD"
	groupSeparator = "."
)

// MAD форматирует сумму как на витрине (fr-MA, без копеек): 1500 -> "1.500 MAD".
// NaN и бесконечность выводятся как "-".
func MAD(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}

	// половина округляется от нуля, как в Intl.NumberFormat
	amount := decimal.NewFromFloat(v).Round(0)

	digits := amount.Abs().String()
	var b strings.Builder
	if amount.IsNegative() {
		b.WriteString("-")
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteString(groupSeparator)
		}
		b.WriteRune(r)
	}
	b.WriteString(" ")
	b.WriteString(currency)
	return b.String()
}
