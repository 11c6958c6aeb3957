package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	wordUnits = []string{
		"", "uno", "dos", "tres", "cuatro", "cinco", "seis", "siete", "ocho", "nueve",
	}
	wordTens = []string{
		"", "diez", "veinte", "treinta", "cuarenta", "cincuenta", "sesenta", "setenta", "ochenta", "noventa",
	}
	wordTeens = []string{
		"diez", "once", "doce", "trece", "catorce", "quince", "dieciséis", "diecisiete", "dieciocho", "diecinueve",
	}
	wordHundreds = []string{
		"", "cien", "doscientos", "trescientos", "cuatrocientos", "quinientos", "seiscientos", "setecientos", "ochocientos", "novecientos",
	}
)

func wordsUnder1000(n int64) string {
	if n == 0 {
		return "cero"
	}
	var b strings.Builder
	c := n / 100
	d := (n % 100) / 10
	u := n % 10

	if c > 0 {
		b.WriteString(wordHundreds[c])
		if d > 0 || u > 0 {
			b.WriteByte(' ')
		}
	}
	if d > 0 {
		if d == 1 && u > 0 {
			b.WriteString(wordTeens[u])
		} else {
			b.WriteString(wordTens[d])
			if u > 0 {
				b.WriteString(" y ")
				b.WriteString(wordUnits[u])
			}
		}
	} else if u > 0 {
		b.WriteString(wordUnits[u])
	}
	return b.String()
}

// AmountInWords spells out a peso amount in Spanish for the voucher footer.
// The value is rounded to whole pesos first; printed vouchers never show
// cents.
func AmountInWords(amount decimal.Decimal) string {
	n := amount.Round(0).IntPart()
	if n == 0 {
		return "cero pesos"
	}

	millions := n / 1_000_000
	thousands := (n % 1_000_000) / 1_000
	rest := n % 1_000

	var parts []string
	if millions > 0 {
		parts = append(parts, wordsUnder1000(millions)+" millones")
	}
	if thousands > 0 {
		parts = append(parts, wordsUnder1000(thousands)+" mil")
	}
	if rest > 0 {
		parts = append(parts, wordsUnder1000(rest))
	}
	return strings.Join(parts, " ") + " pesos"
}
