package ledger

import "github.com/shopspring/decimal"

// Amounts is the monetary breakdown printed on a voucher. Retained is the
// withheld portion; Net is what actually moves.
type Amounts struct {
	Gross    decimal.Decimal
	Retained decimal.Decimal
	Net      decimal.Decimal
}

// ExpenseAmounts computes the expense breakdown. Rounding happens exactly
// once, on the retained value, so gross minus retained always equals net to
// the peso.
func ExpenseAmounts(quantity, unitPrice, retentionPercent decimal.Decimal) Amounts {
	gross := quantity.Mul(unitPrice)
	retained := gross.Mul(retentionPercent).Div(decimal.NewFromInt(100)).Round(0)
	return Amounts{
		Gross:    gross,
		Retained: retained,
		Net:      gross.Sub(retained),
	}
}

// IncomeAmounts computes the income breakdown from a gross total and a tax
// percentage, with the same single-rounding rule as expenses.
func IncomeAmounts(gross, taxPercent decimal.Decimal) Amounts {
	retained := gross.Mul(taxPercent).Div(decimal.NewFromInt(100)).Round(0)
	return Amounts{
		Gross:    gross,
		Retained: retained,
		Net:      gross.Sub(retained),
	}
}
