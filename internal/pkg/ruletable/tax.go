package ruletable

import (
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/shopspring/decimal"
)

// Bracket is one progressive level covering [Min, Max). Max nil means unbounded.
type Bracket struct {
	Level          int
	Min            decimal.Decimal
	Max            *decimal.Decimal
	Rate           decimal.Decimal
	QuickDeduction decimal.Decimal
}

func (b Bracket) contains(x decimal.Decimal) bool {
	if x.LessThan(b.Min) {
		return false
	}
	return b.Max == nil || x.LessThan(*b.Max)
}

// TaxTable holds the monthly personal income tax parameters.
type TaxTable struct {
	Version            string
	Brackets           []Bracket
	StandardDeduction  decimal.Decimal
	DeductionLimits    map[tax.DeductionType]decimal.Decimal
	MaxEffectiveRate   decimal.Decimal
	DeviationTolerance decimal.Decimal
}

// Bracket returns the level that contains x. Negative incomes map to the first level.
func (t TaxTable) Bracket(x decimal.Decimal) Bracket {
	for _, b := range t.Brackets {
		if b.contains(x) {
			return b
		}
	}
	return t.Brackets[0]
}

// ExpectedTax computes max(0, x*rate - quickDeduction) rounded to whole units.
func (t TaxTable) ExpectedTax(taxableIncome decimal.Decimal) tax.ExpectedTax {
	b := t.Bracket(taxableIncome)
	amount := taxableIncome.Mul(b.Rate).Sub(b.QuickDeduction)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return tax.ExpectedTax{
		TaxableIncome:  taxableIncome,
		Level:          b.Level,
		Rate:           b.Rate,
		QuickDeduction: b.QuickDeduction,
		ExpectedTax:    amount.Round(0),
	}
}

// DeductionLimit returns the monthly ceiling of a special deduction type.
func (t TaxTable) DeductionLimit(dt tax.DeductionType) (decimal.Decimal, bool) {
	limit, ok := t.DeductionLimits[dt]
	return limit, ok
}

func monthlyTaxTable() TaxTable {
	levels := []struct {
		max   int64 // 0 = unbounded
		rate  string
		quick int64
	}{
		{3000, "0.03", 0},
		{12000, "0.10", 210},
		{25000, "0.20", 1410},
		{35000, "0.25", 2660},
		{55000, "0.30", 4410},
		{80000, "0.35", 7160},
		{0, "0.45", 15160},
	}

	brackets := make([]Bracket, 0, len(levels))
	lower := decimal.Zero
	for i, l := range levels {
		b := Bracket{
			Level:          i + 1,
			Min:            lower,
			Rate:           decimal.RequireFromString(l.rate),
			QuickDeduction: decimal.NewFromInt(l.quick),
		}
		if l.max > 0 {
			upper := decimal.NewFromInt(l.max)
			b.Max = &upper
			lower = upper
		}
		brackets = append(brackets, b)
	}

	return TaxTable{
		Version:           "iit-monthly-2019",
		Brackets:          brackets,
		StandardDeduction: decimal.NewFromInt(5000),
		DeductionLimits: map[tax.DeductionType]decimal.Decimal{
			tax.DeductionChildEducation:      decimal.NewFromInt(2000),
			tax.DeductionContinuingEducation: decimal.NewFromInt(400),
			tax.DeductionHousingLoan:         decimal.NewFromInt(1000),
			tax.DeductionHousingRent:         decimal.NewFromInt(1500),
			tax.DeductionElderlyCare:         decimal.NewFromInt(3000),
			tax.DeductionMedicalTreatment:    decimal.NewFromInt(80000),
		},
		MaxEffectiveRate:   decimal.RequireFromString("0.45"),
		DeviationTolerance: decimal.RequireFromString("0.10"),
	}
}
