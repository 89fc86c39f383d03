package tax

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeductionType enum
type DeductionType string

const (
	DeductionChildEducation      DeductionType = "child_education"
	DeductionContinuingEducation DeductionType = "continuing_education"
	DeductionHousingLoan         DeductionType = "housing_loan"
	DeductionHousingRent         DeductionType = "housing_rent"
	DeductionElderlyCare         DeductionType = "elderly_care"
	DeductionMedicalTreatment    DeductionType = "medical_treatment"
)

type SpecialDeduction struct {
	Type        DeductionType   `json:"type" validate:"required,oneof=child_education continuing_education housing_loan housing_rent elderly_care medical_treatment"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// CalculationMethod records how a tax figure entered the system.
type CalculationMethod string

const (
	MethodImported   CalculationMethod = "imported"
	MethodCalculated CalculationMethod = "calculated"
	MethodManual     CalculationMethod = "manual"
)

// TaxCalculationResult is the personal income tax record of one employee for one period.
type TaxCalculationResult struct {
	ID                       string             `json:"id"`
	EmployeeID               string             `json:"employee_id"`
	PeriodID                 string             `json:"period_id"`
	GrossIncome              decimal.Decimal    `json:"gross_income"`
	SocialInsuranceDeduction decimal.Decimal    `json:"social_insurance_deduction"`
	HousingFundDeduction     decimal.Decimal    `json:"housing_fund_deduction"`
	StandardDeduction        decimal.Decimal    `json:"standard_deduction"`
	SpecialDeductions        []SpecialDeduction `json:"special_deductions"`
	TotalSpecialDeductions   decimal.Decimal    `json:"total_special_deductions"`
	TaxableIncome            decimal.Decimal    `json:"taxable_income"`
	TaxAmount                decimal.Decimal    `json:"tax_amount"`
	EffectiveTaxRate         decimal.Decimal    `json:"effective_tax_rate"`
	NetIncome                decimal.Decimal    `json:"net_income"`
	CalculationMethod        CalculationMethod  `json:"calculation_method"`
	CalculatedAt             time.Time          `json:"calculated_at"`

	// Advisory output of the last validation, not persisted.
	Warnings    []string `json:"warnings,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Derive fills the derived fields from the stored inputs.
func (r *TaxCalculationResult) Derive() {
	total := decimal.Zero
	for _, d := range r.SpecialDeductions {
		total = total.Add(d.Amount)
	}
	r.TotalSpecialDeductions = total
	if r.TaxableIncome.IsPositive() {
		r.EffectiveTaxRate = r.TaxAmount.Div(r.TaxableIncome).Round(4)
	} else {
		r.EffectiveTaxRate = decimal.Zero
	}
	r.NetIncome = r.TaxableIncome.Sub(r.TaxAmount)
}

// ExpectedTax is the bracket table outcome for a taxable income.
type ExpectedTax struct {
	TaxableIncome  decimal.Decimal `json:"taxable_income"`
	Level          int             `json:"level"`
	Rate           decimal.Decimal `json:"rate"`
	QuickDeduction decimal.Decimal `json:"quick_deduction"`
	ExpectedTax    decimal.Decimal `json:"expected_tax"`
}
