package tax

import (
	"github.com/shopspring/decimal"
)

// ImportMode controls how an import treats existing records of the period.
type ImportMode string

const (
	ImportModeReplace ImportMode = "replace"
	ImportModeUpdate  ImportMode = "update"
	ImportModeAppend  ImportMode = "append"
)

func (m ImportMode) IsValid() bool {
	return m == ImportModeReplace || m == ImportModeUpdate || m == ImportModeAppend
}

// ImportRow is one structured row produced by the spreadsheet parser.
type ImportRow struct {
	EmployeeCode             string             `json:"employee_code" validate:"required"`
	GrossIncome              decimal.Decimal    `json:"gross_income"`
	SocialInsuranceDeduction decimal.Decimal    `json:"social_insurance_deduction"`
	HousingFundDeduction     decimal.Decimal    `json:"housing_fund_deduction"`
	SpecialDeductions        []SpecialDeduction `json:"special_deductions" validate:"dive"`
	TaxableIncome            decimal.Decimal    `json:"taxable_income"`
	TaxAmount                decimal.Decimal    `json:"tax_amount"`
}

type ImportRequest struct {
	PeriodID     string      `json:"period_id"`
	Rows         []ImportRow `json:"rows"`
	Mode         ImportMode  `json:"import_mode"`
	ValidateOnly bool        `json:"validate_only"`
}

type RowStatus string

const (
	RowStatusSuccess RowStatus = "success"
	RowStatusError   RowStatus = "error"
)

type RowResult struct {
	RowNumber    int                   `json:"row_number"`
	EmployeeCode string                `json:"employee_code"`
	EmployeeID   string                `json:"employee_id,omitempty"`
	Status       RowStatus             `json:"status"`
	Message      string                `json:"message,omitempty"`
	Warnings     []string              `json:"warnings,omitempty"`
	Suggestions  []string              `json:"suggestions,omitempty"`
	Result       *TaxCalculationResult `json:"result,omitempty"`
}

type ImportSummary struct {
	TotalRecords   int `json:"total_records"`
	SuccessCount   int `json:"success_count"`
	ErrorCount     int `json:"error_count"`
	WarningCount   int `json:"warning_count"`
	ClearedRecords int `json:"cleared_records"`
}

type ImportResult struct {
	PeriodID     string        `json:"period_id"`
	Mode         ImportMode    `json:"import_mode"`
	ValidateOnly bool          `json:"validate_only"`
	Results      []RowResult   `json:"results"`
	Summary      ImportSummary `json:"summary"`
}

// SetEmployeeTaxRequest is a manual entry for one employee.
type SetEmployeeTaxRequest struct {
	GrossIncome              decimal.Decimal    `json:"gross_income"`
	SocialInsuranceDeduction decimal.Decimal    `json:"social_insurance_deduction"`
	HousingFundDeduction     decimal.Decimal    `json:"housing_fund_deduction"`
	SpecialDeductions        []SpecialDeduction `json:"special_deductions" validate:"dive"`
	TaxableIncome            decimal.Decimal    `json:"taxable_income"`
	TaxAmount                decimal.Decimal    `json:"tax_amount"`
	Overwrite                bool               `json:"overwrite"`
}

// ValidationInput is what ValidateTaxData inspects.
type ValidationInput struct {
	TaxableIncome     decimal.Decimal
	TaxAmount         decimal.Decimal
	DeductionAmount   decimal.Decimal
	SpecialDeductions []SpecialDeduction
}

// ValidationResult separates blocking errors from advisory output.
type ValidationResult struct {
	Errors      []string     `json:"errors"`
	Warnings    []string     `json:"warnings"`
	Suggestions []string     `json:"suggestions"`
	Expected    *ExpectedTax `json:"expected,omitempty"`
}

func (v ValidationResult) HasErrors() bool {
	return len(v.Errors) > 0
}
