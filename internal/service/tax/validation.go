package tax

import (
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/ruletable"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ValidateTaxData checks submitted tax figures against the bracket table.
// Errors block persistence, warnings and suggestions are advisory.
func ValidateTaxData(table ruletable.TaxTable, in tax.ValidationInput) tax.ValidationResult {
	result, _ := validateTaxData(table, in)
	return result
}

// validateTaxData also returns the blocking errors keyed by field.
func validateTaxData(table ruletable.TaxTable, in tax.ValidationInput) (tax.ValidationResult, validator.ValidationErrors) {
	var fieldErrs validator.ValidationErrors
	result := tax.ValidationResult{
		Errors:      []string{},
		Warnings:    []string{},
		Suggestions: []string{},
	}

	if in.TaxableIncome.IsNegative() {
		fieldErrs = append(fieldErrs, validator.ValidationError{
			Field:   "taxable_income",
			Message: "must not be negative",
		})
	}
	if in.TaxAmount.IsNegative() {
		fieldErrs = append(fieldErrs, validator.ValidationError{
			Field:   "tax_amount",
			Message: "must not be negative",
		})
	}
	if in.TaxAmount.GreaterThan(in.TaxableIncome) {
		fieldErrs = append(fieldErrs, validator.ValidationError{
			Field: "tax_amount",
			Message: fmt.Sprintf("tax_amount %s must not exceed taxable_income %s",
				in.TaxAmount.StringFixed(2), in.TaxableIncome.StringFixed(2)),
		})
	}
	if in.DeductionAmount.IsNegative() {
		result.Warnings = append(result.Warnings, fmt.Sprintf("deduction_amount %s is negative, check the social insurance and housing fund deductions",
			in.DeductionAmount.StringFixed(2)))
	}
	for i, d := range in.SpecialDeductions {
		field := fmt.Sprintf("special_deductions[%d].amount", i)
		if d.Amount.IsNegative() {
			fieldErrs = append(fieldErrs, validator.ValidationError{Field: field, Message: "must not be negative"})
			continue
		}
		if limit, ok := table.DeductionLimit(d.Type); ok && d.Amount.GreaterThan(limit) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s deduction %s exceeds the monthly limit of %s",
				d.Type, d.Amount.StringFixed(2), limit.StringFixed(2)))
		}
	}

	for _, fe := range fieldErrs {
		result.Errors = append(result.Errors, fe.Field+": "+fe.Message)
	}
	if len(fieldErrs) > 0 {
		return result, fieldErrs
	}

	expected := table.ExpectedTax(in.TaxableIncome)
	result.Expected = &expected

	if in.TaxableIncome.IsPositive() {
		rate := in.TaxAmount.Div(in.TaxableIncome)
		if rate.GreaterThan(table.MaxEffectiveRate) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("effective tax rate %s%% exceeds the %s%% ceiling",
				percent(rate), percent(table.MaxEffectiveRate)))
		}
	}

	if deviates(in.TaxAmount, expected.ExpectedTax, table.DeviationTolerance) {
		result.Warnings = append(result.Warnings, fmt.Sprintf("tax_amount %s deviates more than %s%% from the expected %s (bracket %d)",
			in.TaxAmount.StringFixed(2), percent(table.DeviationTolerance), expected.ExpectedTax.StringFixed(0), expected.Level))
	}

	if in.TaxAmount.IsZero() && in.TaxableIncome.GreaterThan(table.StandardDeduction) {
		result.Suggestions = append(result.Suggestions, fmt.Sprintf(
			"tax_amount is zero while taxable_income exceeds %s, check for missing deductions or exemptions",
			table.StandardDeduction.StringFixed(0)))
	}

	return result, nil
}

// deviates reports |submitted - expected| > tolerance * expected.
// Any non-zero amount deviates from an expected zero.
func deviates(submitted, expected, tolerance decimal.Decimal) bool {
	diff := submitted.Sub(expected).Abs()
	if expected.IsZero() {
		return !diff.IsZero()
	}
	return diff.GreaterThan(expected.Mul(tolerance))
}

func percent(rate decimal.Decimal) string {
	return rate.Mul(decimal.NewFromInt(100)).Round(2).String()
}
