package tax

import (
	"strings"
	"testing"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/ruletable"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func containsAny(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func TestValidateTaxData(t *testing.T) {
	table := ruletable.Default().Tax

	tests := []struct {
		name            string
		in              tax.ValidationInput
		wantErrors      []string
		wantWarnings    []string
		wantSuggestions []string
	}{
		{
			name: "matching expected tax",
			in:   tax.ValidationInput{TaxableIncome: d("10000"), TaxAmount: d("790")},
		},
		{
			name:       "negative taxable income",
			in:         tax.ValidationInput{TaxableIncome: d("-1"), TaxAmount: d("-1")},
			wantErrors: []string{"taxable_income: must not be negative", "tax_amount: must not be negative"},
		},
		{
			name:       "negative tax amount",
			in:         tax.ValidationInput{TaxableIncome: d("100"), TaxAmount: d("-5")},
			wantErrors: []string{"tax_amount: must not be negative"},
		},
		{
			name:       "tax above taxable income",
			in:         tax.ValidationInput{TaxableIncome: d("100"), TaxAmount: d("150")},
			wantErrors: []string{"must not exceed taxable_income"},
		},
		{
			name: "negative special deduction",
			in: tax.ValidationInput{TaxableIncome: d("100"), TaxAmount: d("3"), SpecialDeductions: []tax.SpecialDeduction{
				{Type: tax.DeductionElderlyCare, Amount: d("-1")},
			}},
			wantErrors: []string{"special_deductions[0].amount"},
		},
		{
			name: "deduction over limit is a warning",
			in: tax.ValidationInput{TaxableIncome: d("10000"), TaxAmount: d("790"), SpecialDeductions: []tax.SpecialDeduction{
				{Type: tax.DeductionHousingRent, Amount: d("2000")},
			}},
			wantWarnings: []string{"housing_rent deduction"},
		},
		{
			name:         "negative deduction amount is a warning",
			in:           tax.ValidationInput{TaxableIncome: d("10000"), TaxAmount: d("790"), DeductionAmount: d("-50")},
			wantWarnings: []string{"deduction_amount -50.00 is negative"},
		},
		{
			name:         "deviation from expected",
			in:           tax.ValidationInput{TaxableIncome: d("10000"), TaxAmount: d("1000")},
			wantWarnings: []string{"deviates"},
		},
		{
			name:         "effective rate above ceiling",
			in:           tax.ValidationInput{TaxableIncome: d("1000"), TaxAmount: d("500")},
			wantWarnings: []string{"effective tax rate", "deviates"},
		},
		{
			name:            "zero tax above threshold",
			in:              tax.ValidationInput{TaxableIncome: d("8000"), TaxAmount: d("0")},
			wantWarnings:    []string{"deviates"},
			wantSuggestions: []string{"missing deductions"},
		},
		{
			name: "zero tax below threshold",
			in:   tax.ValidationInput{TaxableIncome: d("0"), TaxAmount: d("0")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateTaxData(table, tt.in)

			assert.Len(t, got.Errors, len(tt.wantErrors), "errors: %v", got.Errors)
			for _, w := range tt.wantErrors {
				assert.True(t, containsAny(got.Errors, w), "missing error %q in %v", w, got.Errors)
			}
			assert.Len(t, got.Warnings, len(tt.wantWarnings), "warnings: %v", got.Warnings)
			for _, w := range tt.wantWarnings {
				assert.True(t, containsAny(got.Warnings, w), "missing warning %q in %v", w, got.Warnings)
			}
			assert.Len(t, got.Suggestions, len(tt.wantSuggestions), "suggestions: %v", got.Suggestions)
			for _, w := range tt.wantSuggestions {
				assert.True(t, containsAny(got.Suggestions, w), "missing suggestion %q in %v", w, got.Suggestions)
			}
		})
	}
}

func TestValidateTaxData_TaxAboveTaxableIsAlwaysAnError(t *testing.T) {
	table := ruletable.Default().Tax
	for _, taxable := range []string{"0", "1", "2999.99", "3000", "12000", "80000", "1000000"} {
		for _, extra := range []string{"0.01", "1", "5000"} {
			in := tax.ValidationInput{TaxableIncome: d(taxable), TaxAmount: d(taxable).Add(d(extra))}
			got := ValidateTaxData(table, in)
			require.True(t, got.HasErrors(), "taxable %s extra %s", taxable, extra)
			assert.True(t, containsAny(got.Errors, "must not exceed taxable_income"))
			assert.False(t, containsAny(got.Warnings, "must not exceed"))
		}
	}
}

func TestValidateTaxData_ReturnsExpectedTax(t *testing.T) {
	got := ValidateTaxData(ruletable.Default().Tax, tax.ValidationInput{TaxableIncome: d("30000"), TaxAmount: d("4840")})
	require.NotNil(t, got.Expected)
	assert.Equal(t, 4, got.Expected.Level)
	assert.True(t, got.Expected.ExpectedTax.Equal(d("4840")))
	assert.Empty(t, got.Warnings)
}
