package tax

import (
	"context"

	"github.com/shopspring/decimal"
)

type Processor interface {
	BatchImportTaxData(ctx context.Context, req ImportRequest) (ImportResult, error)
	SetEmployeeTax(ctx context.Context, employeeID, periodID string, req SetEmployeeTaxRequest) (TaxCalculationResult, error)
	CalculateExpectedTax(taxableIncome decimal.Decimal) ExpectedTax
}
