package tax

import "context"

type Repository interface {
	// DeleteByPeriod removes every record of the period and returns how many were removed.
	DeleteByPeriod(ctx context.Context, periodID string) (int, error)
	GetByEmployeeAndPeriod(ctx context.Context, employeeID, periodID string) (TaxCalculationResult, error)
	Create(ctx context.Context, record TaxCalculationResult) (TaxCalculationResult, error)
	Upsert(ctx context.Context, record TaxCalculationResult) (TaxCalculationResult, error)
	ListByPeriod(ctx context.Context, periodID string) ([]TaxCalculationResult, error)
}
