package payroll

import "context"

// PayrollRepository defines read access to pay periods and payroll entries.
type PayrollRepository interface {
	GetPeriodByID(ctx context.Context, id string) (PayrollPeriod, error)
	GetPeriodByMonth(ctx context.Context, month string) (PayrollPeriod, error)
	GetEmployeeIDsByPeriod(ctx context.Context, periodID string) ([]string, error)

	// GetPayrollByEmployeeAndPeriod returns nil without error when the employee has no entry yet.
	GetPayrollByEmployeeAndPeriod(ctx context.Context, employeeID, periodID string) (*PayrollSnapshot, error)
}
