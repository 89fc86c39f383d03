package payroll

import "errors"

var (
	ErrPayrollPeriodNotFound = errors.New("payroll period not found")
	ErrInvalidPeriod         = errors.New("invalid payroll period")
	ErrInvalidPeriodMonth    = errors.New("period month must be formatted as YYYY-MM")
)
