package calculation

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/calculation"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/shopspring/decimal"
)

// CalculateEmployeePay combines the social insurance result with the stored tax record
// into a gross to net breakdown.
func (e *EngineImpl) CalculateEmployeePay(ctx context.Context, req calculation.PayRequest) (calculation.PayResult, error) {
	if err := req.Validate(); err != nil {
		return calculation.PayResult{}, err
	}

	ctx, span := e.tracer.Start(ctx, "calculation.CalculateEmployeePay")
	defer span.End()

	si, err := e.CalculateEmployeeSocialInsurance(ctx, calculation.SingleRequest{
		EmployeeID:      req.EmployeeID,
		PeriodID:        req.PeriodID,
		CalculationDate: req.CalculationDate,
	})
	if err != nil {
		return calculation.PayResult{}, err
	}

	result := calculation.PayResult{
		EmployeeID: req.EmployeeID,
		PeriodID:   req.PeriodID,
		Warnings:   append([]string{}, si.Warnings...),
	}

	gross, warning, err := e.grossPay(ctx, req.EmployeeID, req.PeriodID)
	if err != nil {
		return calculation.PayResult{}, err
	}
	if warning != "" {
		result.Warnings = append(result.Warnings, warning)
	}
	result.GrossPay = gross

	housing := decimal.Zero
	if c, ok := si.Component(insurance.TypeHousingFund); ok && c.IsApplicable {
		housing = c.EmployeeContribution
	}
	result.HousingFundEmployee = housing
	result.SocialInsuranceEmployee = si.TotalEmployeeContribution.Sub(housing)

	record, err := e.taxRepo.GetByEmployeeAndPeriod(ctx, req.EmployeeID, req.PeriodID)
	switch {
	case errors.Is(err, tax.ErrTaxRecordNotFound):
		result.TaxAmount = decimal.Zero
		result.Warnings = append(result.Warnings, "no personal income tax record for the period, tax treated as 0")
	case err != nil:
		return calculation.PayResult{}, fmt.Errorf("load tax record: %w", err)
	default:
		result.TaxAmount = record.TaxAmount
	}

	result.NetPay = result.GrossPay.
		Sub(result.SocialInsuranceEmployee).
		Sub(result.HousingFundEmployee).
		Sub(result.TaxAmount).
		Round(2)

	e.logger.Debug("net pay calculated",
		"employee_id", req.EmployeeID,
		"period_id", req.PeriodID,
		"gross", result.GrossPay.String(),
		"net", result.NetPay.String(),
	)
	return result, nil
}

// grossPay prefers the payroll entry of the period and falls back to the base salary.
func (e *EngineImpl) grossPay(ctx context.Context, employeeID, periodID string) (decimal.Decimal, string, error) {
	snapshot, err := e.payrollRepo.GetPayrollByEmployeeAndPeriod(ctx, employeeID, periodID)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("load payroll entry: %w", err)
	}
	if snapshot != nil && snapshot.GrossPay.IsPositive() {
		return snapshot.GrossPay, "", nil
	}

	emp, err := e.employeeRepo.GetByID(ctx, employeeID)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("load employee: %w", err)
	}
	if emp.BaseSalary != nil {
		return *emp.BaseSalary, "", nil
	}
	return decimal.Zero, "no gross pay or base salary on record, gross pay treated as 0", nil
}
