package response

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/calculation"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/report"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth
	case errors.Is(err, user.ErrInvalidToken):
		Unauthorized(w, err.Error())
	case errors.Is(err, user.ErrInsufficientPermissions):
		Forbidden(w, err.Error())

	// Lookups
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, payroll.ErrPayrollPeriodNotFound):
		NotFound(w, "Payroll period not found")
	case errors.Is(err, tax.ErrTaxRecordNotFound):
		NotFound(w, "Tax record not found")
	case errors.Is(err, insurance.ErrResultNotFound):
		NotFound(w, "Social insurance result not found")
	case errors.Is(err, report.ErrNoDataFound):
		NotFound(w, err.Error())

	// Bad input
	case errors.Is(err, payroll.ErrInvalidPeriodMonth),
		errors.Is(err, tax.ErrInvalidImportMode),
		errors.Is(err, report.ErrInvalidFormat),
		errors.Is(err, insurance.ErrInvalidCalculation),
		errors.Is(err, calculation.ErrEmptyBatch):
		BadRequest(w, err.Error(), nil)

	// State conflicts
	case errors.Is(err, tax.ErrTaxRecordExists),
		errors.Is(err, tax.ErrCalculationMethodLocked):
		Conflict(w, err.Error())

	// Calculation infrastructure
	case errors.Is(err, calculation.ErrRemoteFailure):
		BadGateway(w, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		GatewayTimeout(w, "Calculation timed out")

	default:
		slog.Error("unhandled request error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}

// HandleBatchError answers an aborted batch with its partial result.
func HandleBatchError(w http.ResponseWriter, err error, partial calculation.BatchResult) {
	var aborted *calculation.BatchAbortedError
	if errors.As(err, &aborted) {
		if errors.Is(err, calculation.ErrRemoteFailure) {
			writeError(w, http.StatusBadGateway, "REMOTE_CALCULATION_FAILED", err.Error(), nil, partial)
			return
		}
		BatchAborted(w, err.Error(), partial)
		return
	}
	HandleError(w, err)
}
