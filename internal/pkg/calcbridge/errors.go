package calcbridge

import (
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
)

var ErrUnsupportedRequest = errors.New("unsupported calculation request")

// RemoteCallError is a failed call to the calculation function.
type RemoteCallError struct {
	Action     Action
	StatusCode int
	Attempts   int
	Transient  bool
	Err        error
}

func (e *RemoteCallError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("remote %s failed with status %d after %d attempt(s): %v", e.Action, e.StatusCode, e.Attempts, e.Err)
	}
	return fmt.Sprintf("remote %s failed after %d attempt(s): %v", e.Action, e.Attempts, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a RemoteCallError worth retrying.
func IsTransient(err error) bool {
	var rce *RemoteCallError
	return errors.As(err, &rce) && rce.Transient
}

// Error codes the calculation function reports for a failed employee.
const (
	CodeEmployeeNotFound   = "employee_not_found"
	CodePeriodNotFound     = "period_not_found"
	CodeInvalidCalculation = "invalid_calculation"
)

var outcomeErrors = map[string]error{
	CodeEmployeeNotFound:   employee.ErrEmployeeNotFound,
	CodePeriodNotFound:     payroll.ErrPayrollPeriodNotFound,
	CodeInvalidCalculation: insurance.ErrInvalidCalculation,
}

// outcomeError maps a remote per-employee failure back onto the domain error
// the local calculator would have returned. Functions that send no code are
// matched on the message.
func outcomeError(code, message string) error {
	target, ok := outcomeErrors[code]
	if !ok {
		for _, known := range outcomeErrors {
			if message == known.Error() {
				return known
			}
		}
		if message == "" {
			return errors.New("remote calculation reported a failure")
		}
		return errors.New(message)
	}
	if message == "" || message == target.Error() {
		return target
	}
	return fmt.Errorf("%s: %w", message, target)
}
