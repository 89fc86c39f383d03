package calcbridge

import (
	"encoding/json"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
)

type Action string

const (
	ActionCalculateEmployee Action = "calculate_employee"
	ActionCalculateBatch    Action = "calculate_batch"
)

// Request is a remote calculation request. Only the variants of this package implement it.
type Request interface {
	Action() Action
	isRequest()
}

// CalculateEmployee computes one employee.
type CalculateEmployee struct {
	employeeID      string
	periodID        string
	calculationDate time.Time
	validateOnly    bool
}

func NewCalculateEmployee(employeeID, periodID string, calculationDate time.Time, validateOnly bool) (CalculateEmployee, error) {
	var errs validator.ValidationErrors
	if validator.IsEmpty(employeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	errs = append(errs, validatePeriod(periodID, calculationDate)...)
	if len(errs) > 0 {
		return CalculateEmployee{}, errs
	}
	return CalculateEmployee{
		employeeID:      employeeID,
		periodID:        periodID,
		calculationDate: calculationDate,
		validateOnly:    validateOnly,
	}, nil
}

func (CalculateEmployee) Action() Action { return ActionCalculateEmployee }
func (CalculateEmployee) isRequest()     {}

func (r CalculateEmployee) EmployeeID() string         { return r.employeeID }
func (r CalculateEmployee) PeriodID() string           { return r.periodID }
func (r CalculateEmployee) CalculationDate() time.Time { return r.calculationDate }
func (r CalculateEmployee) ValidateOnly() bool         { return r.validateOnly }

func (r CalculateEmployee) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelope{
		Action: r.Action(),
		Payload: employeePayload{
			EmployeeID:      r.employeeID,
			PeriodID:        r.periodID,
			CalculationDate: r.calculationDate.Format("2006-01-02"),
			ValidateOnly:    r.validateOnly,
		},
	})
}

// CalculateBatch computes several employees of one period in input order.
type CalculateBatch struct {
	employeeIDs     []string
	periodID        string
	calculationDate time.Time
	validateOnly    bool
	stopOnItemError bool
}

func NewCalculateBatch(employeeIDs []string, periodID string, calculationDate time.Time, validateOnly, stopOnItemError bool) (CalculateBatch, error) {
	var errs validator.ValidationErrors
	if len(employeeIDs) == 0 {
		errs = append(errs, validator.ValidationError{Field: "employee_ids", Message: "at least one employee id is required"})
	}
	for _, id := range employeeIDs {
		if validator.IsEmpty(id) {
			errs = append(errs, validator.ValidationError{Field: "employee_ids", Message: "employee ids must not be empty"})
			break
		}
	}
	errs = append(errs, validatePeriod(periodID, calculationDate)...)
	if len(errs) > 0 {
		return CalculateBatch{}, errs
	}
	return CalculateBatch{
		employeeIDs:     append([]string(nil), employeeIDs...),
		periodID:        periodID,
		calculationDate: calculationDate,
		validateOnly:    validateOnly,
		stopOnItemError: stopOnItemError,
	}, nil
}

func (CalculateBatch) Action() Action { return ActionCalculateBatch }
func (CalculateBatch) isRequest()     {}

func (r CalculateBatch) EmployeeIDs() []string      { return append([]string(nil), r.employeeIDs...) }
func (r CalculateBatch) PeriodID() string           { return r.periodID }
func (r CalculateBatch) CalculationDate() time.Time { return r.calculationDate }
func (r CalculateBatch) ValidateOnly() bool         { return r.validateOnly }
func (r CalculateBatch) StopOnItemError() bool      { return r.stopOnItemError }

func (r CalculateBatch) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelope{
		Action: r.Action(),
		Payload: batchPayload{
			EmployeeIDs:     r.employeeIDs,
			PeriodID:        r.periodID,
			CalculationDate: r.calculationDate.Format("2006-01-02"),
			ValidateOnly:    r.validateOnly,
			StopOnItemError: r.stopOnItemError,
		},
	})
}

func validatePeriod(periodID string, calculationDate time.Time) validator.ValidationErrors {
	var errs validator.ValidationErrors
	if validator.IsEmpty(periodID) {
		errs = append(errs, validator.ValidationError{Field: "period_id", Message: "period_id is required"})
	}
	if calculationDate.IsZero() {
		errs = append(errs, validator.ValidationError{Field: "calculation_date", Message: "calculation_date is required"})
	}
	return errs
}

type envelope struct {
	Action  Action `json:"action"`
	Payload any    `json:"payload"`
}

type employeePayload struct {
	EmployeeID      string `json:"employee_id"`
	PeriodID        string `json:"period_id"`
	CalculationDate string `json:"calculation_date"`
	ValidateOnly    bool   `json:"validate_only"`
}

type batchPayload struct {
	EmployeeIDs     []string `json:"employee_ids"`
	PeriodID        string   `json:"period_id"`
	CalculationDate string   `json:"calculation_date"`
	ValidateOnly    bool     `json:"validate_only"`
	StopOnItemError bool     `json:"stop_on_item_error"`
}

// Outcome is the result of one employee within a response.
type Outcome struct {
	EmployeeID string
	Result     *insurance.SocialInsuranceResult
	Err        error
}

// Response holds one outcome per processed employee, in request order.
// Employees after a stop-on-error failure have no outcome.
type Response struct {
	Outcomes []Outcome
}
