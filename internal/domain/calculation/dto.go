package calculation

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

const DefaultChunkSize = 50

type SingleRequest struct {
	EmployeeID         string    `json:"employee_id"`
	PeriodID           string    `json:"period_id"`
	CalculationDate    time.Time `json:"calculation_date"`
	ForceRecalculation bool      `json:"force_recalculation"`
	ValidateOnly       bool      `json:"validate_only"`
}

func (r SingleRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if validator.IsEmpty(r.PeriodID) {
		errs = append(errs, validator.ValidationError{Field: "period_id", Message: "period_id is required"})
	}
	if r.CalculationDate.IsZero() {
		errs = append(errs, validator.ValidationError{Field: "calculation_date", Message: "calculation_date is required"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// BatchOptions holds the two independent failure policies of a batch.
// The zero value continues past every failure.
type BatchOptions struct {
	ChunkSize int `json:"chunk_size"`
	// StopOnItemError stops the current chunk at its first failing employee.
	StopOnItemError bool `json:"stop_on_item_error"`
	// AbortOnChunkError skips every remaining chunk once a chunk reports a failure.
	AbortOnChunkError bool `json:"abort_on_chunk_error"`
}

type BatchRequest struct {
	EmployeeIDs        []string     `json:"employee_ids"`
	PeriodID           string       `json:"period_id"`
	CalculationDate    time.Time    `json:"calculation_date"`
	ForceRecalculation bool         `json:"force_recalculation"`
	ValidateOnly       bool         `json:"validate_only"`
	Options            BatchOptions `json:"options"`
}

func (r BatchRequest) Validate() error {
	var errs validator.ValidationErrors
	if len(r.EmployeeIDs) == 0 {
		errs = append(errs, validator.ValidationError{Field: "employee_ids", Message: "at least one employee id is required"})
	}
	for _, id := range r.EmployeeIDs {
		if validator.IsEmpty(id) {
			errs = append(errs, validator.ValidationError{Field: "employee_ids", Message: "employee ids must not be empty"})
			break
		}
	}
	if validator.IsEmpty(r.PeriodID) {
		errs = append(errs, validator.ValidationError{Field: "period_id", Message: "period_id is required"})
	}
	if r.CalculationDate.IsZero() {
		errs = append(errs, validator.ValidationError{Field: "calculation_date", Message: "calculation_date is required"})
	}
	if r.Options.ChunkSize < 0 {
		errs = append(errs, validator.ValidationError{Field: "options.chunk_size", Message: "chunk_size must not be negative"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ItemError struct {
	EmployeeID string `json:"employee_id"`
	ChunkIndex int    `json:"chunk_index"`
	Message    string `json:"message"`
}

type BatchSummary struct {
	TotalRequested int           `json:"total_requested"`
	TotalProcessed int           `json:"total_processed"`
	SuccessCount   int           `json:"success_count"`
	ErrorCount     int           `json:"error_count"`
	SkippedCount   int           `json:"skipped_count"`
	WarningCount   int           `json:"warning_count"`
	ChunkCount     int           `json:"chunk_count"`
	CacheHits      int           `json:"cache_hits"`
	TotalDuration  time.Duration `json:"total_duration"`
	AvgDuration    time.Duration `json:"avg_duration"`
	Aborted        bool          `json:"aborted"`
}

// BatchResult keeps successful results in input order.
type BatchResult struct {
	BatchID  string                             `json:"batch_id"`
	PeriodID string                             `json:"period_id"`
	Results  []*insurance.SocialInsuranceResult `json:"results"`
	Errors   []ItemError                        `json:"errors"`
	Summary  BatchSummary                       `json:"summary"`
}

type RecalculateRequest struct {
	PeriodID string       `json:"period_id"`
	Options  BatchOptions `json:"options"`
}

type PayRequest struct {
	EmployeeID      string    `json:"employee_id"`
	PeriodID        string    `json:"period_id"`
	CalculationDate time.Time `json:"calculation_date"`
}

func (r PayRequest) Validate() error {
	return SingleRequest{EmployeeID: r.EmployeeID, PeriodID: r.PeriodID, CalculationDate: r.CalculationDate}.Validate()
}

// PayResult is the gross to net breakdown of one employee for one period.
type PayResult struct {
	EmployeeID              string          `json:"employee_id"`
	PeriodID                string          `json:"period_id"`
	GrossPay                decimal.Decimal `json:"gross_pay"`
	SocialInsuranceEmployee decimal.Decimal `json:"social_insurance_employee"`
	HousingFundEmployee     decimal.Decimal `json:"housing_fund_employee"`
	TaxAmount               decimal.Decimal `json:"tax_amount"`
	NetPay                  decimal.Decimal `json:"net_pay"`
	Warnings                []string        `json:"warnings"`
}
