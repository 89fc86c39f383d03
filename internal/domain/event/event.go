package event

//go:generate mockgen -source=event.go -destination=mocks/publisher.go -package=mocks Publisher

import (
	"context"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
)

type Type string

const (
	TypeSocialInsuranceCalculated      Type = "social_insurance.calculated"
	TypeBatchSocialInsuranceCalculated Type = "social_insurance.batch_calculated"
	TypePersonalIncomeTaxImported      Type = "personal_income_tax.imported"
	TypePersonalIncomeTaxCalculated    Type = "personal_income_tax.calculated"
)

// Event is a domain event handed to the bus. Key is used as the partition key.
type Event interface {
	EventType() Type
	Key() string
	OccurredAt() time.Time
}

// Publisher is fire-and-forget from the caller's point of view.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type SocialInsuranceCalculated struct {
	EmployeeID string                           `json:"employee_id"`
	PeriodID   string                           `json:"period_id"`
	Result     *insurance.SocialInsuranceResult `json:"result"`
	Timestamp  time.Time                        `json:"timestamp"`
}

func (e SocialInsuranceCalculated) EventType() Type       { return TypeSocialInsuranceCalculated }
func (e SocialInsuranceCalculated) Key() string           { return e.EmployeeID + ":" + e.PeriodID }
func (e SocialInsuranceCalculated) OccurredAt() time.Time { return e.Timestamp }

// BatchSummary mirrors the batch summary without importing the calculation package.
type BatchSummary struct {
	TotalRequested int           `json:"total_requested"`
	TotalProcessed int           `json:"total_processed"`
	SuccessCount   int           `json:"success_count"`
	ErrorCount     int           `json:"error_count"`
	WarningCount   int           `json:"warning_count"`
	TotalDuration  time.Duration `json:"total_duration"`
	AvgDuration    time.Duration `json:"avg_duration"`
}

type BatchSocialInsuranceCalculated struct {
	BatchID   string                             `json:"batch_id"`
	PeriodID  string                             `json:"period_id"`
	Results   []*insurance.SocialInsuranceResult `json:"results"`
	Summary   BatchSummary                       `json:"summary"`
	Timestamp time.Time                          `json:"timestamp"`
}

func (e BatchSocialInsuranceCalculated) EventType() Type {
	return TypeBatchSocialInsuranceCalculated
}
func (e BatchSocialInsuranceCalculated) Key() string           { return e.BatchID }
func (e BatchSocialInsuranceCalculated) OccurredAt() time.Time { return e.Timestamp }

type PersonalIncomeTaxImported struct {
	PeriodID  string            `json:"period_id"`
	Results   []tax.RowResult   `json:"results"`
	Summary   tax.ImportSummary `json:"summary"`
	Timestamp time.Time         `json:"timestamp"`
}

func (e PersonalIncomeTaxImported) EventType() Type       { return TypePersonalIncomeTaxImported }
func (e PersonalIncomeTaxImported) Key() string           { return e.PeriodID }
func (e PersonalIncomeTaxImported) OccurredAt() time.Time { return e.Timestamp }

type PersonalIncomeTaxCalculated struct {
	EmployeeID string                   `json:"employee_id"`
	PeriodID   string                   `json:"period_id"`
	Result     tax.TaxCalculationResult `json:"result"`
	Timestamp  time.Time                `json:"timestamp"`
}

func (e PersonalIncomeTaxCalculated) EventType() Type       { return TypePersonalIncomeTaxCalculated }
func (e PersonalIncomeTaxCalculated) Key() string           { return e.EmployeeID + ":" + e.PeriodID }
func (e PersonalIncomeTaxCalculated) OccurredAt() time.Time { return e.Timestamp }
