package insurance

import (
	"context"
	"time"
)

type CalculateRequest struct {
	EmployeeID      string
	PeriodID        string
	CalculationDate time.Time
	ValidateOnly    bool
}

// Calculator computes contributions of a single employee. It does not cache.
type Calculator interface {
	Calculate(ctx context.Context, req CalculateRequest) (*SocialInsuranceResult, error)
}
