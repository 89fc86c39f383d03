package calculation

import (
	"context"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
)

// Engine is the single entry point for payroll calculations.
type Engine interface {
	CalculateEmployeeSocialInsurance(ctx context.Context, req SingleRequest) (*insurance.SocialInsuranceResult, error)
	BatchCalculateSocialInsurance(ctx context.Context, req BatchRequest) (BatchResult, error)
	RecalculatePeriodSocialInsurance(ctx context.Context, req RecalculateRequest) (BatchResult, error)
	CalculateEmployeePay(ctx context.Context, req PayRequest) (PayResult, error)
}
