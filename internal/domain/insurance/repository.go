package insurance

import "context"

type Repository interface {
	// SaveResult replaces the stored components of the employee/period pair.
	SaveResult(ctx context.Context, result SocialInsuranceResult) error
	GetResultsByPeriod(ctx context.Context, periodID string) ([]SocialInsuranceResult, error)
}
