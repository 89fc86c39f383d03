package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
)

type InsuranceRepository struct {
	mu      sync.RWMutex
	results map[string]*insurance.SocialInsuranceResult
}

func NewInsuranceRepository() *InsuranceRepository {
	return &InsuranceRepository{results: make(map[string]*insurance.SocialInsuranceResult)}
}

func (r *InsuranceRepository) SaveResult(_ context.Context, result insurance.SocialInsuranceResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[snapshotKey(result.EmployeeID, result.PeriodID)] = result.Clone()
	return nil
}

func (r *InsuranceRepository) GetResultsByPeriod(_ context.Context, periodID string) ([]insurance.SocialInsuranceResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []insurance.SocialInsuranceResult
	for _, res := range r.results {
		if res.PeriodID == periodID {
			out = append(out, *res.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

// Count returns the number of stored results.
func (r *InsuranceRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.results)
}
