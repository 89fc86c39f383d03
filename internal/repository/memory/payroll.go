package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
)

type PayrollRepository struct {
	mu        sync.RWMutex
	periods   map[string]payroll.PayrollPeriod
	snapshots map[string]payroll.PayrollSnapshot
}

func NewPayrollRepository() *PayrollRepository {
	return &PayrollRepository{
		periods:   make(map[string]payroll.PayrollPeriod),
		snapshots: make(map[string]payroll.PayrollSnapshot),
	}
}

func snapshotKey(employeeID, periodID string) string {
	return employeeID + "|" + periodID
}

func (r *PayrollRepository) PutPeriod(p payroll.PayrollPeriod) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.periods[p.ID] = p
}

func (r *PayrollRepository) PutSnapshot(s payroll.PayrollSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[snapshotKey(s.EmployeeID, s.PeriodID)] = s
}

func (r *PayrollRepository) GetPeriodByID(_ context.Context, id string) (payroll.PayrollPeriod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.periods[id]
	if !ok {
		return payroll.PayrollPeriod{}, payroll.ErrPayrollPeriodNotFound
	}
	return p, nil
}

// GetPeriodByMonth returns the latest-starting period of the month.
func (r *PayrollRepository) GetPeriodByMonth(_ context.Context, month string) (payroll.PayrollPeriod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *payroll.PayrollPeriod
	for _, p := range r.periods {
		if p.Month() != month {
			continue
		}
		if found == nil || p.StartDate.After(found.StartDate) {
			p := p
			found = &p
		}
	}
	if found == nil {
		return payroll.PayrollPeriod{}, payroll.ErrPayrollPeriodNotFound
	}
	return *found, nil
}

func (r *PayrollRepository) GetEmployeeIDsByPeriod(_ context.Context, periodID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for _, s := range r.snapshots {
		if s.PeriodID == periodID {
			ids = append(ids, s.EmployeeID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *PayrollRepository) GetPayrollByEmployeeAndPeriod(_ context.Context, employeeID, periodID string) (*payroll.PayrollSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.snapshots[snapshotKey(employeeID, periodID)]
	if !ok {
		return nil, nil
	}
	return &s, nil
}
