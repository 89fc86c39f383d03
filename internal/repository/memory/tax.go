package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/google/uuid"
)

type TaxRepository struct {
	mu      sync.RWMutex
	records map[string]tax.TaxCalculationResult
}

func NewTaxRepository() *TaxRepository {
	return &TaxRepository{records: make(map[string]tax.TaxCalculationResult)}
}

func (r *TaxRepository) DeleteByPeriod(_ context.Context, periodID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for k, rec := range r.records {
		if rec.PeriodID == periodID {
			delete(r.records, k)
			removed++
		}
	}
	return removed, nil
}

func (r *TaxRepository) GetByEmployeeAndPeriod(_ context.Context, employeeID, periodID string) (tax.TaxCalculationResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[snapshotKey(employeeID, periodID)]
	if !ok {
		return tax.TaxCalculationResult{}, tax.ErrTaxRecordNotFound
	}
	return copyRecord(rec), nil
}

func (r *TaxRepository) Create(_ context.Context, record tax.TaxCalculationResult) (tax.TaxCalculationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := snapshotKey(record.EmployeeID, record.PeriodID)
	if _, exists := r.records[key]; exists {
		return tax.TaxCalculationResult{}, tax.ErrTaxRecordExists
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	r.records[key] = copyRecord(record)
	return record, nil
}

func (r *TaxRepository) Upsert(_ context.Context, record tax.TaxCalculationResult) (tax.TaxCalculationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := snapshotKey(record.EmployeeID, record.PeriodID)
	if existing, ok := r.records[key]; ok {
		record.ID = existing.ID
	} else if record.ID == "" {
		record.ID = uuid.NewString()
	}
	r.records[key] = copyRecord(record)
	return record, nil
}

func (r *TaxRepository) ListByPeriod(_ context.Context, periodID string) ([]tax.TaxCalculationResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []tax.TaxCalculationResult
	for _, rec := range r.records {
		if rec.PeriodID == periodID {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func copyRecord(rec tax.TaxCalculationResult) tax.TaxCalculationResult {
	rec.SpecialDeductions = append([]tax.SpecialDeduction(nil), rec.SpecialDeductions...)
	rec.Warnings = nil
	rec.Suggestions = nil
	return rec
}
