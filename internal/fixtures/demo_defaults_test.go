package fixtures

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDemoData(t *testing.T) {
	now := time.Date(2025, time.March, 12, 9, 30, 0, 0, time.UTC)
	data := NewDemoData(now)

	require.Len(t, data.Periods, 3)
	assert.Equal(t, "2025-01", data.Periods[0].Name)
	assert.Equal(t, "2025-03", data.Periods[2].Name)
	assert.Equal(t, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), data.Periods[1].EndDate)

	// the resigned employee has no entries
	for _, s := range data.Snapshots {
		assert.NotEqual(t, "emp-0006", s.EmployeeID)
	}
	assert.Len(t, data.Snapshots, 5*3)
}

func TestSeedMemory(t *testing.T) {
	now := time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)
	employees := memory.NewEmployeeRepository()
	payrollRepo := memory.NewPayrollRepository()
	SeedMemory(NewDemoData(now), employees, payrollRepo)

	ctx := context.Background()
	period, err := payrollRepo.GetPeriodByMonth(ctx, "2025-03")
	require.NoError(t, err)
	assert.Equal(t, PeriodID(period.StartDate), period.ID)

	ids, err := payrollRepo.GetEmployeeIDsByPeriod(ctx, period.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 5)

	emp, err := employees.GetByEmployeeCode(ctx, "EMP0003")
	require.NoError(t, err)
	assert.Equal(t, "intern", emp.PersonnelCategory)
}
