package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

// ========== PERIODS ==========

const periodColumns = `id, name, start_date, end_date, pay_date, status, created_at, updated_at`

func scanPeriod(row pgx.Row) (payroll.PayrollPeriod, error) {
	var p payroll.PayrollPeriod
	err := row.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.PayDate, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *payrollRepository) GetPeriodByID(ctx context.Context, id string) (payroll.PayrollPeriod, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + periodColumns + ` FROM payroll_periods WHERE id = $1`

	p, err := scanPeriod(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollPeriod{}, payroll.ErrPayrollPeriodNotFound
		}
		return payroll.PayrollPeriod{}, fmt.Errorf("failed to get payroll period: %w", err)
	}

	return p, nil
}

// GetPeriodByMonth returns the latest-starting period whose start date falls in month (YYYY-MM).
func (r *payrollRepository) GetPeriodByMonth(ctx context.Context, month string) (payroll.PayrollPeriod, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return payroll.PayrollPeriod{}, payroll.ErrInvalidPeriodMonth
	}
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + periodColumns + `
		FROM payroll_periods
		WHERE start_date >= $1 AND start_date < $2
		ORDER BY start_date DESC
		LIMIT 1
	`

	p, err := scanPeriod(q.QueryRow(ctx, query, start, start.AddDate(0, 1, 0)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollPeriod{}, payroll.ErrPayrollPeriodNotFound
		}
		return payroll.PayrollPeriod{}, fmt.Errorf("failed to get payroll period by month: %w", err)
	}

	return p, nil
}

// ========== ENTRIES ==========

func (r *payrollRepository) GetEmployeeIDsByPeriod(ctx context.Context, periodID string) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT employee_id
		FROM payroll_entries
		WHERE period_id = $1
		ORDER BY employee_id
	`

	rows, err := q.Query(ctx, query, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll employees: %w", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan payroll employees: %w", err)
	}

	return ids, nil
}

func (r *payrollRepository) GetPayrollByEmployeeAndPeriod(ctx context.Context, employeeID, periodID string) (*payroll.PayrollSnapshot, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, employee_id, period_id, gross_pay, total_deductions, net_pay,
			social_insurance_base, housing_fund_base, tax_base, calculated_at
		FROM payroll_entries
		WHERE employee_id = $1 AND period_id = $2
	`

	var s payroll.PayrollSnapshot
	err := q.QueryRow(ctx, query, employeeID, periodID).Scan(
		&s.ID, &s.EmployeeID, &s.PeriodID, &s.GrossPay, &s.TotalDeductions, &s.NetPay,
		&s.SocialInsuranceBase, &s.HousingFundBase, &s.TaxBase, &s.CalculatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payroll entry: %w", err)
	}

	return &s, nil
}
