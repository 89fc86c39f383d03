package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type taxRepository struct {
	db *database.DB
}

func NewTaxRepository(db *database.DB) tax.Repository {
	return &taxRepository{db: db}
}

const taxColumns = `
	id, employee_id, period_id, gross_income, social_insurance_deduction, housing_fund_deduction,
	standard_deduction, special_deductions, total_special_deductions, taxable_income, tax_amount,
	effective_tax_rate, net_income, calculation_method, calculated_at
`

func scanTaxRecord(row pgx.Row) (tax.TaxCalculationResult, error) {
	var (
		rec        tax.TaxCalculationResult
		deductions []byte
	)
	err := row.Scan(
		&rec.ID, &rec.EmployeeID, &rec.PeriodID, &rec.GrossIncome, &rec.SocialInsuranceDeduction,
		&rec.HousingFundDeduction, &rec.StandardDeduction, &deductions, &rec.TotalSpecialDeductions,
		&rec.TaxableIncome, &rec.TaxAmount, &rec.EffectiveTaxRate, &rec.NetIncome,
		&rec.CalculationMethod, &rec.CalculatedAt,
	)
	if err != nil {
		return tax.TaxCalculationResult{}, err
	}
	if len(deductions) > 0 {
		if err := json.Unmarshal(deductions, &rec.SpecialDeductions); err != nil {
			return tax.TaxCalculationResult{}, fmt.Errorf("failed to decode special deductions: %w", err)
		}
	}
	return rec, nil
}

func taxArgs(record tax.TaxCalculationResult) ([]any, error) {
	deductions := record.SpecialDeductions
	if deductions == nil {
		deductions = []tax.SpecialDeduction{}
	}
	encoded, err := json.Marshal(deductions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode special deductions: %w", err)
	}
	return []any{
		record.EmployeeID, record.PeriodID, record.GrossIncome, record.SocialInsuranceDeduction,
		record.HousingFundDeduction, record.StandardDeduction, encoded, record.TotalSpecialDeductions,
		record.TaxableIncome, record.TaxAmount, record.EffectiveTaxRate, record.NetIncome,
		record.CalculationMethod, record.CalculatedAt,
	}, nil
}

const taxInsert = `
	INSERT INTO tax_records (
		employee_id, period_id, gross_income, social_insurance_deduction, housing_fund_deduction,
		standard_deduction, special_deductions, total_special_deductions, taxable_income, tax_amount,
		effective_tax_rate, net_income, calculation_method, calculated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`

func (r *taxRepository) DeleteByPeriod(ctx context.Context, periodID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM tax_records WHERE period_id = $1`, periodID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear tax records of period %s: %w", periodID, err)
	}

	return int(tag.RowsAffected()), nil
}

func (r *taxRepository) GetByEmployeeAndPeriod(ctx context.Context, employeeID, periodID string) (tax.TaxCalculationResult, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + taxColumns + ` FROM tax_records WHERE employee_id = $1 AND period_id = $2`

	rec, err := scanTaxRecord(q.QueryRow(ctx, query, employeeID, periodID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tax.TaxCalculationResult{}, tax.ErrTaxRecordNotFound
		}
		return tax.TaxCalculationResult{}, fmt.Errorf("failed to get tax record: %w", err)
	}

	return rec, nil
}

// Create inserts a new record and fails with tax.ErrTaxRecordExists when the pair is taken.
func (r *taxRepository) Create(ctx context.Context, record tax.TaxCalculationResult) (tax.TaxCalculationResult, error) {
	q := GetQuerier(ctx, r.db)

	args, err := taxArgs(record)
	if err != nil {
		return tax.TaxCalculationResult{}, err
	}

	err = q.QueryRow(ctx, taxInsert+` RETURNING id`, args...).Scan(&record.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return tax.TaxCalculationResult{}, tax.ErrTaxRecordExists
		}
		return tax.TaxCalculationResult{}, fmt.Errorf("failed to create tax record: %w", err)
	}

	return record, nil
}

func (r *taxRepository) Upsert(ctx context.Context, record tax.TaxCalculationResult) (tax.TaxCalculationResult, error) {
	q := GetQuerier(ctx, r.db)

	args, err := taxArgs(record)
	if err != nil {
		return tax.TaxCalculationResult{}, err
	}

	query := taxInsert + `
		ON CONFLICT (employee_id, period_id) DO UPDATE SET
			gross_income = EXCLUDED.gross_income,
			social_insurance_deduction = EXCLUDED.social_insurance_deduction,
			housing_fund_deduction = EXCLUDED.housing_fund_deduction,
			standard_deduction = EXCLUDED.standard_deduction,
			special_deductions = EXCLUDED.special_deductions,
			total_special_deductions = EXCLUDED.total_special_deductions,
			taxable_income = EXCLUDED.taxable_income,
			tax_amount = EXCLUDED.tax_amount,
			effective_tax_rate = EXCLUDED.effective_tax_rate,
			net_income = EXCLUDED.net_income,
			calculation_method = EXCLUDED.calculation_method,
			calculated_at = EXCLUDED.calculated_at,
			updated_at = NOW()
		RETURNING id
	`

	if err := q.QueryRow(ctx, query, args...).Scan(&record.ID); err != nil {
		return tax.TaxCalculationResult{}, fmt.Errorf("failed to upsert tax record: %w", err)
	}

	return record, nil
}

func (r *taxRepository) ListByPeriod(ctx context.Context, periodID string) ([]tax.TaxCalculationResult, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + taxColumns + ` FROM tax_records WHERE period_id = $1 ORDER BY employee_id`

	rows, err := q.Query(ctx, query, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tax records: %w", err)
	}
	defer rows.Close()

	var records []tax.TaxCalculationResult
	for rows.Next() {
		rec, err := scanTaxRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
