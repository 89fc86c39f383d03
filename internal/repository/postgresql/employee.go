package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

const employeeColumns = `
	e.id, e.employee_code, e.full_name, e.gender, e.dob, e.hire_date, e.resignation_date,
	e.employment_status, COALESCE(e.personnel_category, ''), COALESCE(e.region, ''),
	d.name, p.name, e.base_salary, e.social_insurance_base, e.housing_fund_base,
	COALESCE(e.insurance_opt_outs, '{}'), e.created_at, e.updated_at
`

const employeeFrom = `
	FROM employees e
	LEFT JOIN departments d ON d.id = e.department_id
	LEFT JOIN positions p ON p.id = e.position_id
`

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var found employee.Employee
	err := row.Scan(
		&found.ID, &found.EmployeeCode, &found.FullName, &found.Gender, &found.DOB,
		&found.HireDate, &found.ResignationDate, &found.EmploymentStatus,
		&found.PersonnelCategory, &found.Region, &found.DepartmentName, &found.PositionName,
		&found.BaseSalary, &found.SocialInsuranceBase, &found.HousingFundBase,
		&found.InsuranceOptOuts, &found.CreatedAt, &found.UpdatedAt,
	)
	return found, err
}

// GetByID implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query := `SELECT ` + employeeColumns + employeeFrom + `
		WHERE e.id = $1 AND e.deleted_at IS NULL
	`

	found, err := scanEmployee(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee %s: %w", id, err)
	}

	return found, nil
}

// GetByEmployeeCode implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) GetByEmployeeCode(ctx context.Context, employeeCode string) (employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query := `SELECT ` + employeeColumns + employeeFrom + `
		WHERE e.employee_code = $1 AND e.deleted_at IS NULL
	`

	found, err := scanEmployee(q.QueryRow(ctx, query, employeeCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee by code %s: %w", employeeCode, err)
	}

	return found, nil
}

// GetActiveIDs implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) GetActiveIDs(ctx context.Context, asOf time.Time) ([]string, error) {
	q := GetQuerier(ctx, e.db)

	query := `
		SELECT id
		FROM employees
		WHERE deleted_at IS NULL
			AND hire_date <= $1
			AND (
				(resignation_date IS NULL AND employment_status = $2)
				OR resignation_date > $1
			)
		ORDER BY id
	`

	rows, err := q.Query(ctx, query, asOf, employee.EmploymentStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan active employees: %w", err)
	}

	return ids, nil
}
