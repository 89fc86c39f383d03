package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type insuranceRepository struct {
	db *database.DB
}

func NewInsuranceRepository(db *database.DB) insurance.Repository {
	return &insuranceRepository{db: db}
}

// SaveResult replaces the stored result and components of the employee/period pair in one transaction.
func (r *insuranceRepository) SaveResult(ctx context.Context, result insurance.SocialInsuranceResult) error {
	return WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		upsert := `
			INSERT INTO social_insurance_results (
				employee_id, period_id, calculation_date, region, rule_version,
				total_employee_contribution, total_employer_contribution,
				applied_rules, warnings, errors, calculated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (employee_id, period_id) DO UPDATE SET
				calculation_date = EXCLUDED.calculation_date,
				region = EXCLUDED.region,
				rule_version = EXCLUDED.rule_version,
				total_employee_contribution = EXCLUDED.total_employee_contribution,
				total_employer_contribution = EXCLUDED.total_employer_contribution,
				applied_rules = EXCLUDED.applied_rules,
				warnings = EXCLUDED.warnings,
				errors = EXCLUDED.errors,
				calculated_at = EXCLUDED.calculated_at
		`
		_, err := q.Exec(ctx, upsert,
			result.EmployeeID, result.PeriodID, result.CalculationDate, result.Region, result.RuleVersion,
			result.TotalEmployeeContribution, result.TotalEmployerContribution,
			nonNilStrings(result.AppliedRules), nonNilStrings(result.Warnings), nonNilStrings(result.Errors),
			result.CalculatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save social insurance result: %w", err)
		}

		_, err = q.Exec(ctx,
			`DELETE FROM social_insurance_components WHERE employee_id = $1 AND period_id = $2`,
			result.EmployeeID, result.PeriodID,
		)
		if err != nil {
			return fmt.Errorf("failed to clear social insurance components: %w", err)
		}

		if len(result.Components) == 0 {
			return nil
		}

		insert := `
			INSERT INTO social_insurance_components (
				employee_id, period_id, sort_order, insurance_type, base_amount, adjusted_base_amount,
				min_base, max_base, employee_rate, employer_rate,
				employee_contribution, employer_contribution, is_applicable, exemption_reason, base_adjustment
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`
		batch := &pgx.Batch{}
		for i, c := range result.Components {
			var adjustment []byte
			if c.BaseAdjustment != nil {
				adjustment, err = json.Marshal(c.BaseAdjustment)
				if err != nil {
					return fmt.Errorf("failed to encode base adjustment: %w", err)
				}
			}
			batch.Queue(insert,
				result.EmployeeID, result.PeriodID, i, c.Type, c.BaseAmount, c.AdjustedBaseAmount,
				c.MinBase, c.MaxBase, c.EmployeeRate, c.EmployerRate,
				c.EmployeeContribution, c.EmployerContribution, c.IsApplicable, c.ExemptionReason, adjustment,
			)
		}

		br := q.SendBatch(ctx, batch)
		for range result.Components {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("failed to insert social insurance component: %w", err)
			}
		}
		return br.Close()
	})
}

func (r *insuranceRepository) GetResultsByPeriod(ctx context.Context, periodID string) ([]insurance.SocialInsuranceResult, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT employee_id, period_id, calculation_date, region, rule_version,
			total_employee_contribution, total_employer_contribution,
			applied_rules, warnings, errors, calculated_at
		FROM social_insurance_results
		WHERE period_id = $1
		ORDER BY employee_id
	`

	rows, err := q.Query(ctx, query, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to list social insurance results: %w", err)
	}
	defer rows.Close()

	var results []insurance.SocialInsuranceResult
	index := make(map[string]int)
	for rows.Next() {
		var res insurance.SocialInsuranceResult
		if err := rows.Scan(
			&res.EmployeeID, &res.PeriodID, &res.CalculationDate, &res.Region, &res.RuleVersion,
			&res.TotalEmployeeContribution, &res.TotalEmployerContribution,
			&res.AppliedRules, &res.Warnings, &res.Errors, &res.CalculatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan social insurance result: %w", err)
		}
		index[res.EmployeeID] = len(results)
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	componentQuery := `
		SELECT employee_id, insurance_type, base_amount, adjusted_base_amount, min_base, max_base,
			employee_rate, employer_rate, employee_contribution, employer_contribution,
			is_applicable, COALESCE(exemption_reason, ''), base_adjustment
		FROM social_insurance_components
		WHERE period_id = $1
		ORDER BY employee_id, sort_order
	`

	crows, err := q.Query(ctx, componentQuery, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to list social insurance components: %w", err)
	}
	defer crows.Close()

	for crows.Next() {
		var (
			employeeID string
			c          insurance.ContributionComponent
			adjustment []byte
		)
		if err := crows.Scan(
			&employeeID, &c.Type, &c.BaseAmount, &c.AdjustedBaseAmount, &c.MinBase, &c.MaxBase,
			&c.EmployeeRate, &c.EmployerRate, &c.EmployeeContribution, &c.EmployerContribution,
			&c.IsApplicable, &c.ExemptionReason, &adjustment,
		); err != nil {
			return nil, fmt.Errorf("failed to scan social insurance component: %w", err)
		}
		if len(adjustment) > 0 {
			c.BaseAdjustment = &insurance.BaseAdjustment{}
			if err := json.Unmarshal(adjustment, c.BaseAdjustment); err != nil {
				return nil, fmt.Errorf("failed to decode base adjustment: %w", err)
			}
		}
		i, ok := index[employeeID]
		if !ok {
			continue
		}
		results[i].Components = append(results[i].Components, c)
	}
	if err := crows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
