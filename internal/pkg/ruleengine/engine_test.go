package ruleengine

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(rules []insurance.Rule) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.Name)
	}
	return out
}

func TestEvaluateRules_UnknownSet(t *testing.T) {
	_, err := New().EvaluateRules(context.Background(), "missing", insurance.RuleContext{})
	assert.ErrorIs(t, err, insurance.ErrRuleSetNotFound)
}

func TestEvaluateRules_PriorityOrder(t *testing.T) {
	e := New()
	always := func(insurance.RuleContext) bool { return true }
	e.Register("set", Definition{Name: "late", Priority: 9, When: always})
	e.Register("set", Definition{Name: "early", Priority: 1, When: always}, Definition{Name: "never", Priority: 5, When: func(insurance.RuleContext) bool { return false }})

	rules, err := e.EvaluateRules(context.Background(), "set", insurance.RuleContext{})
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "late"}, names(rules))
}

func TestEvaluateRules_PanicBecomesError(t *testing.T) {
	e := New()
	e.Register("set", Definition{Name: "broken", When: func(insurance.RuleContext) bool { panic("nil map") }})

	_, err := e.EvaluateRules(context.Background(), "set", insurance.RuleContext{})
	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, "broken", evalErr.Rule)
}

func TestEvaluateRules_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDefault().EvaluateRules(ctx, insurance.RuleSetSpecialCases, insurance.RuleContext{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSpecialCases(t *testing.T) {
	dob := time.Date(1974, 3, 10, 0, 0, 0, 0, time.UTC)
	calcDate := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	emp := employee.Employee{
		ID:       "emp-1",
		Gender:   employee.Female,
		DOB:      &dob,
		HireDate: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
	}
	result := &insurance.SocialInsuranceResult{
		Components: []insurance.ContributionComponent{
			{
				Type:         insurance.TypePension,
				IsApplicable: true,
				BaseAmount:   decimal.NewFromInt(3000),
				BaseAdjustment: &insurance.BaseAdjustment{
					Reason: insurance.AdjustmentBelowFloor,
				},
			},
			{
				Type:            insurance.TypeHousingFund,
				ExemptionReason: insurance.ExemptionOptOut + ": housing_fund",
			},
		},
	}

	rules, err := NewDefault().EvaluateRules(context.Background(), insurance.RuleSetSpecialCases, insurance.RuleContext{
		Employee:        emp,
		CalculationDate: calcDate,
		Result:          result,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"base_raised_to_floor",
		"employee_opt_out_applied",
		"new_hire_first_month",
		"retirement_age_reached",
	}, names(rules))
}

func TestSpecialCases_NothingMatches(t *testing.T) {
	dob := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	rules, err := NewDefault().EvaluateRules(context.Background(), insurance.RuleSetSpecialCases, insurance.RuleContext{
		Employee:        employee.Employee{Gender: employee.Male, DOB: &dob, HireDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		CalculationDate: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		Result:          &insurance.SocialInsuranceResult{},
	})
	require.NoError(t, err)
	assert.Empty(t, rules)
}
