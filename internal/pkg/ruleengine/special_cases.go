package ruleengine

import (
	"strings"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
)

// Statutory retirement ages used to flag employees past retirement.
const (
	retirementAgeMale   = 60
	retirementAgeFemale = 50
)

// NewDefault returns an engine with the social insurance special cases registered.
func NewDefault() *Engine {
	e := New()
	e.Register(insurance.RuleSetSpecialCases, SpecialCases()...)
	return e
}

func SpecialCases() []Definition {
	return []Definition{
		{
			Name:        "base_raised_to_floor",
			Description: "wage base below the regional floor was raised",
			Priority:    10,
			When:        anyAdjustment(insurance.AdjustmentBelowFloor),
		},
		{
			Name:        "base_capped_at_ceiling",
			Description: "wage base above the regional ceiling was capped",
			Priority:    20,
			When:        anyAdjustment(insurance.AdjustmentAboveCeiling),
		},
		{
			Name:        "category_exemption_applied",
			Description: "personnel category exempts at least one insurance type",
			Priority:    30,
			When:        anyExemption(insurance.ExemptionCategory),
		},
		{
			Name:        "employee_opt_out_applied",
			Description: "employee opted out of at least one insurance type",
			Priority:    40,
			When:        anyExemption(insurance.ExemptionOptOut),
		},
		{
			Name:        "new_hire_first_month",
			Description: "employee was hired in the calculation month",
			Priority:    50,
			When: func(in insurance.RuleContext) bool {
				h, d := in.Employee.HireDate, in.CalculationDate
				return h.Year() == d.Year() && h.Month() == d.Month()
			},
		},
		{
			Name:        "retirement_age_reached",
			Description: "employee reached statutory retirement age",
			Priority:    60,
			When: func(in insurance.RuleContext) bool {
				age := in.Employee.AgeOn(in.CalculationDate)
				if age < 0 {
					return false
				}
				if in.Employee.Gender == employee.Female {
					return age >= retirementAgeFemale
				}
				return age >= retirementAgeMale
			},
		},
		{
			Name:        "zero_wage_base",
			Description: "no wage base was available before clamping",
			Priority:    70,
			When: func(in insurance.RuleContext) bool {
				if in.Result == nil {
					return false
				}
				for _, c := range in.Result.Components {
					if c.IsApplicable && c.BaseAmount.IsZero() {
						return true
					}
				}
				return false
			},
		},
	}
}

func anyAdjustment(reason insurance.AdjustmentReason) func(insurance.RuleContext) bool {
	return func(in insurance.RuleContext) bool {
		if in.Result == nil {
			return false
		}
		for _, c := range in.Result.Components {
			if c.BaseAdjustment != nil && c.BaseAdjustment.Reason == reason {
				return true
			}
		}
		return false
	}
}

func anyExemption(prefix string) func(insurance.RuleContext) bool {
	return func(in insurance.RuleContext) bool {
		if in.Result == nil {
			return false
		}
		for _, c := range in.Result.Components {
			if !c.IsApplicable && strings.HasPrefix(c.ExemptionReason, prefix) {
				return true
			}
		}
		return false
	}
}
