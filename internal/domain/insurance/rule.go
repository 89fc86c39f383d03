package insurance

//go:generate mockgen -source=rule.go -destination=mocks/rule_engine.go -package=mocks RuleEngine

import (
	"context"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
)

// RuleSetSpecialCases is evaluated after every computed result.
const RuleSetSpecialCases = "social_insurance_special_cases"

// Rule is a matched business rule. Rules annotate results, they never change amounts.
type Rule struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// RuleContext is the input handed to a rule set.
type RuleContext struct {
	Employee        employee.Employee
	CalculationDate time.Time
	Result          *SocialInsuranceResult
}

type RuleEngine interface {
	EvaluateRules(ctx context.Context, ruleSet string, input RuleContext) ([]Rule, error)
}
