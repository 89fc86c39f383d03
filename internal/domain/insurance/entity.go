package insurance

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type identifies a social insurance or housing fund line.
type Type string

const (
	TypePension      Type = "pension"
	TypeMedical      Type = "medical"
	TypeUnemployment Type = "unemployment"
	TypeWorkInjury   Type = "work_injury"
	TypeMaternity    Type = "maternity"
	TypeHousingFund  Type = "housing_fund"
)

// AllTypes returns every type in calculation order.
func AllTypes() []Type {
	return []Type{TypePension, TypeMedical, TypeUnemployment, TypeWorkInjury, TypeMaternity, TypeHousingFund}
}

// AdjustmentReason explains why a wage base was clamped.
type AdjustmentReason string

const (
	AdjustmentBelowFloor   AdjustmentReason = "below_floor"
	AdjustmentAboveCeiling AdjustmentReason = "above_ceiling"
)

// Exemption reason prefixes, followed by detail.
const (
	ExemptionNotEmployed = "not employed on calculation date"
	ExemptionCategory    = "personnel category exempt"
	ExemptionOptOut      = "employee opted out"
)

// BaseAdjustment is kept on a component whenever the raw base was clamped.
type BaseAdjustment struct {
	OriginalBase decimal.Decimal  `json:"original_base"`
	AdjustedBase decimal.Decimal  `json:"adjusted_base"`
	MinBase      decimal.Decimal  `json:"min_base"`
	MaxBase      decimal.Decimal  `json:"max_base"`
	Reason       AdjustmentReason `json:"reason"`
}

// ContributionComponent is one insurance/fund line of one employee in one period.
type ContributionComponent struct {
	Type                 Type            `json:"type"`
	BaseAmount           decimal.Decimal `json:"base_amount"`
	AdjustedBaseAmount   decimal.Decimal `json:"adjusted_base_amount"`
	MinBase              decimal.Decimal `json:"min_base"`
	MaxBase              decimal.Decimal `json:"max_base"`
	EmployeeRate         decimal.Decimal `json:"employee_rate"`
	EmployerRate         decimal.Decimal `json:"employer_rate"`
	EmployeeContribution decimal.Decimal `json:"employee_contribution"`
	EmployerContribution decimal.Decimal `json:"employer_contribution"`
	IsApplicable         bool            `json:"is_applicable"`
	ExemptionReason      string          `json:"exemption_reason,omitempty"`
	BaseAdjustment       *BaseAdjustment `json:"base_adjustment,omitempty"`
}

// SocialInsuranceResult aggregates all components of one employee for one period.
type SocialInsuranceResult struct {
	EmployeeID                string                  `json:"employee_id"`
	PeriodID                  string                  `json:"period_id"`
	CalculationDate           time.Time               `json:"calculation_date"`
	Region                    string                  `json:"region"`
	RuleVersion               string                  `json:"rule_version"`
	Components                []ContributionComponent `json:"components"`
	TotalEmployeeContribution decimal.Decimal         `json:"total_employee_contribution"`
	TotalEmployerContribution decimal.Decimal         `json:"total_employer_contribution"`
	AppliedRules              []string                `json:"applied_rules"`
	Errors                    []string                `json:"errors"`
	Warnings                  []string                `json:"warnings"`
	ValidateOnly              bool                    `json:"validate_only"`
	CalculatedAt              time.Time               `json:"calculated_at"`
}

// SumTotals recomputes both totals from the applicable components.
func (r *SocialInsuranceResult) SumTotals() {
	employee := decimal.Zero
	employer := decimal.Zero
	for _, c := range r.Components {
		if !c.IsApplicable {
			continue
		}
		employee = employee.Add(c.EmployeeContribution)
		employer = employer.Add(c.EmployerContribution)
	}
	r.TotalEmployeeContribution = employee
	r.TotalEmployerContribution = employer
}

// Component returns the component of the given type, if present.
func (r *SocialInsuranceResult) Component(t Type) (ContributionComponent, bool) {
	for _, c := range r.Components {
		if c.Type == t {
			return c, true
		}
	}
	return ContributionComponent{}, false
}

// Clone returns a deep copy so cached values are never shared with callers.
func (r *SocialInsuranceResult) Clone() *SocialInsuranceResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Components = make([]ContributionComponent, len(r.Components))
	for i, c := range r.Components {
		if c.BaseAdjustment != nil {
			adj := *c.BaseAdjustment
			c.BaseAdjustment = &adj
		}
		out.Components[i] = c
	}
	out.AppliedRules = append([]string(nil), r.AppliedRules...)
	out.Errors = append([]string(nil), r.Errors...)
	out.Warnings = append([]string(nil), r.Warnings...)
	return &out
}
