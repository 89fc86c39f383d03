package insurance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/ruletable"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const currencyScale = 2

type ruleFailureRecorder interface {
	IncRuleEvaluationFailure()
}

type CalculatorImpl struct {
	employeeRepo employee.EmployeeRepository
	payrollRepo  payroll.PayrollRepository
	tables       *ruletable.Tables
	rules        insurance.RuleEngine
	metrics      ruleFailureRecorder
	logger       *slog.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

type Option func(*CalculatorImpl)

func WithLogger(logger *slog.Logger) Option {
	return func(c *CalculatorImpl) { c.logger = logger }
}

func WithMetrics(m ruleFailureRecorder) Option {
	return func(c *CalculatorImpl) { c.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(c *CalculatorImpl) { c.now = now }
}

func NewCalculator(
	employeeRepo employee.EmployeeRepository,
	payrollRepo payroll.PayrollRepository,
	tables *ruletable.Tables,
	rules insurance.RuleEngine,
	opts ...Option,
) *CalculatorImpl {
	c := &CalculatorImpl{
		employeeRepo: employeeRepo,
		payrollRepo:  payrollRepo,
		tables:       tables,
		rules:        rules,
		logger:       slog.Default(),
		tracer:       otel.Tracer("payroll-engine/insurance"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// calculationInput is everything read from the repositories for one calculation.
type calculationInput struct {
	employee employee.Employee
	period   payroll.PayrollPeriod
	snapshot *payroll.PayrollSnapshot
}

// Calculate computes every contribution component of one employee for one period.
// Lookup failures are returned as is; rule engine failures only get logged.
func (c *CalculatorImpl) Calculate(ctx context.Context, req insurance.CalculateRequest) (*insurance.SocialInsuranceResult, error) {
	if req.EmployeeID == "" || req.PeriodID == "" || req.CalculationDate.IsZero() {
		return nil, fmt.Errorf("%w: employee, period and calculation date are required", insurance.ErrInvalidCalculation)
	}

	ctx, span := c.tracer.Start(ctx, "insurance.Calculate", trace.WithAttributes(
		attribute.String("employee.id", req.EmployeeID),
		attribute.String("period.id", req.PeriodID),
		attribute.Bool("validate_only", req.ValidateOnly),
	))
	defer span.End()

	in, err := c.load(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resolved, err := c.tables.Resolve(in.employee.Region, req.CalculationDate)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", insurance.ErrInvalidCalculation, err)
	}

	result := &insurance.SocialInsuranceResult{
		EmployeeID:      req.EmployeeID,
		PeriodID:        req.PeriodID,
		CalculationDate: req.CalculationDate,
		Region:          resolved.Region,
		RuleVersion:     resolved.Schedule.Version,
		AppliedRules:    []string{},
		Errors:          []string{},
		Warnings:        []string{},
		ValidateOnly:    req.ValidateOnly,
		CalculatedAt:    c.now().UTC(),
	}
	if resolved.Fallback {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("region %q has no contribution table, %s table used", in.employee.Region, resolved.Region))
	}
	if !in.period.Contains(req.CalculationDate) {
		result.Warnings = append(result.Warnings, fmt.Sprintf("calculation date %s is outside period %s (%s to %s)",
			req.CalculationDate.Format("2006-01-02"), in.period.Name,
			in.period.StartDate.Format("2006-01-02"), in.period.EndDate.Format("2006-01-02")))
	}

	socialBase, housingBase, ok := wageBases(in)
	if !ok {
		result.Warnings = append(result.Warnings, "no wage base on record, regional floor applied")
	}

	employed := in.employee.IsEmployedOn(req.CalculationDate)
	for _, t := range resolved.Schedule.Types() {
		base := socialBase
		if t == insurance.TypeHousingFund {
			base = housingBase
		}
		result.Components = append(result.Components,
			component(t, resolved, in.employee, base, employed, req.CalculationDate, req.ValidateOnly))
	}
	result.SumTotals()

	if !req.ValidateOnly {
		result.AppliedRules = c.overlay(ctx, in.employee, req.CalculationDate, result)
	}

	span.SetAttributes(
		attribute.String("rule.version", result.RuleVersion),
		attribute.Int("rules.applied", len(result.AppliedRules)),
	)
	return result, nil
}

// load reads employee, period and payroll snapshot concurrently.
func (c *CalculatorImpl) load(ctx context.Context, req insurance.CalculateRequest) (calculationInput, error) {
	var in calculationInput
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		emp, err := c.employeeRepo.GetByID(gctx, req.EmployeeID)
		if err != nil {
			return fmt.Errorf("employee %s: %w", req.EmployeeID, err)
		}
		in.employee = emp
		return nil
	})
	g.Go(func() error {
		period, err := c.payrollRepo.GetPeriodByID(gctx, req.PeriodID)
		if err != nil {
			return fmt.Errorf("period %s: %w", req.PeriodID, err)
		}
		in.period = period
		return nil
	})
	g.Go(func() error {
		snapshot, err := c.payrollRepo.GetPayrollByEmployeeAndPeriod(gctx, req.EmployeeID, req.PeriodID)
		if err != nil {
			return fmt.Errorf("payroll entry of %s in %s: %w", req.EmployeeID, req.PeriodID, err)
		}
		in.snapshot = snapshot
		return nil
	})

	if err := g.Wait(); err != nil {
		return calculationInput{}, err
	}
	return in, nil
}

// overlay asks the rule engine for matching special cases. Amounts are never touched.
func (c *CalculatorImpl) overlay(ctx context.Context, emp employee.Employee, date time.Time, result *insurance.SocialInsuranceResult) []string {
	applied := []string{}
	if c.rules == nil {
		return applied
	}

	rules, err := c.rules.EvaluateRules(ctx, insurance.RuleSetSpecialCases, insurance.RuleContext{
		Employee:        emp,
		CalculationDate: date,
		Result:          result.Clone(),
	})
	if err != nil {
		if c.metrics != nil {
			c.metrics.IncRuleEvaluationFailure()
		}
		level := slog.LevelWarn
		if errors.Is(err, context.Canceled) {
			level = slog.LevelDebug
		}
		c.logger.Log(ctx, level, "rule evaluation failed, no rules applied",
			"rule_set", insurance.RuleSetSpecialCases,
			"employee_id", result.EmployeeID,
			"period_id", result.PeriodID,
			"error", err,
		)
		return applied
	}

	for _, r := range rules {
		applied = append(applied, r.Name)
	}
	return applied
}

// wageBases picks the raw social insurance and housing fund bases.
// Precedence: employee override, payroll entry base, payroll gross pay, base salary.
func wageBases(in calculationInput) (social, housing decimal.Decimal, ok bool) {
	switch {
	case in.employee.SocialInsuranceBase != nil:
		social, ok = *in.employee.SocialInsuranceBase, true
	case in.snapshot != nil && in.snapshot.SocialInsuranceBase != nil:
		social, ok = *in.snapshot.SocialInsuranceBase, true
	case in.snapshot != nil && in.snapshot.GrossPay.IsPositive():
		social, ok = in.snapshot.GrossPay, true
	case in.employee.BaseSalary != nil:
		social, ok = *in.employee.BaseSalary, true
	default:
		social = decimal.Zero
	}

	switch {
	case in.employee.HousingFundBase != nil:
		housing = *in.employee.HousingFundBase
	case in.snapshot != nil && in.snapshot.HousingFundBase != nil:
		housing = *in.snapshot.HousingFundBase
	default:
		housing = social
	}
	return social, housing, ok
}

func component(
	t insurance.Type,
	resolved ruletable.Resolved,
	emp employee.Employee,
	base decimal.Decimal,
	employed bool,
	date time.Time,
	validateOnly bool,
) insurance.ContributionComponent {
	limit := resolved.Schedule.Limits[t]
	adjusted, adjustment := limit.Clamp(base)

	comp := insurance.ContributionComponent{
		Type:                 t,
		BaseAmount:           base,
		AdjustedBaseAmount:   adjusted,
		MinBase:              limit.MinBase,
		MaxBase:              limit.MaxBase,
		EmployeeRate:         limit.EmployeeRate,
		EmployerRate:         limit.EmployerRate,
		EmployeeContribution: decimal.Zero,
		EmployerContribution: decimal.Zero,
		IsApplicable:         true,
		BaseAdjustment:       adjustment,
	}

	switch {
	case !employed:
		comp.IsApplicable = false
		comp.ExemptionReason = fmt.Sprintf("%s: %s", insurance.ExemptionNotEmployed, date.Format("2006-01-02"))
	case resolved.IsExempt(emp.PersonnelCategory, t):
		comp.IsApplicable = false
		comp.ExemptionReason = fmt.Sprintf("%s: %s", insurance.ExemptionCategory, emp.PersonnelCategory)
	case emp.HasOptedOut(string(t)):
		comp.IsApplicable = false
		comp.ExemptionReason = fmt.Sprintf("%s: %s", insurance.ExemptionOptOut, t)
	}

	if comp.IsApplicable && !validateOnly {
		comp.EmployeeContribution = adjusted.Mul(limit.EmployeeRate).Round(currencyScale)
		comp.EmployerContribution = adjusted.Mul(limit.EmployerRate).Round(currencyScale)
	}
	return comp
}
