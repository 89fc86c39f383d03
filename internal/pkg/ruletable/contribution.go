package ruletable

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
	"github.com/shopspring/decimal"
)

const DefaultRegion = "default"

var ErrNoSchedule = errors.New("no contribution schedule in effect")

// Limit is the base range and rates of one insurance type.
type Limit struct {
	MinBase      decimal.Decimal
	MaxBase      decimal.Decimal
	EmployeeRate decimal.Decimal
	EmployerRate decimal.Decimal
}

// Clamp returns base limited to [MinBase, MaxBase] and the adjustment, if any.
func (l Limit) Clamp(base decimal.Decimal) (decimal.Decimal, *insurance.BaseAdjustment) {
	var reason insurance.AdjustmentReason
	adjusted := base
	switch {
	case base.LessThan(l.MinBase):
		adjusted, reason = l.MinBase, insurance.AdjustmentBelowFloor
	case base.GreaterThan(l.MaxBase):
		adjusted, reason = l.MaxBase, insurance.AdjustmentAboveCeiling
	default:
		return base, nil
	}
	return adjusted, &insurance.BaseAdjustment{
		OriginalBase: base,
		AdjustedBase: adjusted,
		MinBase:      l.MinBase,
		MaxBase:      l.MaxBase,
		Reason:       reason,
	}
}

// Schedule is one versioned set of limits effective on [EffectiveFrom, EffectiveTo).
type Schedule struct {
	Version       string
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	Limits        map[insurance.Type]Limit
}

func (s Schedule) covers(date time.Time) bool {
	if date.Before(s.EffectiveFrom) {
		return false
	}
	return s.EffectiveTo == nil || date.Before(*s.EffectiveTo)
}

// Types returns the insurance types of the schedule in calculation order.
func (s Schedule) Types() []insurance.Type {
	var out []insurance.Type
	for _, t := range insurance.AllTypes() {
		if _, ok := s.Limits[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Region holds the schedules and category exemptions of one locality.
type Region struct {
	Name       string
	Schedules  []Schedule
	Exemptions map[string][]insurance.Type
}

// Resolved is the schedule selected for a region and date.
type Resolved struct {
	Region   string
	Schedule Schedule
	// Fallback is set when the requested region is unknown and the default was used.
	Fallback   bool
	exemptions map[string][]insurance.Type
}

// IsExempt reports whether a personnel category is exempt from a type.
func (r Resolved) IsExempt(category string, t insurance.Type) bool {
	for _, ex := range r.exemptions[strings.ToLower(category)] {
		if ex == t {
			return true
		}
	}
	return false
}

// Tables is the read-only rule data used by the calculators.
type Tables struct {
	Tax     TaxTable
	Regions map[string]Region
}

// Resolve selects the schedule in effect on date for region.
func (t *Tables) Resolve(region string, date time.Time) (Resolved, error) {
	key := strings.ToLower(strings.TrimSpace(region))
	r, ok := t.Regions[key]
	fallback := false
	if !ok {
		r, ok = t.Regions[DefaultRegion]
		if !ok {
			return Resolved{}, fmt.Errorf("region %q: %w", region, ErrNoSchedule)
		}
		fallback = true
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	for _, s := range r.Schedules {
		if s.covers(day) {
			return Resolved{Region: r.Name, Schedule: s, Fallback: fallback, exemptions: r.Exemptions}, nil
		}
	}
	return Resolved{}, fmt.Errorf("region %s on %s: %w", r.Name, day.Format("2006-01-02"), ErrNoSchedule)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rate(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func schedule(version string, from time.Time, to *time.Time, socialMin, socialMax, housingMin, housingMax int64) Schedule {
	social := func(employee, employer string) Limit {
		return Limit{
			MinBase:      decimal.NewFromInt(socialMin),
			MaxBase:      decimal.NewFromInt(socialMax),
			EmployeeRate: rate(employee),
			EmployerRate: rate(employer),
		}
	}
	return Schedule{
		Version:       version,
		EffectiveFrom: from,
		EffectiveTo:   to,
		Limits: map[insurance.Type]Limit{
			insurance.TypePension:      social("0.08", "0.16"),
			insurance.TypeMedical:      social("0.02", "0.075"),
			insurance.TypeUnemployment: social("0.004", "0.006"),
			insurance.TypeWorkInjury:   social("0", "0.002"),
			insurance.TypeMaternity:    social("0", "0.008"),
			insurance.TypeHousingFund: {
				MinBase:      decimal.NewFromInt(housingMin),
				MaxBase:      decimal.NewFromInt(housingMax),
				EmployeeRate: rate("0.12"),
				EmployerRate: rate("0.12"),
			},
		},
	}
}

func standardRegion(name string) Region {
	cutover := date(2025, time.July, 1)
	schedules := []Schedule{
		schedule("v2024", date(2024, time.January, 1), &cutover, 4071, 20355, 2100, 28839),
		schedule("v2025", cutover, nil, 4246, 21228, 2100, 30000),
	}
	sort.Slice(schedules, func(i, j int) bool {
		return schedules[i].EffectiveFrom.Before(schedules[j].EffectiveFrom)
	})
	return Region{
		Name:      name,
		Schedules: schedules,
		Exemptions: map[string][]insurance.Type{
			"retiree_rehire": {insurance.TypePension, insurance.TypeUnemployment, insurance.TypeMaternity, insurance.TypeMedical},
			"intern": {
				insurance.TypePension, insurance.TypeMedical, insurance.TypeUnemployment,
				insurance.TypeMaternity, insurance.TypeHousingFund,
			},
		},
	}
}

// Default returns the built-in tables.
func Default() *Tables {
	return &Tables{
		Tax: monthlyTaxTable(),
		Regions: map[string]Region{
			"chengdu":     standardRegion("chengdu"),
			DefaultRegion: standardRegion(DefaultRegion),
		},
	}
}
