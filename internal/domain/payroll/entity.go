package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodStatus enum
type PeriodStatus string

const (
	PeriodStatusOpen        PeriodStatus = "open"
	PeriodStatusCalculating PeriodStatus = "calculating"
	PeriodStatusApproved    PeriodStatus = "approved"
	PeriodStatusClosed      PeriodStatus = "closed"
)

// PayrollPeriod - One pay cycle, e.g. "2025年06月"
type PayrollPeriod struct {
	ID        string
	Name      string
	StartDate time.Time
	EndDate   time.Time
	PayDate   *time.Time
	Status    PeriodStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contains reports whether date falls inside the period, both ends inclusive.
func (p PayrollPeriod) Contains(date time.Time) bool {
	d := dateOnly(date)
	return !d.Before(dateOnly(p.StartDate)) && !d.After(dateOnly(p.EndDate))
}

// Month returns the period month as "2006-01", taken from the start date.
func (p PayrollPeriod) Month() string {
	return p.StartDate.Format("2006-01")
}

// PayrollSnapshot - Payroll entry of one employee for one period
type PayrollSnapshot struct {
	ID                  string
	EmployeeID          string
	PeriodID            string
	GrossPay            decimal.Decimal
	TotalDeductions     decimal.Decimal
	NetPay              decimal.Decimal
	SocialInsuranceBase *decimal.Decimal
	HousingFundBase     *decimal.Decimal
	TaxBase             *decimal.Decimal
	CalculatedAt        *time.Time
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
