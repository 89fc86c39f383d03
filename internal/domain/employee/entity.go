package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee is the read-only snapshot the calculation engine works from.
type Employee struct {
	ID                  string
	EmployeeCode        string
	FullName            string
	Gender              Gender
	DOB                 *time.Time
	HireDate            time.Time
	ResignationDate     *time.Time
	EmploymentStatus    EmploymentStatus
	PersonnelCategory   string
	Region              string
	DepartmentName      *string
	PositionName        *string
	BaseSalary          *decimal.Decimal
	SocialInsuranceBase *decimal.Decimal
	HousingFundBase     *decimal.Decimal
	InsuranceOptOuts    []string // insurance type codes the employee is exempt from
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type Gender string

const (
	Male   Gender = "Male"
	Female Gender = "Female"
)

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)

// IsEmployedOn reports whether the employee was on payroll at the given date.
func (e Employee) IsEmployedOn(date time.Time) bool {
	day := truncateDay(date)
	if truncateDay(e.HireDate).After(day) {
		return false
	}
	if e.ResignationDate != nil && !truncateDay(*e.ResignationDate).After(day) {
		return false
	}
	if e.ResignationDate == nil && e.EmploymentStatus != EmploymentStatusActive {
		return false
	}
	return true
}

// AgeOn returns the employee's age in full years, or -1 when the birth date is unknown.
func (e Employee) AgeOn(date time.Time) int {
	if e.DOB == nil {
		return -1
	}
	dob := *e.DOB
	age := date.Year() - dob.Year()
	if date.Month() < dob.Month() || (date.Month() == dob.Month() && date.Day() < dob.Day()) {
		age--
	}
	return age
}

// HasOptedOut reports whether the employee carries an opt-out for the insurance type code.
func (e Employee) HasOptedOut(insuranceType string) bool {
	for _, t := range e.InsuranceOptOuts {
		if t == insuranceType {
			return true
		}
	}
	return false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
