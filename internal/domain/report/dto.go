package report

import (
	"github.com/shopspring/decimal"
)

// Format enum
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// UncategorizedLabel is used when an employee has no personnel category.
const UncategorizedLabel = "uncategorized"

type ContributionBaseRequest struct {
	// Period is either a period id or a YYYY-MM month.
	Period string
	Format Format
}

// ContributionBaseRow is one employee line of the contribution base report.
type ContributionBaseRow struct {
	EmployeeID                string          `json:"employee_id"`
	EmployeeCode              string          `json:"employee_code"`
	FullName                  string          `json:"full_name"`
	PersonnelCategory         string          `json:"personnel_category"`
	DepartmentName            string          `json:"department_name,omitempty"`
	PositionName              string          `json:"position_name,omitempty"`
	SocialInsuranceBase       decimal.Decimal `json:"social_insurance_base"`
	PensionBase               decimal.Decimal `json:"pension_base"`
	MedicalBase               decimal.Decimal `json:"medical_base"`
	HousingFundBase           decimal.Decimal `json:"housing_fund_base"`
	TaxBase                   decimal.Decimal `json:"tax_base"`
	PensionEmployeeRate       decimal.Decimal `json:"pension_employee_rate"`
	MedicalEmployeeRate       decimal.Decimal `json:"medical_employee_rate"`
	HousingFundEmployeeRate   decimal.Decimal `json:"housing_fund_employee_rate"`
	PensionEmployerRate       decimal.Decimal `json:"pension_employer_rate"`
	MedicalEmployerRate       decimal.Decimal `json:"medical_employer_rate"`
	HousingFundEmployerRate   decimal.Decimal `json:"housing_fund_employer_rate"`
	TotalEmployeeContribution decimal.Decimal `json:"total_employee_contribution"`
	TotalEmployerContribution decimal.Decimal `json:"total_employer_contribution"`
}

// CategoryStats summarises bases per personnel category.
type CategoryStats struct {
	Category           string          `json:"category"`
	EmployeeCount      int             `json:"employee_count"`
	AvgSocialBase      decimal.Decimal `json:"avg_social_base"`
	AvgHousingFundBase decimal.Decimal `json:"avg_housing_fund_base"`
	AvgTaxBase         decimal.Decimal `json:"avg_tax_base"`
	MinSocialBase      decimal.Decimal `json:"min_social_base"`
	MaxSocialBase      decimal.Decimal `json:"max_social_base"`
}

type ContributionBaseReport struct {
	PeriodID   string                `json:"period_id"`
	PeriodName string                `json:"period_name"`
	StartDate  string                `json:"start_date"`
	EndDate    string                `json:"end_date"`
	Rows       []ContributionBaseRow `json:"rows"`
	Categories []CategoryStats       `json:"categories"`
}
