package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/report"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type ReportSuite struct {
	suite.Suite
	ctx       context.Context
	employees *memory.EmployeeRepository
	payroll   *memory.PayrollRepository
	insurance *memory.InsuranceRepository
	tax       *memory.TaxRepository
	service   *ReportServiceImpl
}

func TestReportSuite(t *testing.T) {
	suite.Run(t, new(ReportSuite))
}

func (s *ReportSuite) SetupTest() {
	s.ctx = context.Background()
	s.employees = memory.NewEmployeeRepository(
		staff("e1", "C002", "Bo", "regular"),
		staff("e2", "C001", "Al", "regular"),
		staff("e3", "C003", "Cy", ""),
		staff("e4", "C004", "Di", "intern"),
	)
	s.payroll = memory.NewPayrollRepository()
	s.insurance = memory.NewInsuranceRepository()
	s.tax = memory.NewTaxRepository()
	s.service = NewReportService(s.employees, s.payroll, s.insurance, s.tax)

	s.payroll.PutPeriod(payroll.PayrollPeriod{
		ID:        "p-2025-06",
		Name:      "2025-06",
		StartDate: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC),
	})
}

func staff(id, code, name, category string) employee.Employee {
	return employee.Employee{
		ID:                id,
		EmployeeCode:      code,
		FullName:          name,
		HireDate:          time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
		EmploymentStatus:  employee.EmploymentStatusActive,
		PersonnelCategory: category,
	}
}

func (s *ReportSuite) saveResult(employeeID, socialBase, housingBase string) {
	res := insurance.SocialInsuranceResult{
		EmployeeID: employeeID,
		PeriodID:   "p-2025-06",
		Components: []insurance.ContributionComponent{
			{Type: insurance.TypePension, AdjustedBaseAmount: money(socialBase), EmployeeRate: money("0.08"), EmployerRate: money("0.16"), IsApplicable: true},
			{Type: insurance.TypeMedical, AdjustedBaseAmount: money(socialBase), EmployeeRate: money("0.02"), EmployerRate: money("0.075"), IsApplicable: true},
			{Type: insurance.TypeHousingFund, AdjustedBaseAmount: money(housingBase), EmployeeRate: money("0.12"), EmployerRate: money("0.12"), IsApplicable: true},
		},
	}
	res.SumTotals()
	s.Require().NoError(s.insurance.SaveResult(s.ctx, res))
}

func (s *ReportSuite) TestRowsAndCategoryStats() {
	s.saveResult("e1", "8000", "8000")
	s.saveResult("e2", "5000", "6000.01")
	s.saveResult("e3", "4071", "4071")
	s.saveResult("e4", "4500", "4500")
	_, err := s.tax.Upsert(s.ctx, tax.TaxCalculationResult{EmployeeID: "e1", PeriodID: "p-2025-06", TaxableIncome: money("3000"), TaxAmount: money("90")})
	s.Require().NoError(err)
	taxBase := money("2500")
	s.payroll.PutSnapshot(payroll.PayrollSnapshot{ID: "s2", EmployeeID: "e2", PeriodID: "p-2025-06", GrossPay: money("5000"), TaxBase: &taxBase})

	rep, err := s.service.GenerateContributionBaseReport(s.ctx, report.ContributionBaseRequest{Period: "2025-06"})
	s.Require().NoError(err)

	s.Equal("p-2025-06", rep.PeriodID)
	s.Equal("2025-06-01", rep.StartDate)
	s.Require().Len(rep.Rows, 4)
	codes := []string{rep.Rows[0].EmployeeCode, rep.Rows[1].EmployeeCode, rep.Rows[2].EmployeeCode, rep.Rows[3].EmployeeCode}
	s.Equal([]string{"C004", "C001", "C002", "C003"}, codes)
	s.Equal(report.UncategorizedLabel, rep.Rows[3].PersonnelCategory)
	s.True(rep.Rows[2].TaxBase.Equal(money("3000")))
	s.True(rep.Rows[1].TaxBase.Equal(money("2500")))
	s.True(rep.Rows[2].PensionEmployeeRate.Equal(money("0.08")))

	s.Require().Len(rep.Categories, 3)
	regular := rep.Categories[0]
	s.Equal("regular", regular.Category)
	s.Equal(2, regular.EmployeeCount)
	s.True(regular.AvgSocialBase.Equal(money("6500")))
	s.True(regular.AvgHousingFundBase.Equal(money("7000.01")), regular.AvgHousingFundBase.String())
	s.True(regular.AvgTaxBase.Equal(money("2750")))
	s.True(regular.MinSocialBase.Equal(money("5000")))
	s.True(regular.MaxSocialBase.Equal(money("8000")))
	s.Equal("intern", rep.Categories[1].Category)
	s.Equal(report.UncategorizedLabel, rep.Categories[2].Category)
}

func (s *ReportSuite) TestErrors() {
	_, err := s.service.GenerateContributionBaseReport(s.ctx, report.ContributionBaseRequest{Period: "p-2025-06", Format: "xml"})
	s.ErrorIs(err, report.ErrInvalidFormat)

	_, err = s.service.GenerateContributionBaseReport(s.ctx, report.ContributionBaseRequest{Period: "p-2025-06"})
	s.ErrorIs(err, report.ErrNoDataFound)

	_, err = s.service.GenerateContributionBaseReport(s.ctx, report.ContributionBaseRequest{Period: "2024-01"})
	s.ErrorIs(err, payroll.ErrPayrollPeriodNotFound)
}

func (s *ReportSuite) TestUnknownEmployeeIsSkipped() {
	s.saveResult("e1", "8000", "8000")
	s.saveResult("gone", "8000", "8000")

	rep, err := s.service.GenerateContributionBaseReport(s.ctx, report.ContributionBaseRequest{Period: "p-2025-06"})
	s.Require().NoError(err)
	s.Len(rep.Rows, 1)
}

func TestWriteContributionBaseCSV(t *testing.T) {
	svc := NewReportService(nil, nil, nil, nil)
	rep := report.ContributionBaseReport{Rows: []report.ContributionBaseRow{{
		EmployeeCode:              "C001",
		FullName:                  "Al, Jr.",
		PersonnelCategory:         "regular",
		SocialInsuranceBase:       money("5000"),
		PensionEmployeeRate:       money("0.08"),
		TotalEmployeeContribution: money("1234.5"),
	}}}

	var buf bytes.Buffer
	require.NoError(t, svc.WriteContributionBaseCSV(&buf, rep))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "Al, Jr.", records[1][1])
	assert.Equal(t, "5000.00", records[1][5])
	assert.Equal(t, "0.08", records[1][10])
	assert.Equal(t, "1234.50", records[1][16])
}
