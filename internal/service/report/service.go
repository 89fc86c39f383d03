package report

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/report"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type ReportServiceImpl struct {
	employeeRepo  employee.EmployeeRepository
	payrollRepo   payroll.PayrollRepository
	insuranceRepo insurance.Repository
	taxRepo       tax.Repository
	logger        *slog.Logger
}

type Option func(*ReportServiceImpl)

func WithLogger(logger *slog.Logger) Option {
	return func(s *ReportServiceImpl) { s.logger = logger }
}

func NewReportService(
	employeeRepo employee.EmployeeRepository,
	payrollRepo payroll.PayrollRepository,
	insuranceRepo insurance.Repository,
	taxRepo tax.Repository,
	opts ...Option,
) *ReportServiceImpl {
	s := &ReportServiceImpl{
		employeeRepo:  employeeRepo,
		payrollRepo:   payrollRepo,
		insuranceRepo: insuranceRepo,
		taxRepo:       taxRepo,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// resolvePeriod accepts a period id or a YYYY-MM month.
func (s *ReportServiceImpl) resolvePeriod(ctx context.Context, ref string) (payroll.PayrollPeriod, error) {
	if _, ok := validator.IsValidMonth(ref); ok {
		return s.payrollRepo.GetPeriodByMonth(ctx, ref)
	}
	return s.payrollRepo.GetPeriodByID(ctx, ref)
}

// GenerateContributionBaseReport lists every persisted social insurance result of the period
// with per-category base statistics.
func (s *ReportServiceImpl) GenerateContributionBaseReport(ctx context.Context, req report.ContributionBaseRequest) (report.ContributionBaseReport, error) {
	if req.Format != "" && req.Format != report.FormatJSON && req.Format != report.FormatCSV {
		return report.ContributionBaseReport{}, report.ErrInvalidFormat
	}

	period, err := s.resolvePeriod(ctx, req.Period)
	if err != nil {
		return report.ContributionBaseReport{}, err
	}

	var (
		results []insurance.SocialInsuranceResult
		records []tax.TaxCalculationResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		results, err = s.insuranceRepo.GetResultsByPeriod(gctx, period.ID)
		if err != nil {
			return fmt.Errorf("load social insurance results: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		records, err = s.taxRepo.ListByPeriod(gctx, period.ID)
		if err != nil {
			return fmt.Errorf("load tax records: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return report.ContributionBaseReport{}, fmt.Errorf("%w: %w", report.ErrReportGenerationFailed, err)
	}
	if len(results) == 0 {
		return report.ContributionBaseReport{}, report.ErrNoDataFound
	}

	taxable := make(map[string]decimal.Decimal, len(records))
	for _, r := range records {
		taxable[r.EmployeeID] = r.TaxableIncome
	}

	rows := make([]report.ContributionBaseRow, 0, len(results))
	for _, res := range results {
		emp, err := s.employeeRepo.GetByID(ctx, res.EmployeeID)
		if err != nil {
			if errors.Is(err, employee.ErrEmployeeNotFound) {
				s.logger.Warn("report skips result of unknown employee", "employee_id", res.EmployeeID, "period_id", period.ID)
				continue
			}
			return report.ContributionBaseReport{}, fmt.Errorf("%w: %w", report.ErrReportGenerationFailed, err)
		}

		taxBase, err := s.taxBase(ctx, res.EmployeeID, period.ID, taxable)
		if err != nil {
			return report.ContributionBaseReport{}, fmt.Errorf("%w: %w", report.ErrReportGenerationFailed, err)
		}
		rows = append(rows, buildRow(emp, res, taxBase))
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.PersonnelCategory != b.PersonnelCategory {
			return a.PersonnelCategory < b.PersonnelCategory
		}
		if a.EmployeeCode != b.EmployeeCode {
			return a.EmployeeCode < b.EmployeeCode
		}
		return a.FullName < b.FullName
	})

	s.logger.Info("contribution base report generated", "period_id", period.ID, "rows", len(rows))

	return report.ContributionBaseReport{
		PeriodID:   period.ID,
		PeriodName: period.Name,
		StartDate:  period.StartDate.Format("2006-01-02"),
		EndDate:    period.EndDate.Format("2006-01-02"),
		Rows:       rows,
		Categories: categoryStats(rows),
	}, nil
}

// taxBase prefers the payroll entry's tax base over the stored taxable income.
func (s *ReportServiceImpl) taxBase(ctx context.Context, employeeID, periodID string, taxable map[string]decimal.Decimal) (decimal.Decimal, error) {
	snapshot, err := s.payrollRepo.GetPayrollByEmployeeAndPeriod(ctx, employeeID, periodID)
	if err != nil {
		return decimal.Zero, err
	}
	if snapshot != nil && snapshot.TaxBase != nil {
		return *snapshot.TaxBase, nil
	}
	return taxable[employeeID], nil
}

func buildRow(emp employee.Employee, res insurance.SocialInsuranceResult, taxBase decimal.Decimal) report.ContributionBaseRow {
	category := emp.PersonnelCategory
	if category == "" {
		category = report.UncategorizedLabel
	}
	row := report.ContributionBaseRow{
		EmployeeID:                emp.ID,
		EmployeeCode:              emp.EmployeeCode,
		FullName:                  emp.FullName,
		PersonnelCategory:         category,
		TaxBase:                   taxBase,
		TotalEmployeeContribution: res.TotalEmployeeContribution,
		TotalEmployerContribution: res.TotalEmployerContribution,
	}
	if emp.DepartmentName != nil {
		row.DepartmentName = *emp.DepartmentName
	}
	if emp.PositionName != nil {
		row.PositionName = *emp.PositionName
	}
	if c, ok := res.Component(insurance.TypePension); ok {
		row.SocialInsuranceBase = c.AdjustedBaseAmount
		row.PensionBase = c.AdjustedBaseAmount
		row.PensionEmployeeRate = c.EmployeeRate
		row.PensionEmployerRate = c.EmployerRate
	}
	if c, ok := res.Component(insurance.TypeMedical); ok {
		row.MedicalBase = c.AdjustedBaseAmount
		row.MedicalEmployeeRate = c.EmployeeRate
		row.MedicalEmployerRate = c.EmployerRate
	}
	if c, ok := res.Component(insurance.TypeHousingFund); ok {
		row.HousingFundBase = c.AdjustedBaseAmount
		row.HousingFundEmployeeRate = c.EmployeeRate
		row.HousingFundEmployerRate = c.EmployerRate
	}
	return row
}

type categoryAccumulator struct {
	count     int
	social    decimal.Decimal
	housing   decimal.Decimal
	taxBase   decimal.Decimal
	minSocial decimal.Decimal
	maxSocial decimal.Decimal
}

func categoryStats(rows []report.ContributionBaseRow) []report.CategoryStats {
	acc := make(map[string]*categoryAccumulator)
	for _, r := range rows {
		a, ok := acc[r.PersonnelCategory]
		if !ok {
			a = &categoryAccumulator{minSocial: r.SocialInsuranceBase, maxSocial: r.SocialInsuranceBase}
			acc[r.PersonnelCategory] = a
		}
		a.count++
		a.social = a.social.Add(r.SocialInsuranceBase)
		a.housing = a.housing.Add(r.HousingFundBase)
		a.taxBase = a.taxBase.Add(r.TaxBase)
		a.minSocial = decimal.Min(a.minSocial, r.SocialInsuranceBase)
		a.maxSocial = decimal.Max(a.maxSocial, r.SocialInsuranceBase)
	}

	stats := make([]report.CategoryStats, 0, len(acc))
	for category, a := range acc {
		n := decimal.NewFromInt(int64(a.count))
		stats = append(stats, report.CategoryStats{
			Category:           category,
			EmployeeCount:      a.count,
			AvgSocialBase:      a.social.Div(n).Round(2),
			AvgHousingFundBase: a.housing.Div(n).Round(2),
			AvgTaxBase:         a.taxBase.Div(n).Round(2),
			MinSocialBase:      a.minSocial,
			MaxSocialBase:      a.maxSocial,
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].EmployeeCount != stats[j].EmployeeCount {
			return stats[i].EmployeeCount > stats[j].EmployeeCount
		}
		return stats[i].Category < stats[j].Category
	})
	return stats
}

var csvHeader = []string{
	"employee_code", "full_name", "personnel_category", "department", "position",
	"social_insurance_base", "pension_base", "medical_base", "housing_fund_base", "tax_base",
	"pension_employee_rate", "medical_employee_rate", "housing_fund_employee_rate",
	"pension_employer_rate", "medical_employer_rate", "housing_fund_employer_rate",
	"total_employee_contribution", "total_employer_contribution",
}

// WriteContributionBaseCSV renders the rows of a generated report.
func (s *ReportServiceImpl) WriteContributionBaseCSV(w io.Writer, rep report.ContributionBaseReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rep.Rows {
		record := []string{
			r.EmployeeCode, r.FullName, r.PersonnelCategory, r.DepartmentName, r.PositionName,
			r.SocialInsuranceBase.StringFixed(2), r.PensionBase.StringFixed(2), r.MedicalBase.StringFixed(2),
			r.HousingFundBase.StringFixed(2), r.TaxBase.StringFixed(2),
			r.PensionEmployeeRate.String(), r.MedicalEmployeeRate.String(), r.HousingFundEmployeeRate.String(),
			r.PensionEmployerRate.String(), r.MedicalEmployerRate.String(), r.HousingFundEmployerRate.String(),
			r.TotalEmployeeContribution.StringFixed(2), r.TotalEmployerContribution.StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
