package fixtures

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/memory"
	"github.com/shopspring/decimal"
)

// ==========================================
// HELPER FUNCTIONS
// ==========================================

func strPtr(s string) *string { return &s }

func moneyPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func timePtr(t time.Time) *time.Time { return &t }

// ==========================================
// SEEDED DATA RESULT
// ==========================================

// DemoData is the roster and pay calendar loaded into the in-memory repositories.
type DemoData struct {
	Employees []employee.Employee
	Periods   []payroll.PayrollPeriod
	Snapshots []payroll.PayrollSnapshot
}

// PeriodID returns the id used for the demo period starting in the given month.
func PeriodID(month time.Time) string {
	return "period-" + month.Format("2006-01")
}

// ==========================================
// DEFAULT EMPLOYEES
// ==========================================

// GetDefaultEmployees covers every personnel category the default rule tables know about.
func GetDefaultEmployees() []employee.Employee {
	hired := time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC)
	return []employee.Employee{
		{
			ID: "emp-0001", EmployeeCode: "EMP0001", FullName: "Chen Wei",
			Gender: employee.Male, HireDate: hired, EmploymentStatus: employee.EmploymentStatusActive,
			PersonnelCategory: "regular", Region: "chengdu",
			DepartmentName: strPtr("Finance"), PositionName: strPtr("Manager"),
			BaseSalary: moneyPtr("18000"),
		},
		{
			ID: "emp-0002", EmployeeCode: "EMP0002", FullName: "Li Na",
			Gender: employee.Female, HireDate: hired, EmploymentStatus: employee.EmploymentStatusActive,
			PersonnelCategory: "regular", Region: "chengdu",
			DepartmentName: strPtr("Engineering"), PositionName: strPtr("Senior Staff"),
			BaseSalary: moneyPtr("42000"), HousingFundBase: moneyPtr("30000"),
		},
		{
			ID: "emp-0003", EmployeeCode: "EMP0003", FullName: "Zhang Min",
			Gender: employee.Female, HireDate: hired, EmploymentStatus: employee.EmploymentStatusActive,
			PersonnelCategory: "intern", Region: "chengdu",
			DepartmentName: strPtr("Engineering"), PositionName: strPtr("Intern"),
			BaseSalary: moneyPtr("3000"),
		},
		{
			ID: "emp-0004", EmployeeCode: "EMP0004", FullName: "Wang Jun",
			Gender: employee.Male, HireDate: hired, EmploymentStatus: employee.EmploymentStatusActive,
			PersonnelCategory: "retiree_rehire", Region: "chengdu",
			DepartmentName: strPtr("Operations"), PositionName: strPtr("Supervisor"),
			BaseSalary: moneyPtr("9000"),
		},
		{
			ID: "emp-0005", EmployeeCode: "EMP0005", FullName: "Zhao Lei",
			Gender: employee.Male, HireDate: hired, EmploymentStatus: employee.EmploymentStatusActive,
			PersonnelCategory: "regular", Region: "shenzhen",
			DepartmentName: strPtr("Sales"), PositionName: strPtr("Staff"),
			BaseSalary: moneyPtr("7500"), InsuranceOptOuts: []string{"housing_fund"},
		},
		{
			ID: "emp-0006", EmployeeCode: "EMP0006", FullName: "Liu Yang",
			Gender: employee.Female, HireDate: hired, EmploymentStatus: employee.EmploymentStatusResigned,
			PersonnelCategory: "regular", Region: "chengdu",
			ResignationDate: timePtr(time.Date(2023, time.June, 30, 0, 0, 0, 0, time.UTC)), BaseSalary: moneyPtr("8000"),
		},
	}
}

// ==========================================
// DEFAULT PAY CALENDAR
// ==========================================

// GetDefaultPeriods returns monthly periods for the given number of months ending with the month of now.
func GetDefaultPeriods(now time.Time, months int) []payroll.PayrollPeriod {
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	periods := make([]payroll.PayrollPeriod, 0, months)
	for i := months - 1; i >= 0; i-- {
		start := current.AddDate(0, -i, 0)
		end := start.AddDate(0, 1, -1)
		status := payroll.PeriodStatusClosed
		if i == 0 {
			status = payroll.PeriodStatusOpen
		}
		periods = append(periods, payroll.PayrollPeriod{
			ID:        PeriodID(start),
			Name:      start.Format("2006-01"),
			StartDate: start,
			EndDate:   end,
			PayDate:   timePtr(end.AddDate(0, 0, 10)),
			Status:    status,
			CreatedAt: start,
			UpdatedAt: start,
		})
	}
	return periods
}

// GetDefaultSnapshots returns a payroll entry per active employee for the period.
func GetDefaultSnapshots(period payroll.PayrollPeriod, employees []employee.Employee) []payroll.PayrollSnapshot {
	var snapshots []payroll.PayrollSnapshot
	for _, e := range employees {
		if !e.IsEmployedOn(period.EndDate) || e.BaseSalary == nil {
			continue
		}
		snapshots = append(snapshots, payroll.PayrollSnapshot{
			ID:         fmt.Sprintf("entry-%s-%s", e.ID, period.Name),
			EmployeeID: e.ID,
			PeriodID:   period.ID,
			GrossPay:   *e.BaseSalary,
			NetPay:     *e.BaseSalary,
		})
	}
	return snapshots
}

// NewDemoData builds the full demo data set relative to now.
func NewDemoData(now time.Time) DemoData {
	employees := GetDefaultEmployees()
	periods := GetDefaultPeriods(now, 3)
	var snapshots []payroll.PayrollSnapshot
	for _, p := range periods {
		snapshots = append(snapshots, GetDefaultSnapshots(p, employees)...)
	}
	return DemoData{Employees: employees, Periods: periods, Snapshots: snapshots}
}

// SeedMemory loads the demo data into in-memory repositories.
func SeedMemory(data DemoData, employees *memory.EmployeeRepository, payrollRepo *memory.PayrollRepository) {
	for _, e := range data.Employees {
		employees.Put(e)
	}
	for _, p := range data.Periods {
		payrollRepo.PutPeriod(p)
	}
	for _, s := range data.Snapshots {
		payrollRepo.PutSnapshot(s)
	}
}
