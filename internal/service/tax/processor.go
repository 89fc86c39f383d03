package tax

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/event"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/ruletable"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type importRecorder interface {
	IncTaxImportRow(status string)
}

type ProcessorImpl struct {
	employeeRepo employee.EmployeeRepository
	payrollRepo  payroll.PayrollRepository
	taxRepo      tax.Repository
	table        ruletable.TaxTable
	publisher    event.Publisher
	metrics      importRecorder
	logger       *slog.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

type Option func(*ProcessorImpl)

func WithLogger(logger *slog.Logger) Option {
	return func(p *ProcessorImpl) { p.logger = logger }
}

func WithMetrics(m importRecorder) Option {
	return func(p *ProcessorImpl) { p.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(p *ProcessorImpl) { p.now = now }
}

func NewProcessor(
	employeeRepo employee.EmployeeRepository,
	payrollRepo payroll.PayrollRepository,
	taxRepo tax.Repository,
	table ruletable.TaxTable,
	publisher event.Publisher,
	opts ...Option,
) *ProcessorImpl {
	p := &ProcessorImpl{
		employeeRepo: employeeRepo,
		payrollRepo:  payrollRepo,
		taxRepo:      taxRepo,
		table:        table,
		publisher:    publisher,
		logger:       slog.Default(),
		tracer:       otel.Tracer("payroll-engine/tax"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// CalculateExpectedTax is the bracket lookup. It is a validation aid and never persists.
func (p *ProcessorImpl) CalculateExpectedTax(taxableIncome decimal.Decimal) tax.ExpectedTax {
	return p.table.ExpectedTax(taxableIncome)
}

// BatchImportTaxData validates and stores externally computed tax rows.
// Row failures are reported per row; only infrastructure failures abort the import.
// Replace mode clears the period before the rows are processed and is not rolled back.
func (p *ProcessorImpl) BatchImportTaxData(ctx context.Context, req tax.ImportRequest) (tax.ImportResult, error) {
	if req.PeriodID == "" {
		return tax.ImportResult{}, validator.ValidationErrors{{Field: "period_id", Message: "period_id is required"}}
	}
	if !req.Mode.IsValid() {
		return tax.ImportResult{}, tax.ErrInvalidImportMode
	}

	ctx, span := p.tracer.Start(ctx, "tax.BatchImportTaxData", trace.WithAttributes(
		attribute.String("period.id", req.PeriodID),
		attribute.String("import.mode", string(req.Mode)),
		attribute.Int("import.rows", len(req.Rows)),
		attribute.Bool("validate_only", req.ValidateOnly),
	))
	defer span.End()

	fail := func(err error) (tax.ImportResult, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return tax.ImportResult{}, err
	}

	if _, err := p.payrollRepo.GetPeriodByID(ctx, req.PeriodID); err != nil {
		return fail(fmt.Errorf("period %s: %w", req.PeriodID, err))
	}

	result := tax.ImportResult{
		PeriodID:     req.PeriodID,
		Mode:         req.Mode,
		ValidateOnly: req.ValidateOnly,
		Results:      make([]tax.RowResult, 0, len(req.Rows)),
	}

	if req.Mode == tax.ImportModeReplace && !req.ValidateOnly {
		cleared, err := p.taxRepo.DeleteByPeriod(ctx, req.PeriodID)
		if err != nil {
			return fail(fmt.Errorf("clear period %s: %w", req.PeriodID, err))
		}
		result.Summary.ClearedRecords = cleared
		p.logger.Info("tax records cleared for replace import", "period_id", req.PeriodID, "cleared", cleared)
	}

	for i, row := range req.Rows {
		rr, err := p.importRow(ctx, req, i+1, row)
		if err != nil {
			return fail(err)
		}
		result.Results = append(result.Results, rr)

		if rr.Status == tax.RowStatusSuccess {
			result.Summary.SuccessCount++
		} else {
			result.Summary.ErrorCount++
		}
		if len(rr.Warnings) > 0 {
			result.Summary.WarningCount++
		}
		if p.metrics != nil {
			p.metrics.IncTaxImportRow(string(rr.Status))
		}
	}
	result.Summary.TotalRecords = len(req.Rows)

	span.SetAttributes(
		attribute.Int("import.success", result.Summary.SuccessCount),
		attribute.Int("import.errors", result.Summary.ErrorCount),
	)
	p.logger.Info("tax import finished",
		"period_id", req.PeriodID,
		"mode", req.Mode,
		"validate_only", req.ValidateOnly,
		"total", result.Summary.TotalRecords,
		"success", result.Summary.SuccessCount,
		"errors", result.Summary.ErrorCount,
		"warnings", result.Summary.WarningCount,
	)

	if !req.ValidateOnly {
		p.publish(ctx, event.PersonalIncomeTaxImported{
			PeriodID:  req.PeriodID,
			Results:   result.Results,
			Summary:   result.Summary,
			Timestamp: p.now().UTC(),
		})
	}

	return result, nil
}

// importRow returns an error only for infrastructure failures.
func (p *ProcessorImpl) importRow(ctx context.Context, req tax.ImportRequest, rowNumber int, row tax.ImportRow) (tax.RowResult, error) {
	rr := tax.RowResult{RowNumber: rowNumber, EmployeeCode: row.EmployeeCode, Status: tax.RowStatusError}

	if err := validator.Struct(row); err != nil {
		rr.Message = err.Error()
		return rr, nil
	}
	if !validator.IsValidEmployeeCode(row.EmployeeCode) {
		rr.Message = fmt.Sprintf("%s: %q", employee.ErrInvalidEmployeeCode, row.EmployeeCode)
		return rr, nil
	}

	emp, err := p.employeeRepo.GetByEmployeeCode(ctx, row.EmployeeCode)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			rr.Message = fmt.Sprintf("employee code %q not found", row.EmployeeCode)
			return rr, nil
		}
		return rr, fmt.Errorf("resolve employee code %s: %w", row.EmployeeCode, err)
	}
	rr.EmployeeID = emp.ID

	record := p.newRecord(emp.ID, req.PeriodID, tax.MethodImported, recordInput{
		GrossIncome:              row.GrossIncome,
		SocialInsuranceDeduction: row.SocialInsuranceDeduction,
		HousingFundDeduction:     row.HousingFundDeduction,
		SpecialDeductions:        row.SpecialDeductions,
		TaxableIncome:            row.TaxableIncome,
		TaxAmount:                row.TaxAmount,
	})

	vr := ValidateTaxData(p.table, validationInput(record))
	rr.Warnings = vr.Warnings
	rr.Suggestions = vr.Suggestions
	if vr.HasErrors() {
		rr.Message = strings.Join(vr.Errors, "; ")
		return rr, nil
	}

	if !req.ValidateOnly {
		stored, err := p.store(ctx, req.Mode, record)
		switch {
		case errors.Is(err, tax.ErrTaxRecordExists), errors.Is(err, tax.ErrCalculationMethodLocked):
			rr.Message = err.Error()
			return rr, nil
		case err != nil:
			return rr, fmt.Errorf("store tax record of %s: %w", row.EmployeeCode, err)
		}
		record = stored
	}

	record.Warnings = vr.Warnings
	record.Suggestions = vr.Suggestions
	rr.Status = tax.RowStatusSuccess
	rr.Result = &record
	return rr, nil
}

func (p *ProcessorImpl) store(ctx context.Context, mode tax.ImportMode, record tax.TaxCalculationResult) (tax.TaxCalculationResult, error) {
	switch mode {
	case tax.ImportModeAppend:
		return p.taxRepo.Create(ctx, record)
	case tax.ImportModeUpdate:
		existing, err := p.taxRepo.GetByEmployeeAndPeriod(ctx, record.EmployeeID, record.PeriodID)
		switch {
		case errors.Is(err, tax.ErrTaxRecordNotFound):
		case err != nil:
			return tax.TaxCalculationResult{}, err
		case existing.CalculationMethod != record.CalculationMethod:
			return tax.TaxCalculationResult{}, fmt.Errorf("%w (stored as %s)", tax.ErrCalculationMethodLocked, existing.CalculationMethod)
		}
		return p.taxRepo.Upsert(ctx, record)
	default:
		return p.taxRepo.Upsert(ctx, record)
	}
}

// SetEmployeeTax stores a manual entry. Validation failures are returned as errors.
func (p *ProcessorImpl) SetEmployeeTax(ctx context.Context, employeeID, periodID string, req tax.SetEmployeeTaxRequest) (tax.TaxCalculationResult, error) {
	ctx, span := p.tracer.Start(ctx, "tax.SetEmployeeTax", trace.WithAttributes(
		attribute.String("employee.id", employeeID),
		attribute.String("period.id", periodID),
	))
	defer span.End()

	record, err := p.setEmployeeTax(ctx, employeeID, periodID, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return tax.TaxCalculationResult{}, err
	}
	return record, nil
}

func (p *ProcessorImpl) setEmployeeTax(ctx context.Context, employeeID, periodID string, req tax.SetEmployeeTaxRequest) (tax.TaxCalculationResult, error) {
	if err := validator.Struct(req); err != nil {
		return tax.TaxCalculationResult{}, err
	}

	emp, err := p.employeeRepo.GetByID(ctx, employeeID)
	if err != nil {
		return tax.TaxCalculationResult{}, fmt.Errorf("employee %s: %w", employeeID, err)
	}
	if _, err := p.payrollRepo.GetPeriodByID(ctx, periodID); err != nil {
		return tax.TaxCalculationResult{}, fmt.Errorf("period %s: %w", periodID, err)
	}

	record := p.newRecord(emp.ID, periodID, tax.MethodManual, recordInput{
		GrossIncome:              req.GrossIncome,
		SocialInsuranceDeduction: req.SocialInsuranceDeduction,
		HousingFundDeduction:     req.HousingFundDeduction,
		SpecialDeductions:        req.SpecialDeductions,
		TaxableIncome:            req.TaxableIncome,
		TaxAmount:                req.TaxAmount,
	})

	vr, fieldErrs := validateTaxData(p.table, validationInput(record))
	if len(fieldErrs) > 0 {
		return tax.TaxCalculationResult{}, fieldErrs
	}

	existing, err := p.taxRepo.GetByEmployeeAndPeriod(ctx, emp.ID, periodID)
	switch {
	case errors.Is(err, tax.ErrTaxRecordNotFound):
	case err != nil:
		return tax.TaxCalculationResult{}, err
	case existing.CalculationMethod != tax.MethodManual && !req.Overwrite:
		return tax.TaxCalculationResult{}, fmt.Errorf("%w (stored as %s)", tax.ErrCalculationMethodLocked, existing.CalculationMethod)
	}

	stored, err := p.taxRepo.Upsert(ctx, record)
	if err != nil {
		return tax.TaxCalculationResult{}, fmt.Errorf("store tax record: %w", err)
	}
	stored.Warnings = vr.Warnings
	stored.Suggestions = vr.Suggestions

	p.publish(ctx, event.PersonalIncomeTaxCalculated{
		EmployeeID: emp.ID,
		PeriodID:   periodID,
		Result:     stored,
		Timestamp:  p.now().UTC(),
	})

	return stored, nil
}

type recordInput struct {
	GrossIncome              decimal.Decimal
	SocialInsuranceDeduction decimal.Decimal
	HousingFundDeduction     decimal.Decimal
	SpecialDeductions        []tax.SpecialDeduction
	TaxableIncome            decimal.Decimal
	TaxAmount                decimal.Decimal
}

func (p *ProcessorImpl) newRecord(employeeID, periodID string, method tax.CalculationMethod, in recordInput) tax.TaxCalculationResult {
	record := tax.TaxCalculationResult{
		EmployeeID:               employeeID,
		PeriodID:                 periodID,
		GrossIncome:              in.GrossIncome,
		SocialInsuranceDeduction: in.SocialInsuranceDeduction,
		HousingFundDeduction:     in.HousingFundDeduction,
		StandardDeduction:        p.table.StandardDeduction,
		SpecialDeductions:        append([]tax.SpecialDeduction{}, in.SpecialDeductions...),
		TaxableIncome:            in.TaxableIncome,
		TaxAmount:                in.TaxAmount,
		CalculationMethod:        method,
		CalculatedAt:             p.now().UTC(),
	}
	record.Derive()
	return record
}

func validationInput(record tax.TaxCalculationResult) tax.ValidationInput {
	return tax.ValidationInput{
		TaxableIncome:     record.TaxableIncome,
		TaxAmount:         record.TaxAmount,
		DeductionAmount:   record.SocialInsuranceDeduction.Add(record.HousingFundDeduction),
		SpecialDeductions: record.SpecialDeductions,
	}
}

func (p *ProcessorImpl) publish(ctx context.Context, e event.Event) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, e); err != nil {
		p.logger.Warn("event publish failed", "event_type", e.EventType(), "key", e.Key(), "error", err)
	}
}
