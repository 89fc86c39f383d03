package http

import (
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/calculation"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type CalculationHandler interface {
	CalculateEmployee(w http.ResponseWriter, r *http.Request)
	CalculateBatch(w http.ResponseWriter, r *http.Request)
	RecalculatePeriod(w http.ResponseWriter, r *http.Request)
	CalculatePay(w http.ResponseWriter, r *http.Request)
}

type calculationHandlerImpl struct {
	engine  calculation.Engine
	periods periodResolver
}

func NewCalculationHandler(engine calculation.Engine, payrollRepo payroll.PayrollRepository) CalculationHandler {
	return &calculationHandlerImpl{
		engine:  engine,
		periods: periodResolver{payrollRepo: payrollRepo},
	}
}

type calculateEmployeeBody struct {
	EmployeeID         string `json:"employee_id"`
	PeriodID           string `json:"period_id"`
	CalculationDate    string `json:"calculation_date"`
	ForceRecalculation bool   `json:"force_recalculation"`
	ValidateOnly       bool   `json:"validate_only"`
}

type calculateBatchBody struct {
	EmployeeIDs        []string                 `json:"employee_ids"`
	PeriodID           string                   `json:"period_id"`
	CalculationDate    string                   `json:"calculation_date"`
	ForceRecalculation bool                     `json:"force_recalculation"`
	ValidateOnly       bool                     `json:"validate_only"`
	Options            calculation.BatchOptions `json:"options"`
}

type calculatePayBody struct {
	EmployeeID      string `json:"employee_id"`
	PeriodID        string `json:"period_id"`
	CalculationDate string `json:"calculation_date"`
}

// CalculateEmployee handles POST /social-insurance/calculate
func (h *calculationHandlerImpl) CalculateEmployee(w http.ResponseWriter, r *http.Request) {
	var body calculateEmployeeBody
	if err := decodeJSON(r, &body); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	date, err := parseDate("calculation_date", body.CalculationDate)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	periodID, err := h.periods.resolve(r.Context(), body.PeriodID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.engine.CalculateEmployeeSocialInsurance(r.Context(), calculation.SingleRequest{
		EmployeeID:         body.EmployeeID,
		PeriodID:           periodID,
		CalculationDate:    date,
		ForceRecalculation: body.ForceRecalculation,
		ValidateOnly:       body.ValidateOnly,
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// CalculateBatch handles POST /social-insurance/batch
func (h *calculationHandlerImpl) CalculateBatch(w http.ResponseWriter, r *http.Request) {
	var body calculateBatchBody
	if err := decodeJSON(r, &body); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	date, err := parseDate("calculation_date", body.CalculationDate)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	periodID, err := h.periods.resolve(r.Context(), body.PeriodID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.engine.BatchCalculateSocialInsurance(r.Context(), calculation.BatchRequest{
		EmployeeIDs:        body.EmployeeIDs,
		PeriodID:           periodID,
		CalculationDate:    date,
		ForceRecalculation: body.ForceRecalculation,
		ValidateOnly:       body.ValidateOnly,
		Options:            body.Options,
	})
	if err != nil {
		response.HandleBatchError(w, err, result)
		return
	}

	response.Success(w, result)
}

// RecalculatePeriod handles POST /social-insurance/periods/{periodID}/recalculate
func (h *calculationHandlerImpl) RecalculatePeriod(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "periodID")
	if ref == "" {
		response.BadRequest(w, "Period ID is required", nil)
		return
	}

	var opts calculation.BatchOptions
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &opts); err != nil {
			response.BadRequest(w, "Invalid request body", nil)
			return
		}
	}
	periodID, err := h.periods.resolve(r.Context(), ref)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.engine.RecalculatePeriodSocialInsurance(r.Context(), calculation.RecalculateRequest{
		PeriodID: periodID,
		Options:  opts,
	})
	if err != nil {
		response.HandleBatchError(w, err, result)
		return
	}

	response.SuccessWithMessage(w, "Period recalculated", result)
}

// CalculatePay handles POST /payroll/pay
func (h *calculationHandlerImpl) CalculatePay(w http.ResponseWriter, r *http.Request) {
	var body calculatePayBody
	if err := decodeJSON(r, &body); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	date, err := parseDate("calculation_date", body.CalculationDate)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	periodID, err := h.periods.resolve(r.Context(), body.PeriodID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.engine.CalculateEmployeePay(r.Context(), calculation.PayRequest{
		EmployeeID:      body.EmployeeID,
		PeriodID:        periodID,
		CalculationDate: date,
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
