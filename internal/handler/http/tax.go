package http

import (
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type TaxHandler interface {
	ImportTaxData(w http.ResponseWriter, r *http.Request)
	SetEmployeeTax(w http.ResponseWriter, r *http.Request)
	ExpectedTax(w http.ResponseWriter, r *http.Request)
}

type taxHandlerImpl struct {
	processor tax.Processor
	periods   periodResolver
}

func NewTaxHandler(processor tax.Processor, payrollRepo payroll.PayrollRepository) TaxHandler {
	return &taxHandlerImpl{
		processor: processor,
		periods:   periodResolver{payrollRepo: payrollRepo},
	}
}

type importTaxBody struct {
	Rows         []tax.ImportRow `json:"rows"`
	Mode         tax.ImportMode  `json:"import_mode"`
	ValidateOnly bool            `json:"validate_only"`
}

// ImportTaxData handles POST /tax/periods/{periodID}/import
func (h *taxHandlerImpl) ImportTaxData(w http.ResponseWriter, r *http.Request) {
	var body importTaxBody
	if err := decodeJSON(r, &body); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	periodID, err := h.periods.resolve(r.Context(), chi.URLParam(r, "periodID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.processor.BatchImportTaxData(r.Context(), tax.ImportRequest{
		PeriodID:     periodID,
		Rows:         body.Rows,
		Mode:         body.Mode,
		ValidateOnly: body.ValidateOnly,
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// SetEmployeeTax handles PUT /tax/periods/{periodID}/employees/{employeeID}
func (h *taxHandlerImpl) SetEmployeeTax(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	if employeeID == "" {
		response.BadRequest(w, "Employee ID is required", nil)
		return
	}

	var req tax.SetEmployeeTaxRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	periodID, err := h.periods.resolve(r.Context(), chi.URLParam(r, "periodID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.processor.SetEmployeeTax(r.Context(), employeeID, periodID, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Tax record saved", result)
}

// ExpectedTax handles GET /tax/expected?taxable_income=
func (h *taxHandlerImpl) ExpectedTax(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("taxable_income")
	income, err := decimal.NewFromString(raw)
	if err != nil {
		response.HandleError(w, validator.ValidationErrors{{Field: "taxable_income", Message: "taxable_income must be a number"}})
		return
	}
	if income.IsNegative() {
		response.HandleError(w, validator.ValidationErrors{{Field: "taxable_income", Message: "taxable_income must not be negative"}})
		return
	}

	response.Success(w, h.processor.CalculateExpectedTax(income))
}
