package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
)

// decodeJSON rejects unknown fields so typos in option names do not pass silently.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// parseDate accepts YYYY-MM-DD or RFC3339. An empty value is left zero for the service to reject.
func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, ok := validator.ParseCalculationDate(value)
	if !ok {
		return time.Time{}, validator.ValidationErrors{{Field: field, Message: field + " must be YYYY-MM-DD or RFC3339"}}
	}
	return t.UTC(), nil
}

// periodResolver turns a YYYY-MM month reference into a period id.
type periodResolver struct {
	payrollRepo payroll.PayrollRepository
}

func (p periodResolver) resolve(ctx context.Context, ref string) (string, error) {
	if _, ok := validator.IsValidMonth(ref); !ok || p.payrollRepo == nil {
		return ref, nil
	}
	period, err := p.payrollRepo.GetPeriodByMonth(ctx, ref)
	if err != nil {
		return "", err
	}
	return period.ID, nil
}
