package calcbridge

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
)

// Invoker executes a calculation request, locally or remotely.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (Response, error)
}

// LocalInvoker runs requests against an in-process calculator.
// Per-employee failures become outcomes; only a cancelled context fails the call.
type LocalInvoker struct {
	calculator insurance.Calculator
}

func NewLocalInvoker(calculator insurance.Calculator) *LocalInvoker {
	return &LocalInvoker{calculator: calculator}
}

func (l *LocalInvoker) Invoke(ctx context.Context, req Request) (Response, error) {
	switch r := req.(type) {
	case CalculateEmployee:
		out, err := l.one(ctx, r.employeeID, r.periodID, r)
		if err != nil {
			return Response{}, err
		}
		return Response{Outcomes: []Outcome{out}}, nil

	case CalculateBatch:
		outcomes := make([]Outcome, 0, len(r.employeeIDs))
		for _, id := range r.employeeIDs {
			out, err := l.one(ctx, id, r.periodID, r)
			if err != nil {
				return Response{Outcomes: outcomes}, err
			}
			outcomes = append(outcomes, out)
			if out.Err != nil && r.stopOnItemError {
				break
			}
		}
		return Response{Outcomes: outcomes}, nil

	default:
		return Response{}, fmt.Errorf("%w: %T", ErrUnsupportedRequest, req)
	}
}

type calcParams interface {
	CalculationDate() time.Time
	ValidateOnly() bool
}

func (l *LocalInvoker) one(ctx context.Context, employeeID, periodID string, p calcParams) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	result, err := l.calculator.Calculate(ctx, insurance.CalculateRequest{
		EmployeeID:      employeeID,
		PeriodID:        periodID,
		CalculationDate: p.CalculationDate(),
		ValidateOnly:    p.ValidateOnly(),
	})
	if err != nil && ctx.Err() != nil {
		return Outcome{}, ctx.Err()
	}
	return Outcome{EmployeeID: employeeID, Result: result, Err: err}, nil
}
