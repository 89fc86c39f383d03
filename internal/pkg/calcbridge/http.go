package calcbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
)

const functionPath = "/functions/v1/calculation-engine"

// maxResponseBytes bounds how much of a remote response is read.
const maxResponseBytes = 32 << 20

// HTTPInvoker calls the hosted calculation function.
type HTTPInvoker struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPInvoker(baseURL, apiKey string, timeout time.Duration) *HTTPInvoker {
	return &HTTPInvoker{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type remoteResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

type remoteItem struct {
	EmployeeID string                           `json:"employee_id"`
	Success    bool                             `json:"success"`
	Result     *insurance.SocialInsuranceResult `json:"result"`
	Error      string                           `json:"error"`
	Code       string                           `json:"code"`
}

func (h *HTTPInvoker) Invoke(ctx context.Context, req Request) (Response, error) {
	switch req.(type) {
	case CalculateEmployee, CalculateBatch:
	default:
		return Response{}, fmt.Errorf("%w: %T", ErrUnsupportedRequest, req)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode %s request: %w", req.Action(), err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+functionPath, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build %s request: %w", req.Action(), err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return Response{}, &RemoteCallError{
			Action:    req.Action(),
			Attempts:  1,
			Transient: !errors.Is(err, context.Canceled),
			Err:       err,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Response{}, &RemoteCallError{Action: req.Action(), StatusCode: resp.StatusCode, Attempts: 1, Transient: true, Err: err}
	}

	if resp.StatusCode >= 300 {
		return Response{}, &RemoteCallError{
			Action:     req.Action(),
			StatusCode: resp.StatusCode,
			Attempts:   1,
			Transient:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			Err:        errors.New(remoteMessage(raw, resp.Status)),
		}
	}

	var envelope remoteResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Response{}, &RemoteCallError{Action: req.Action(), StatusCode: resp.StatusCode, Attempts: 1, Err: fmt.Errorf("decode response: %w", err)}
	}

	return decodeOutcomes(req, envelope)
}

func decodeOutcomes(req Request, envelope remoteResponse) (Response, error) {
	switch r := req.(type) {
	case CalculateEmployee:
		if !envelope.Success {
			return Response{Outcomes: []Outcome{{EmployeeID: r.employeeID, Err: outcomeError(envelope.Code, envelope.Error)}}}, nil
		}
		var result insurance.SocialInsuranceResult
		if err := json.Unmarshal(envelope.Data, &result); err != nil {
			return Response{}, &RemoteCallError{Action: r.Action(), Attempts: 1, Err: fmt.Errorf("decode result: %w", err)}
		}
		return Response{Outcomes: []Outcome{{EmployeeID: r.employeeID, Result: &result}}}, nil

	case CalculateBatch:
		if !envelope.Success {
			return Response{}, &RemoteCallError{Action: r.Action(), Attempts: 1, Transient: true, Err: errors.New(envelope.Error)}
		}
		var items []remoteItem
		if err := json.Unmarshal(envelope.Data, &items); err != nil {
			return Response{}, &RemoteCallError{Action: r.Action(), Attempts: 1, Err: fmt.Errorf("decode results: %w", err)}
		}
		outcomes := make([]Outcome, 0, len(items))
		for _, item := range items {
			out := Outcome{EmployeeID: item.EmployeeID, Result: item.Result}
			if !item.Success {
				out.Result = nil
				out.Err = outcomeError(item.Code, item.Error)
			}
			outcomes = append(outcomes, out)
		}
		return Response{Outcomes: outcomes}, nil
	}
	return Response{}, fmt.Errorf("%w: %T", ErrUnsupportedRequest, req)
}

func remoteMessage(raw []byte, fallback string) string {
	var envelope remoteResponse
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return fallback
}
