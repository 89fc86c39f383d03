package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/event"
)

// MultiPublisher forwards every event to all publishers.
type MultiPublisher []event.Publisher

func (m MultiPublisher) Publish(ctx context.Context, e event.Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", e.EventType(), err))
		}
	}
	return errors.Join(errs...)
}

// AuditLogger writes every event it receives to the structured log.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger.With("component", "audit")}
}

// Run consumes events until the channel closes or ctx is done.
func (a *AuditLogger) Run(ctx context.Context, events <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			a.Log(e)
		}
	}
}

func (a *AuditLogger) Log(e event.Event) {
	attrs := []any{
		"type", string(e.EventType()),
		"key", e.Key(),
		"occurred_at", e.OccurredAt(),
	}
	switch ev := e.(type) {
	case event.BatchSocialInsuranceCalculated:
		attrs = append(attrs, "success_count", ev.Summary.SuccessCount, "error_count", ev.Summary.ErrorCount)
	case event.PersonalIncomeTaxImported:
		attrs = append(attrs, "success_count", ev.Summary.SuccessCount, "error_count", ev.Summary.ErrorCount)
	}
	a.logger.Info("domain event published", attrs...)
}
