package calculation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/calculation"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/event"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/cache"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/calcbridge"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	kindSingle        = "single"
	kindBatchItem     = "batch_item"
	outcomeSuccess    = "success"
	outcomeError      = "error"
	outcomePreview    = "validate_only"
	evictInvalidation = "invalidation"
)

type EngineImpl struct {
	invoker       calcbridge.Invoker
	cache         cache.Store
	employeeRepo  employee.EmployeeRepository
	payrollRepo   payroll.PayrollRepository
	insuranceRepo insurance.Repository
	taxRepo       tax.Repository
	publisher     event.Publisher

	chunkSize        int
	invalidationMode cache.InvalidationMode
	metrics          *metrics.Metrics
	logger           *slog.Logger
	tracer           trace.Tracer
	now              func() time.Time
	newID            func() string
}

type Option func(*EngineImpl)

// WithChunkSize sets the default chunk size used when a batch does not set one.
func WithChunkSize(n int) Option {
	return func(e *EngineImpl) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

func WithInvalidationMode(mode cache.InvalidationMode) Option {
	return func(e *EngineImpl) {
		if mode.IsValid() {
			e.invalidationMode = mode
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *EngineImpl) { e.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *EngineImpl) { e.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(e *EngineImpl) { e.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *EngineImpl) { e.newID = newID }
}

func NewEngine(
	invoker calcbridge.Invoker,
	store cache.Store,
	employeeRepo employee.EmployeeRepository,
	payrollRepo payroll.PayrollRepository,
	insuranceRepo insurance.Repository,
	taxRepo tax.Repository,
	publisher event.Publisher,
	opts ...Option,
) *EngineImpl {
	e := &EngineImpl{
		invoker:          invoker,
		cache:            store,
		employeeRepo:     employeeRepo,
		payrollRepo:      payrollRepo,
		insuranceRepo:    insuranceRepo,
		taxRepo:          taxRepo,
		publisher:        publisher,
		chunkSize:        calculation.DefaultChunkSize,
		invalidationMode: cache.InvalidateRange,
		logger:           slog.Default(),
		tracer:           otel.Tracer("payroll-engine/calculation"),
		now:              time.Now,
		newID:            uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// CalculateEmployeeSocialInsurance runs the single-employee path:
// validate, resolve employee and period, cache lookup, compute with rule overlay,
// persist, cache, publish.
// Preview calls bypass the cache and publish nothing.
func (e *EngineImpl) CalculateEmployeeSocialInsurance(ctx context.Context, req calculation.SingleRequest) (*insurance.SocialInsuranceResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "calculation.CalculateEmployeeSocialInsurance", trace.WithAttributes(
		attribute.String("employee.id", req.EmployeeID),
		attribute.String("period.id", req.PeriodID),
		attribute.Bool("force_recalculation", req.ForceRecalculation),
		attribute.Bool("validate_only", req.ValidateOnly),
	))
	defer span.End()

	key := cache.NewKey(req.EmployeeID, req.PeriodID, req.CalculationDate)
	if useCache(req.ForceRecalculation, req.ValidateOnly) {
		if err := e.resolve(ctx, req.EmployeeID, req.PeriodID); err != nil {
			e.metrics.IncCalculation(kindSingle, outcomeError)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if cached, ok := e.lookup(ctx, key); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
	}

	result, err := e.computeOne(ctx, req)
	if err != nil {
		e.metrics.IncCalculation(kindSingle, outcomeError)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if req.ValidateOnly {
		e.metrics.IncCalculation(kindSingle, outcomePreview)
		return result, nil
	}

	if err := e.insuranceRepo.SaveResult(ctx, *result); err != nil {
		e.metrics.IncCalculation(kindSingle, outcomeError)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("persist social insurance result: %w", err)
	}
	e.store(ctx, key, result)
	e.publish(ctx, event.SocialInsuranceCalculated{
		EmployeeID: req.EmployeeID,
		PeriodID:   req.PeriodID,
		Result:     result.Clone(),
		Timestamp:  e.now().UTC(),
	})
	e.metrics.IncCalculation(kindSingle, outcomeSuccess)

	return result, nil
}

func (e *EngineImpl) computeOne(ctx context.Context, req calculation.SingleRequest) (*insurance.SocialInsuranceResult, error) {
	call, err := calcbridge.NewCalculateEmployee(req.EmployeeID, req.PeriodID, req.CalculationDate, req.ValidateOnly)
	if err != nil {
		return nil, err
	}

	resp, err := e.invoker.Invoke(ctx, call)
	if err != nil {
		return nil, remoteFailure(err)
	}
	if len(resp.Outcomes) == 0 {
		return nil, fmt.Errorf("%w: empty response for employee %s", calculation.ErrRemoteFailure, req.EmployeeID)
	}

	out := resp.Outcomes[0]
	if out.Err != nil {
		return nil, out.Err
	}
	if out.Result == nil {
		return nil, fmt.Errorf("%w: no result for employee %s", calculation.ErrRemoteFailure, req.EmployeeID)
	}
	return out.Result, nil
}

// resolve checks that the employee and the period still exist, so a cached
// entry is never served for a record the repositories no longer know.
func (e *EngineImpl) resolve(ctx context.Context, employeeID, periodID string) error {
	if _, err := e.employeeRepo.GetByID(ctx, employeeID); err != nil {
		return fmt.Errorf("employee %s: %w", employeeID, err)
	}
	if _, err := e.payrollRepo.GetPeriodByID(ctx, periodID); err != nil {
		return fmt.Errorf("period %s: %w", periodID, err)
	}
	return nil
}

func useCache(force, validateOnly bool) bool {
	return !force && !validateOnly
}

// lookup treats cache failures as misses.
func (e *EngineImpl) lookup(ctx context.Context, key cache.Key) (*insurance.SocialInsuranceResult, bool) {
	if e.cache == nil {
		return nil, false
	}
	cached, ok, err := e.cache.Get(ctx, key)
	switch {
	case err != nil:
		e.metrics.IncCacheLookup("error")
		e.logger.Warn("cache lookup failed", "key", key.String(), "error", err)
		return nil, false
	case ok:
		e.metrics.IncCacheLookup("hit")
		return cached, true
	default:
		e.metrics.IncCacheLookup("miss")
		return nil, false
	}
}

func (e *EngineImpl) store(ctx context.Context, key cache.Key, result *insurance.SocialInsuranceResult) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(ctx, key, result); err != nil {
		e.logger.Warn("cache write failed", "key", key.String(), "error", err)
	}
}

func (e *EngineImpl) publish(ctx context.Context, ev event.Event) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, ev); err != nil {
		e.metrics.IncPublishFailure(string(ev.EventType()))
		e.logger.Warn("event publish failed", "event_type", ev.EventType(), "key", ev.Key(), "error", err)
	}
}

// remoteFailure marks bridge failures so callers can tell them from lookups.
func remoteFailure(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", calculation.ErrRemoteFailure, err)
}
