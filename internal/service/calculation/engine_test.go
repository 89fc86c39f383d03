package calculation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/calculation"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/event"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/event/mocks"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/cache"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/calcbridge"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/ruletable"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/memory"
	insservice "github.com/cmlabs-hris/payroll-engine-go/internal/service/insurance"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const periodID = "p-2025-06"

var (
	calcDate    = time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	periodStart = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)
)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	employees *memory.EmployeeRepository
	payroll   *memory.PayrollRepository
	insurance *memory.InsuranceRepository
	tax       *memory.TaxRepository
	store     *cache.MemoryStore
	publisher *mocks.MockPublisher
	engine    *EngineImpl
}

type fixtureConfig struct {
	invoker calcbridge.Invoker
	opts    []Option
}

type fixtureOption func(*fixtureConfig)

func withInvoker(inv calcbridge.Invoker) fixtureOption {
	return func(c *fixtureConfig) { c.invoker = inv }
}

func withEngineOptions(o ...Option) fixtureOption {
	return func(c *fixtureConfig) { c.opts = append(c.opts, o...) }
}

func newFixture(t *testing.T, ids []string, fopts ...fixtureOption) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	emps := make([]employee.Employee, 0, len(ids))
	for _, id := range ids {
		emps = append(emps, regular(id))
	}

	f := &fixture{
		employees: memory.NewEmployeeRepository(emps...),
		payroll:   memory.NewPayrollRepository(),
		insurance: memory.NewInsuranceRepository(),
		tax:       memory.NewTaxRepository(),
		store:     cache.NewMemoryStore(),
		publisher: mocks.NewMockPublisher(ctrl),
	}
	f.payroll.PutPeriod(payroll.PayrollPeriod{
		ID:        periodID,
		Name:      "2025-06",
		StartDate: periodStart,
		EndDate:   periodEnd,
		Status:    payroll.PeriodStatusOpen,
	})

	calc := insservice.NewCalculator(f.employees, f.payroll, ruletable.Default(), nil,
		insservice.WithClock(func() time.Time { return calcDate }),
	)

	seq := 0
	cfg := fixtureConfig{
		invoker: calcbridge.NewLocalInvoker(calc),
		opts: []Option{
			WithClock(func() time.Time { return calcDate }),
			WithIDGenerator(func() string { seq++; return fmt.Sprintf("batch-%d", seq) }),
		},
	}
	for _, fo := range fopts {
		fo(&cfg)
	}

	f.engine = NewEngine(cfg.invoker, f.store,
		f.employees, f.payroll, f.insurance, f.tax, f.publisher, cfg.opts...)
	return f
}

func regular(id string) employee.Employee {
	salary := money("8000")
	return employee.Employee{
		ID:                id,
		EmployeeCode:      "C-" + id,
		FullName:          "Employee " + id,
		Gender:            employee.Male,
		HireDate:          time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC),
		EmploymentStatus:  employee.EmploymentStatusActive,
		PersonnelCategory: "regular",
		Region:            "chengdu",
		BaseSalary:        &salary,
	}
}

func single(id string) calculation.SingleRequest {
	return calculation.SingleRequest{EmployeeID: id, PeriodID: periodID, CalculationDate: calcDate}
}

func batch(ids []string, opts calculation.BatchOptions) calculation.BatchRequest {
	return calculation.BatchRequest{EmployeeIDs: ids, PeriodID: periodID, CalculationDate: calcDate, Options: opts}
}

func employeeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("e%02d", i+1)
	}
	return ids
}

func without(ids []string, drop ...string) []string {
	skip := make(map[string]bool, len(drop))
	for _, d := range drop {
		skip[d] = true
	}
	var out []string
	for _, id := range ids {
		if !skip[id] {
			out = append(out, id)
		}
	}
	return out
}

func resultIDs(results []*insurance.SocialInsuranceResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.EmployeeID
	}
	return out
}

// failingInvoker fails every call as a remote service outage would.
type failingInvoker struct{ calls int }

func (f *failingInvoker) Invoke(_ context.Context, req calcbridge.Request) (calcbridge.Response, error) {
	f.calls++
	return calcbridge.Response{}, &calcbridge.RemoteCallError{
		Action:     req.Action(),
		StatusCode: 503,
		Attempts:   4,
		Transient:  true,
		Err:        errors.New("service unavailable"),
	}
}

func TestCalculateEmployee_SecondCallIsServedFromCache(t *testing.T) {
	f := newFixture(t, []string{"e1"})
	f.publisher.EXPECT().
		Publish(gomock.Any(), gomock.AssignableToTypeOf(event.SocialInsuranceCalculated{})).
		Return(nil).
		Times(1)

	first, err := f.engine.CalculateEmployeeSocialInsurance(context.Background(), single("e1"))
	require.NoError(t, err)
	second, err := f.engine.CalculateEmployeeSocialInsurance(context.Background(), single("e1"))
	require.NoError(t, err)

	assert.True(t, first.TotalEmployeeContribution.Equal(money("1792")), first.TotalEmployeeContribution.String())
	assert.True(t, second.TotalEmployeeContribution.Equal(first.TotalEmployeeContribution))
	assert.True(t, second.TotalEmployerContribution.Equal(first.TotalEmployerContribution))
	assert.Equal(t, 1, f.insurance.Count())
	assert.Equal(t, 1, f.store.Len())

	// callers get copies, the cached entry stays intact
	second.TotalEmployeeContribution = decimal.Zero
	third, err := f.engine.CalculateEmployeeSocialInsurance(context.Background(), single("e1"))
	require.NoError(t, err)
	assert.True(t, third.TotalEmployeeContribution.Equal(money("1792")))
}

func TestCalculateEmployee_ForceRecalculationBypassesCache(t *testing.T) {
	f := newFixture(t, []string{"e1"})
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	_, err := f.engine.CalculateEmployeeSocialInsurance(context.Background(), single("e1"))
	require.NoError(t, err)

	req := single("e1")
	req.ForceRecalculation = true
	res, err := f.engine.CalculateEmployeeSocialInsurance(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.TotalEmployeeContribution.Equal(money("1792")))
}

func TestCalculateEmployee_ValidateOnlyHasNoSideEffects(t *testing.T) {
	f := newFixture(t, []string{"e1"})

	req := single("e1")
	req.ValidateOnly = true
	res, err := f.engine.CalculateEmployeeSocialInsurance(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, res.ValidateOnly)
	assert.True(t, res.TotalEmployeeContribution.IsZero())
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, 0, f.insurance.Count())
}

func TestCalculateEmployee_PublishFailureDoesNotFailCall(t *testing.T) {
	f := newFixture(t, []string{"e1"})
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	res, err := f.engine.CalculateEmployeeSocialInsurance(context.Background(), single("e1"))
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Equal(t, 1, f.insurance.Count())
}

func TestCalculateEmployee_Errors(t *testing.T) {
	f := newFixture(t, []string{"e1"})

	_, err := f.engine.CalculateEmployeeSocialInsurance(context.Background(), calculation.SingleRequest{PeriodID: periodID})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "employee_id")
	assert.Contains(t, verrs.ToMap(), "calculation_date")

	_, err = f.engine.CalculateEmployeeSocialInsurance(context.Background(), single("ghost"))
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)
	assert.Equal(t, 0, f.store.Len())
}

func TestCalculateEmployee_CachedEntryNeedsResolvableRecords(t *testing.T) {
	f := newFixture(t, []string{"e1"})
	ctx := context.Background()
	stale := &insurance.SocialInsuranceResult{EmployeeID: "ghost", PeriodID: periodID, CalculationDate: calcDate}
	require.NoError(t, f.store.Set(ctx, cache.NewKey("ghost", periodID, calcDate), stale))

	res, err := f.engine.CalculateEmployeeSocialInsurance(ctx, single("ghost"))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)

	orphan := &insurance.SocialInsuranceResult{EmployeeID: "e1", PeriodID: "p-gone", CalculationDate: calcDate}
	require.NoError(t, f.store.Set(ctx, cache.NewKey("e1", "p-gone", calcDate), orphan))

	res, err = f.engine.CalculateEmployeeSocialInsurance(ctx,
		calculation.SingleRequest{EmployeeID: "e1", PeriodID: "p-gone", CalculationDate: calcDate})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, payroll.ErrPayrollPeriodNotFound)
}

func TestCalculateEmployee_RemoteNotFoundKeepsClass(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"employee not found"}`))
	}))
	defer srv.Close()
	f := newFixture(t, []string{"e1"}, withInvoker(calcbridge.NewHTTPInvoker(srv.URL, "", time.Second)))

	req := single("e1")
	req.ForceRecalculation = true
	_, err := f.engine.CalculateEmployeeSocialInsurance(context.Background(), req)
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)
	assert.NotErrorIs(t, err, calculation.ErrRemoteFailure)
	assert.Equal(t, 0, f.insurance.Count())
}

func TestCalculateEmployee_RemoteFailure(t *testing.T) {
	inv := &failingInvoker{}
	f := newFixture(t, []string{"e1"}, withInvoker(inv))

	_, err := f.engine.CalculateEmployeeSocialInsurance(context.Background(), single("e1"))
	assert.ErrorIs(t, err, calculation.ErrRemoteFailure)
	assert.Equal(t, 1, inv.calls)
	assert.Equal(t, 0, f.insurance.Count())
}

func TestBatch_CollectsItemErrorsAndKeepsOrder(t *testing.T) {
	ids := employeeIDs(10)
	f := newFixture(t, without(ids, "e03", "e07"), withEngineOptions(WithChunkSize(4)))

	var published event.BatchSocialInsuranceCalculated
	f.publisher.EXPECT().
		Publish(gomock.Any(), gomock.AssignableToTypeOf(event.BatchSocialInsuranceCalculated{})).
		DoAndReturn(func(_ context.Context, e event.Event) error {
			published = e.(event.BatchSocialInsuranceCalculated)
			return nil
		})

	res, err := f.engine.BatchCalculateSocialInsurance(context.Background(), batch(ids, calculation.BatchOptions{}))
	require.NoError(t, err)

	assert.Equal(t, "batch-1", res.BatchID)
	assert.Equal(t, 10, res.Summary.TotalRequested)
	assert.Equal(t, 10, res.Summary.TotalProcessed)
	assert.Equal(t, 8, res.Summary.SuccessCount)
	assert.Equal(t, 2, res.Summary.ErrorCount)
	assert.Equal(t, 0, res.Summary.SkippedCount)
	assert.Equal(t, 3, res.Summary.ChunkCount)
	assert.False(t, res.Summary.Aborted)
	assert.Equal(t, without(ids, "e03", "e07"), resultIDs(res.Results))

	require.Len(t, res.Errors, 2)
	assert.Equal(t, "e03", res.Errors[0].EmployeeID)
	assert.Equal(t, 0, res.Errors[0].ChunkIndex)
	assert.Contains(t, res.Errors[0].Message, employee.ErrEmployeeNotFound.Error())
	assert.Equal(t, "e07", res.Errors[1].EmployeeID)
	assert.Equal(t, 1, res.Errors[1].ChunkIndex)

	assert.Equal(t, 8, f.insurance.Count())
	assert.Equal(t, 8, f.store.Len())
	assert.Equal(t, "batch-1", published.BatchID)
	assert.Equal(t, 8, published.Summary.SuccessCount)
	assert.Equal(t, 2, published.Summary.ErrorCount)
	assert.Len(t, published.Results, 8)
}

func TestBatch_StopOnItemErrorSkipsRestOfChunk(t *testing.T) {
	ids := employeeIDs(5)
	f := newFixture(t, without(ids, "e03"))
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	res, err := f.engine.BatchCalculateSocialInsurance(context.Background(),
		batch(ids, calculation.BatchOptions{StopOnItemError: true}))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Summary.SuccessCount)
	assert.Equal(t, 1, res.Summary.ErrorCount)
	assert.Equal(t, 3, res.Summary.TotalProcessed)
	assert.Equal(t, 2, res.Summary.SkippedCount)
	assert.Equal(t, []string{"e01", "e02"}, resultIDs(res.Results))
}

func TestBatch_StopOnItemErrorOnlyAffectsFailingChunk(t *testing.T) {
	ids := employeeIDs(6)
	f := newFixture(t, without(ids, "e01"))
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	res, err := f.engine.BatchCalculateSocialInsurance(context.Background(),
		batch(ids, calculation.BatchOptions{ChunkSize: 3, StopOnItemError: true}))
	require.NoError(t, err)

	assert.Equal(t, []string{"e04", "e05", "e06"}, resultIDs(res.Results))
	assert.Equal(t, 1, res.Summary.ErrorCount)
	assert.Equal(t, 2, res.Summary.SkippedCount)
}

func TestBatch_AbortOnChunkErrorReturnsPartialResult(t *testing.T) {
	ids := employeeIDs(6)
	f := newFixture(t, without(ids, "e03"))

	res, err := f.engine.BatchCalculateSocialInsurance(context.Background(),
		batch(ids, calculation.BatchOptions{ChunkSize: 2, AbortOnChunkError: true}))

	var aborted *calculation.BatchAbortedError
	require.ErrorAs(t, err, &aborted)
	assert.ErrorIs(t, err, calculation.ErrBatchAborted)
	assert.Equal(t, 1, aborted.ChunkIndex)

	assert.True(t, res.Summary.Aborted)
	assert.Equal(t, 3, res.Summary.SuccessCount)
	assert.Equal(t, 1, res.Summary.ErrorCount)
	assert.Equal(t, 2, res.Summary.SkippedCount)
	assert.Equal(t, []string{"e01", "e02", "e04"}, resultIDs(res.Results))
	assert.Equal(t, 3, f.insurance.Count())
}

func TestBatch_RemoteOutageAbortsBatch(t *testing.T) {
	inv := &failingInvoker{}
	ids := employeeIDs(4)
	f := newFixture(t, ids, withInvoker(inv), withEngineOptions(WithChunkSize(2)))

	res, err := f.engine.BatchCalculateSocialInsurance(context.Background(), batch(ids, calculation.BatchOptions{}))

	assert.ErrorIs(t, err, calculation.ErrBatchAborted)
	assert.ErrorIs(t, err, calculation.ErrRemoteFailure)
	assert.Equal(t, 1, inv.calls)
	assert.True(t, res.Summary.Aborted)
	assert.Equal(t, 2, res.Summary.ErrorCount)
	assert.Equal(t, 2, res.Summary.SkippedCount)
	assert.Empty(t, res.Results)
}

func TestBatch_CountsCacheHits(t *testing.T) {
	ids := employeeIDs(3)
	f := newFixture(t, ids)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	_, err := f.engine.CalculateEmployeeSocialInsurance(context.Background(), single("e02"))
	require.NoError(t, err)

	res, err := f.engine.BatchCalculateSocialInsurance(context.Background(), batch(ids, calculation.BatchOptions{}))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.CacheHits)
	assert.Equal(t, 3, res.Summary.SuccessCount)
	assert.Equal(t, ids, resultIDs(res.Results))
	assert.Equal(t, 3, f.insurance.Count())
}

func TestBatch_CachedEntryForUnknownEmployeeIsItemError(t *testing.T) {
	f := newFixture(t, []string{"e01"})
	ctx := context.Background()
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)
	stale := &insurance.SocialInsuranceResult{EmployeeID: "ghost", PeriodID: periodID, CalculationDate: calcDate}
	require.NoError(t, f.store.Set(ctx, cache.NewKey("ghost", periodID, calcDate), stale))

	res, err := f.engine.BatchCalculateSocialInsurance(ctx, batch([]string{"e01", "ghost"}, calculation.BatchOptions{}))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Summary.SuccessCount)
	assert.Equal(t, 0, res.Summary.CacheHits)
	assert.Equal(t, []string{"e01"}, resultIDs(res.Results))
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "ghost", res.Errors[0].EmployeeID)
	assert.Contains(t, res.Errors[0].Message, employee.ErrEmployeeNotFound.Error())
}

func TestBatch_ValidateOnlyPublishesNothing(t *testing.T) {
	ids := employeeIDs(3)
	f := newFixture(t, ids)

	req := batch(ids, calculation.BatchOptions{})
	req.ValidateOnly = true
	res, err := f.engine.BatchCalculateSocialInsurance(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Summary.SuccessCount)
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, 0, f.insurance.Count())
}

func TestBatch_RejectsInvalidRequest(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.engine.BatchCalculateSocialInsurance(context.Background(), batch(nil, calculation.BatchOptions{}))
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "employee_ids")
}

func TestBatch_StopsOnCancelledContext(t *testing.T) {
	ids := employeeIDs(2)
	f := newFixture(t, ids)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := f.engine.BatchCalculateSocialInsurance(ctx, batch(ids, calculation.BatchOptions{}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, res.Summary.SkippedCount)
	assert.False(t, res.Summary.Aborted)
}

func seedCache(t *testing.T, store *cache.MemoryStore, id string, date time.Time) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), cache.NewKey(id, periodID, date),
		&insurance.SocialInsuranceResult{EmployeeID: id, PeriodID: periodID, CalculationDate: date}))
}

func cached(store *cache.MemoryStore, id string, date time.Time) bool {
	_, ok, _ := store.Get(context.Background(), cache.NewKey(id, periodID, date))
	return ok
}

func TestRecalculatePeriod_RangeInvalidation(t *testing.T) {
	ids := employeeIDs(2)
	f := newFixture(t, ids)
	for _, id := range ids {
		f.payroll.PutSnapshot(payroll.PayrollSnapshot{ID: "s-" + id, EmployeeID: id, PeriodID: periodID, GrossPay: money("8000")})
	}
	july := time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC)
	seedCache(t, f.store, "x1", calcDate)
	seedCache(t, f.store, "x2", july)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.AssignableToTypeOf(event.BatchSocialInsuranceCalculated{})).Return(nil)

	res, err := f.engine.RecalculatePeriodSocialInsurance(context.Background(), calculation.RecalculateRequest{PeriodID: periodID})
	require.NoError(t, err)

	assert.False(t, cached(f.store, "x1", calcDate))
	assert.True(t, cached(f.store, "x2", july))
	assert.Equal(t, 2, res.Summary.SuccessCount)
	assert.Equal(t, 0, res.Summary.CacheHits)
	for _, r := range res.Results {
		assert.True(t, r.CalculationDate.Equal(periodEnd))
	}
	assert.True(t, cached(f.store, "e01", periodEnd))
}

func TestRecalculatePeriod_SubstringInvalidation(t *testing.T) {
	ids := employeeIDs(1)
	f := newFixture(t, ids, withEngineOptions(WithInvalidationMode(cache.InvalidateSubstring)))
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	seedCache(t, f.store, "x1", calcDate)
	seedCache(t, f.store, "x2", periodEnd)

	res, err := f.engine.RecalculatePeriodSocialInsurance(context.Background(), calculation.RecalculateRequest{PeriodID: periodID})
	require.NoError(t, err)

	// mid-period keys carry neither bound date
	assert.True(t, cached(f.store, "x1", calcDate))
	assert.False(t, cached(f.store, "x2", periodEnd))
	// no payroll entries: falls back to the active roster
	assert.Equal(t, []string{"e01"}, resultIDs(res.Results))
}

func TestRecalculatePeriod_Errors(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.engine.RecalculatePeriodSocialInsurance(context.Background(), calculation.RecalculateRequest{PeriodID: "missing"})
	assert.ErrorIs(t, err, payroll.ErrPayrollPeriodNotFound)

	_, err = f.engine.RecalculatePeriodSocialInsurance(context.Background(), calculation.RecalculateRequest{PeriodID: periodID})
	assert.ErrorIs(t, err, calculation.ErrEmptyBatch)

	_, err = f.engine.RecalculatePeriodSocialInsurance(context.Background(), calculation.RecalculateRequest{})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestCalculateEmployeePay(t *testing.T) {
	f := newFixture(t, []string{"e1", "e2"})
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	_, err := f.tax.Upsert(context.Background(), tax.TaxCalculationResult{
		EmployeeID:        "e1",
		PeriodID:          periodID,
		TaxableIncome:     money("3000"),
		TaxAmount:         money("210"),
		CalculationMethod: tax.MethodManual,
	})
	require.NoError(t, err)

	pay, err := f.engine.CalculateEmployeePay(context.Background(), calculation.PayRequest{
		EmployeeID: "e1", PeriodID: periodID, CalculationDate: calcDate,
	})
	require.NoError(t, err)
	assert.True(t, pay.GrossPay.Equal(money("8000")))
	assert.True(t, pay.SocialInsuranceEmployee.Equal(money("832")), pay.SocialInsuranceEmployee.String())
	assert.True(t, pay.HousingFundEmployee.Equal(money("960")))
	assert.True(t, pay.TaxAmount.Equal(money("210")))
	assert.True(t, pay.NetPay.Equal(money("5998")), pay.NetPay.String())
	assert.Empty(t, pay.Warnings)

	f.payroll.PutSnapshot(payroll.PayrollSnapshot{ID: "s-e2", EmployeeID: "e2", PeriodID: periodID, GrossPay: money("9000.50")})
	pay, err = f.engine.CalculateEmployeePay(context.Background(), calculation.PayRequest{
		EmployeeID: "e2", PeriodID: periodID, CalculationDate: calcDate,
	})
	require.NoError(t, err)
	assert.True(t, pay.GrossPay.Equal(money("9000.50")))
	assert.True(t, pay.TaxAmount.IsZero())
	require.Len(t, pay.Warnings, 1)
	assert.Contains(t, pay.Warnings[0], "no personal income tax record")
}
