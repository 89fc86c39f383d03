package calculation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/calculation"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/event"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/cache"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/calcbridge"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// batchJob is the in-memory state of one batch. It is never persisted.
type batchJob struct {
	id      string
	req     calculation.BatchRequest
	results []*insurance.SocialInsuranceResult
	errors  []calculation.ItemError
	summary calculation.BatchSummary

	// cacheable is false when the period cannot be resolved; every item then
	// goes to the calculator, which reports the failure per employee.
	cacheable bool
}

// chunkOutcome is the per-position outcome of one chunk, in input order.
type chunkOutcome struct {
	result  *insurance.SocialInsuranceResult
	err     error
	cached  bool
	skipped bool
}

// BatchCalculateSocialInsurance processes the employees in sequential chunks.
// Item failures are collected; AbortOnChunkError stops the remaining chunks and
// returns the partial result together with a *calculation.BatchAbortedError.
func (e *EngineImpl) BatchCalculateSocialInsurance(ctx context.Context, req calculation.BatchRequest) (calculation.BatchResult, error) {
	if err := req.Validate(); err != nil {
		return calculation.BatchResult{}, err
	}

	job := &batchJob{
		id:      e.newID(),
		req:     req,
		results: make([]*insurance.SocialInsuranceResult, 0, len(req.EmployeeIDs)),
		errors:  []calculation.ItemError{},
	}
	job.summary.TotalRequested = len(req.EmployeeIDs)
	if useCache(req.ForceRecalculation, req.ValidateOnly) {
		_, err := e.payrollRepo.GetPeriodByID(ctx, req.PeriodID)
		job.cacheable = err == nil
	}

	ctx, span := e.tracer.Start(ctx, "calculation.BatchCalculateSocialInsurance", trace.WithAttributes(
		attribute.String("batch.id", job.id),
		attribute.String("period.id", req.PeriodID),
		attribute.Int("batch.size", len(req.EmployeeIDs)),
		attribute.Bool("validate_only", req.ValidateOnly),
	))
	defer span.End()

	started := e.now()
	chunks := chunk(req.EmployeeIDs, e.effectiveChunkSize(req.Options.ChunkSize))
	job.summary.ChunkCount = len(chunks)

	var runErr error
	for i, ids := range chunks {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		chunkErrors, err := e.runChunk(ctx, job, i, ids)
		if err != nil {
			runErr = &calculation.BatchAbortedError{BatchID: job.id, ChunkIndex: i, Cause: err}
			break
		}
		if chunkErrors > 0 && req.Options.AbortOnChunkError {
			runErr = &calculation.BatchAbortedError{
				BatchID:    job.id,
				ChunkIndex: i,
				Cause:      fmt.Errorf("%d employee(s) failed in chunk %d", chunkErrors, i),
			}
			break
		}
	}

	e.finish(job, started, runErr)
	result := calculation.BatchResult{
		BatchID:  job.id,
		PeriodID: req.PeriodID,
		Results:  job.results,
		Errors:   job.errors,
		Summary:  job.summary,
	}

	span.SetAttributes(
		attribute.Int("batch.success", job.summary.SuccessCount),
		attribute.Int("batch.errors", job.summary.ErrorCount),
		attribute.Bool("batch.aborted", job.summary.Aborted),
	)

	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		e.logger.Warn("batch calculation stopped",
			"batch_id", job.id,
			"period_id", req.PeriodID,
			"processed", job.summary.TotalProcessed,
			"requested", job.summary.TotalRequested,
			"error", runErr,
		)
		return result, runErr
	}

	e.logger.Info("batch calculation finished",
		"batch_id", job.id,
		"period_id", req.PeriodID,
		"chunks", job.summary.ChunkCount,
		"success", job.summary.SuccessCount,
		"errors", job.summary.ErrorCount,
		"cache_hits", job.summary.CacheHits,
		"duration", job.summary.TotalDuration,
	)

	if !req.ValidateOnly {
		e.publish(ctx, event.BatchSocialInsuranceCalculated{
			BatchID:   job.id,
			PeriodID:  req.PeriodID,
			Results:   cloneAll(job.results),
			Summary:   eventSummary(job.summary),
			Timestamp: e.now().UTC(),
		})
	}

	return result, nil
}

// runChunk computes one chunk and folds it into the job.
// It returns the number of failed employees, or an error when the whole chunk could not be computed.
func (e *EngineImpl) runChunk(ctx context.Context, job *batchJob, index int, ids []string) (int, error) {
	req := job.req
	outcomes := make([]chunkOutcome, len(ids))

	var misses []string
	missPos := make(map[string][]int)
	for pos, id := range ids {
		if job.cacheable {
			if cached, ok := e.lookup(ctx, cache.NewKey(id, req.PeriodID, req.CalculationDate)); ok {
				if _, err := e.employeeRepo.GetByID(ctx, id); err != nil {
					outcomes[pos] = chunkOutcome{err: fmt.Errorf("employee %s: %w", id, err)}
					continue
				}
				outcomes[pos] = chunkOutcome{result: cached, cached: true}
				continue
			}
		}
		if _, seen := missPos[id]; !seen {
			misses = append(misses, id)
		}
		missPos[id] = append(missPos[id], pos)
		outcomes[pos] = chunkOutcome{skipped: true}
	}

	var remoteErr error
	if len(misses) > 0 {
		call, err := calcbridge.NewCalculateBatch(misses, req.PeriodID, req.CalculationDate, req.ValidateOnly, req.Options.StopOnItemError)
		if err != nil {
			return 0, err
		}
		resp, err := e.invoker.Invoke(ctx, call)
		if err != nil {
			remoteErr = remoteFailure(err)
		}
		for _, out := range resp.Outcomes {
			for _, pos := range missPos[out.EmployeeID] {
				outcomes[pos] = chunkOutcome{result: out.Result, err: out.Err}
				if out.Err == nil && out.Result == nil {
					outcomes[pos].err = fmt.Errorf("%w: no result for employee %s", calculation.ErrRemoteFailure, out.EmployeeID)
				}
			}
		}
		if remoteErr != nil {
			for pos, o := range outcomes {
				if o.skipped {
					outcomes[pos] = chunkOutcome{err: remoteErr}
				}
			}
		}
	}

	failed := 0
	stopped := false
	for pos, o := range outcomes {
		id := ids[pos]
		if stopped || o.skipped {
			continue
		}
		if o.err == nil && !o.cached && !req.ValidateOnly {
			if err := e.insuranceRepo.SaveResult(ctx, *o.result); err != nil {
				o.err = fmt.Errorf("persist social insurance result: %w", err)
			}
		}
		if o.err != nil {
			failed++
			job.summary.ErrorCount++
			job.errors = append(job.errors, calculation.ItemError{EmployeeID: id, ChunkIndex: index, Message: o.err.Error()})
			e.metrics.IncCalculation(kindBatchItem, outcomeError)
			if req.Options.StopOnItemError {
				stopped = true
			}
			continue
		}

		if o.cached {
			job.summary.CacheHits++
		} else if !req.ValidateOnly {
			e.store(ctx, cache.NewKey(id, req.PeriodID, req.CalculationDate), o.result)
		}
		if len(o.result.Warnings) > 0 {
			job.summary.WarningCount++
		}
		job.summary.SuccessCount++
		job.results = append(job.results, o.result)
		if req.ValidateOnly {
			e.metrics.IncCalculation(kindBatchItem, outcomePreview)
		} else {
			e.metrics.IncCalculation(kindBatchItem, outcomeSuccess)
		}
	}

	return failed, remoteErr
}

func (e *EngineImpl) finish(job *batchJob, started time.Time, runErr error) {
	s := &job.summary
	s.TotalProcessed = s.SuccessCount + s.ErrorCount
	s.SkippedCount = s.TotalRequested - s.TotalProcessed
	s.TotalDuration = e.now().Sub(started)
	if s.TotalProcessed > 0 {
		s.AvgDuration = s.TotalDuration / time.Duration(s.TotalProcessed)
	}
	var aborted *calculation.BatchAbortedError
	s.Aborted = errors.As(runErr, &aborted)
	e.metrics.ObserveBatchDuration(s.TotalDuration)
}

// RecalculatePeriodSocialInsurance evicts the period's cached results and recomputes
// every employee of the period as of its end date.
func (e *EngineImpl) RecalculatePeriodSocialInsurance(ctx context.Context, req calculation.RecalculateRequest) (calculation.BatchResult, error) {
	if req.PeriodID == "" {
		return calculation.BatchResult{}, calculation.BatchRequest{}.Validate()
	}

	period, err := e.payrollRepo.GetPeriodByID(ctx, req.PeriodID)
	if err != nil {
		return calculation.BatchResult{}, fmt.Errorf("period %s: %w", req.PeriodID, err)
	}

	if e.cache != nil {
		evicted, err := e.cache.DeleteMatching(ctx, cache.PeriodMatcher(e.invalidationMode, period.StartDate, period.EndDate))
		if err != nil {
			return calculation.BatchResult{}, fmt.Errorf("invalidate cache for period %s: %w", req.PeriodID, err)
		}
		e.metrics.AddCacheEvictions(evictInvalidation, evicted)
		e.logger.Info("cache invalidated for period recalculation",
			"period_id", period.ID,
			"mode", e.invalidationMode,
			"start", period.StartDate.Format("2006-01-02"),
			"end", period.EndDate.Format("2006-01-02"),
			"evicted", evicted,
		)
	}

	ids, err := e.payrollRepo.GetEmployeeIDsByPeriod(ctx, period.ID)
	if err != nil {
		return calculation.BatchResult{}, fmt.Errorf("list employees of period %s: %w", period.ID, err)
	}
	if len(ids) == 0 {
		ids, err = e.employeeRepo.GetActiveIDs(ctx, period.EndDate)
		if err != nil {
			return calculation.BatchResult{}, fmt.Errorf("list active employees: %w", err)
		}
	}
	if len(ids) == 0 {
		return calculation.BatchResult{}, calculation.ErrEmptyBatch
	}

	return e.BatchCalculateSocialInsurance(ctx, calculation.BatchRequest{
		EmployeeIDs:        ids,
		PeriodID:           period.ID,
		CalculationDate:    period.EndDate,
		ForceRecalculation: true,
		Options:            req.Options,
	})
}

func (e *EngineImpl) effectiveChunkSize(requested int) int {
	if requested > 0 {
		return requested
	}
	return e.chunkSize
}

func chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = calculation.DefaultChunkSize
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

func cloneAll(results []*insurance.SocialInsuranceResult) []*insurance.SocialInsuranceResult {
	out := make([]*insurance.SocialInsuranceResult, len(results))
	for i, r := range results {
		out[i] = r.Clone()
	}
	return out
}

func eventSummary(s calculation.BatchSummary) event.BatchSummary {
	return event.BatchSummary{
		TotalRequested: s.TotalRequested,
		TotalProcessed: s.TotalProcessed,
		SuccessCount:   s.SuccessCount,
		ErrorCount:     s.ErrorCount,
		WarningCount:   s.WarningCount,
		TotalDuration:  s.TotalDuration,
		AvgDuration:    s.AvgDuration,
	}
}
