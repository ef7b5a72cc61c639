package sheetsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/apexdental/practice_backend/config"
	"github.com/apexdental/practice_backend/models"
	"github.com/apexdental/practice_backend/utils"
)

// RunSync executes one full sync run: scope resolution, header resolution,
// row validation, batched upsert, and the SyncRun audit record.
//
// Stages are strictly sequential. A header resolution failure aborts the
// run as failed with zero rows touched; row-level failures skip only their
// row. The returned error is non-nil only when the run could not start at
// all (bad request, unknown scope, concurrent run on the same key). Once
// a run starts, the caller always gets a summary.
func RunSync(ctx context.Context, req IngestRequest) (*RunSummary, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid ingest request: %w", err)
	}
	if !models.IsValidRecordType(req.RecordType) {
		return nil, fmt.Errorf("unknown record type %q", req.RecordType)
	}

	ctx = utils.SetTenantIdInContext(ctx, req.TenantId)

	scopeLevel, scopeId, err := resolveScope(ctx, req)
	if err != nil {
		return nil, err
	}

	release, err := locks.acquire(ctx, runLockKey(req.TenantId, req.RecordType, scopeId))
	if err != nil {
		return nil, err
	}
	defer release()

	run, err := createRun(ctx, req, scopeLevel, scopeId)
	if err != nil {
		return nil, err
	}

	mapping, err := ResolveHeaders(req.RecordType, req.Headers)
	if err != nil {
		runErr := models.SyncRunError{
			TenantId:  req.TenantId,
			ErrorCode: "resolution_failed",
			Message:   err.Error(),
		}
		return finalizeRun(ctx, run, len(req.Rows), 0, []models.SyncRunError{runErr}), nil
	}

	facts, rowIndexes, rowErrors := transformRows(req, mapping, run.ID, scopeId)

	outcomes, upsertErr := upsertFactsForRun(ctx, req.RecordType, facts)
	if upsertErr != nil && !errors.Is(upsertErr, context.Canceled) && !errors.Is(upsertErr, context.DeadlineExceeded) {
		return nil, upsertErr
	}

	succeeded := 0
	runErrors := make([]models.SyncRunError, 0, len(rowErrors))
	for _, re := range rowErrors {
		runErrors = append(runErrors, models.SyncRunError{
			TenantId:  req.TenantId,
			RowIndex:  re.Row,
			Field:     re.Field,
			ErrorCode: re.Code,
			Message:   re.Message,
		})
	}
	written := make(map[int]bool, len(outcomes))
	for _, out := range outcomes {
		written[out.Row] = true
		if out.Status == OutcomeSucceeded {
			succeeded++
			continue
		}
		runErrors = append(runErrors, models.SyncRunError{
			TenantId:  req.TenantId,
			RowIndex:  out.Row,
			ErrorCode: "upsert_failed",
			Message:   out.Reason,
			Retryable: out.Retryable,
		})
	}
	// Rows validated but never written because the run was cancelled
	// between batches.
	for _, row := range rowIndexes {
		if !written[row] {
			runErrors = append(runErrors, models.SyncRunError{
				TenantId:  req.TenantId,
				RowIndex:  row,
				ErrorCode: "cancelled",
				Message:   "run cancelled before this batch started",
				Retryable: true,
			})
		}
	}

	return finalizeRun(ctx, run, len(req.Rows), succeeded, runErrors), nil
}

// resolveScope turns the location hint into a concrete scope. Provider
// production syncs are keyed by provider; everything else by location.
func resolveScope(ctx context.Context, req IngestRequest) (string, int, error) {
	if req.RecordType == models.RecordTypeProviderProduction {
		provider, err := models.FindProvider(ctx, req.LocationHint)
		if err != nil {
			return "", 0, fmt.Errorf("cannot resolve provider %q: %w", req.LocationHint, err)
		}
		return models.ScopeLevelProvider, provider.ID, nil
	}

	location, err := models.FindLocation(ctx, req.LocationHint)
	if err != nil {
		return "", 0, fmt.Errorf("cannot resolve location %q: %w", req.LocationHint, err)
	}
	return models.ScopeLevelLocation, location.ID, nil
}

func createRun(ctx context.Context, req IngestRequest, scopeLevel string, scopeId int) (*models.SyncRun, error) {
	triggeredBy := req.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = models.SyncTriggeredManual
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	if correlationId == "" {
		correlationId = uuid.NewString()
	}

	now := time.Now()
	run := &models.SyncRun{
		TenantId:      req.TenantId,
		Source:        req.Source,
		RecordType:    req.RecordType,
		ScopeLevel:    scopeLevel,
		ScopeId:       scopeId,
		Status:        models.SyncRunStatusRunning,
		TriggeredBy:   triggeredBy,
		CorrelationId: correlationId,
		StartedAt:     &now,
	}
	if err := config.GetDB().WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// transformedFacts keeps the validated facts for a run alongside the
// 1-based sheet row each fact came from, so upsert outcomes can be
// reported against the operator's row numbers.
type transformedFacts struct {
	financial     []models.LocationFinancialFact
	financialRows []int
	hygiene       []models.HygieneFact
	hygieneRows   []int
	provider      []models.ProviderProductionFact
	providerRows  []int
}

// transformRows validates every row independently. Row indexes are
// 1-based positions within the submitted rows, matching how operators
// count sheet rows below the header.
func transformRows(req IngestRequest, mapping FieldMapping, runId uint, scopeId int) (transformedFacts, []int, []*RowError) {
	var facts transformedFacts
	var rowIndexes []int
	var rowErrors []*RowError

	for i, cells := range req.Rows {
		rowIndex := i + 1

		switch req.RecordType {
		case models.RecordTypeFinancial:
			fact, rerr := TransformFinancialRow(mapping, rowIndex, cells, req.TenantId, scopeId)
			if rerr != nil {
				rowErrors = append(rowErrors, rerr)
				continue
			}
			fact.SyncRunId = runId
			facts.financial = append(facts.financial, *fact)
			facts.financialRows = append(facts.financialRows, rowIndex)

		case models.RecordTypeHygiene:
			fact, rerr := TransformHygieneRow(mapping, rowIndex, cells, req.TenantId, scopeId)
			if rerr != nil {
				rowErrors = append(rowErrors, rerr)
				continue
			}
			fact.SyncRunId = runId
			facts.hygiene = append(facts.hygiene, *fact)
			facts.hygieneRows = append(facts.hygieneRows, rowIndex)

		case models.RecordTypeProviderProduction:
			fact, rerr := TransformProviderProductionRow(mapping, rowIndex, cells, req.TenantId, scopeId)
			if rerr != nil {
				rowErrors = append(rowErrors, rerr)
				continue
			}
			fact.SyncRunId = runId
			facts.provider = append(facts.provider, *fact)
			facts.providerRows = append(facts.providerRows, rowIndex)
		}
		rowIndexes = append(rowIndexes, rowIndex)
	}

	return facts, rowIndexes, rowErrors
}

func upsertFactsForRun(ctx context.Context, recordType string, facts transformedFacts) ([]Outcome, error) {
	store := NewGormFactStore(config.GetDB())
	cfg := DefaultBatchConfig()

	switch recordType {
	case models.RecordTypeFinancial:
		return UpsertBatches(ctx, facts.financial, facts.financialRows, store.UpsertFinancial, cfg)
	case models.RecordTypeHygiene:
		return UpsertBatches(ctx, facts.hygiene, facts.hygieneRows, store.UpsertHygiene, cfg)
	case models.RecordTypeProviderProduction:
		return UpsertBatches(ctx, facts.provider, facts.providerRows, store.UpsertProviderProduction, cfg)
	}
	return nil, nil
}

func finalizeRun(ctx context.Context, run *models.SyncRun, attempted, succeeded int, runErrors []models.SyncRunError) *RunSummary {
	logger := config.GetLogger()
	// The run record must be finalized even when the run itself was
	// cancelled, so the audit writes ignore the caller's cancellation.
	db := config.GetDB().WithContext(context.WithoutCancel(ctx))

	// Every attempted row either succeeded or failed, so the counts
	// reconcile even when a single error covers the whole run (a
	// header resolution failure fails every row at once).
	failed := attempted - succeeded
	status := models.SyncRunStatusSucceeded
	if failed > 0 || len(runErrors) > 0 {
		if succeeded == 0 {
			status = models.SyncRunStatusFailed
		} else {
			status = models.SyncRunStatusPartial
		}
	}

	finishedAt := time.Now()
	var durationMs int64
	if run.StartedAt != nil {
		durationMs = finishedAt.Sub(*run.StartedAt).Milliseconds()
	}

	if err := db.Model(run).Updates(map[string]interface{}{
		"status":            status,
		"records_attempted": attempted,
		"records_succeeded": succeeded,
		"records_failed":    failed,
		"finished_at":       finishedAt,
		"duration_ms":       durationMs,
	}).Error; err != nil {
		config.LogError(logger, "sheetsync", "finalizeRun", "update sync run", run.ID, err)
	}

	errorSummaries := make([]RunErrorSummary, 0, len(runErrors))
	for i := range runErrors {
		runErrors[i].SyncRunId = run.ID
		errorSummaries = append(errorSummaries, RunErrorSummary{
			RowIndex:  runErrors[i].RowIndex,
			Field:     runErrors[i].Field,
			Code:      runErrors[i].ErrorCode,
			Message:   runErrors[i].Message,
			Retryable: runErrors[i].Retryable,
		})
	}
	if len(runErrors) > 0 {
		if err := db.Create(&runErrors).Error; err != nil {
			config.LogError(logger, "sheetsync", "finalizeRun", "persist sync run errors", run.ID, err)
		}
	}

	return &RunSummary{
		RunId:            run.ID,
		Status:           status,
		RecordType:       run.RecordType,
		ScopeLevel:       run.ScopeLevel,
		ScopeId:          run.ScopeId,
		RecordsAttempted: attempted,
		RecordsSucceeded: succeeded,
		RecordsFailed:    failed,
		DurationMs:       durationMs,
		Errors:           errorSummaries,
	}
}
