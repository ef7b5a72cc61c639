package sheetsync

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/apexdental/practice_backend/config"
	"github.com/apexdental/practice_backend/models"
	"github.com/apexdental/practice_backend/utils"
)

var testDBSeq atomic.Int64

// setupTestDB opens a fresh in-memory database and points the global
// handle at it. Shared cache keeps the schema visible across pooled
// connections.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:sheetsync_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Location{},
		&models.Provider{},
		&models.ProviderLocation{},
		&models.Goal{},
		&models.LocationFinancialFact{},
		&models.HygieneFact{},
		&models.ProviderProductionFact{},
		&models.SyncRun{},
		&models.SyncRunError{},
	))

	prev := config.GetDB()
	config.SetDB(db)
	t.Cleanup(func() { config.SetDB(prev) })

	return db
}

func seedLocation(t *testing.T, db *gorm.DB, tenantId, name string) *models.Location {
	t.Helper()
	loc := &models.Location{TenantId: tenantId, Name: name, IsActive: utils.NewTrue()}
	require.NoError(t, db.Create(loc).Error)
	return loc
}

func seedProvider(t *testing.T, db *gorm.DB, tenantId, name string) *models.Provider {
	t.Helper()
	p := &models.Provider{TenantId: tenantId, Name: name, IsActive: utils.NewTrue()}
	require.NoError(t, db.Create(p).Error)
	return p
}

func financialRequest(tenant, location string, rows [][]string) IngestRequest {
	return IngestRequest{
		TenantId:     tenant,
		RecordType:   models.RecordTypeFinancial,
		LocationHint: location,
		Source:       "March Sheet",
		TriggeredBy:  models.SyncTriggeredManual,
		Headers:      []string{"Date", "Production", "Adjustments", "Write Offs"},
		Rows:         rows,
	}
}

func TestRunSyncHappyPath(t *testing.T) {
	db := setupTestDB(t)
	seedLocation(t, db, "tenant-a", "Downtown")

	summary, err := RunSync(context.Background(), financialRequest("tenant-a", "Downtown", [][]string{
		{"2024-03-04", "5000", "250", "100"},
		{"2024-03-05", "4800", "0", "50"},
	}))
	require.NoError(t, err)

	assert.Equal(t, models.SyncRunStatusSucceeded, summary.Status)
	assert.Equal(t, 2, summary.RecordsAttempted)
	assert.Equal(t, 2, summary.RecordsSucceeded)
	assert.Equal(t, 0, summary.RecordsFailed)
	assert.Empty(t, summary.Errors)

	var facts []models.LocationFinancialFact
	require.NoError(t, db.Order("fact_date").Find(&facts).Error)
	require.Len(t, facts, 2)
	assert.True(t, facts[0].NetProduction.Equal(decimal.NewFromInt(4650)))
	assert.Equal(t, summary.RunId, facts[0].SyncRunId)

	var run models.SyncRun
	require.NoError(t, db.Take(&run, summary.RunId).Error)
	assert.Equal(t, models.SyncRunStatusSucceeded, run.Status)
	assert.NotNil(t, run.FinishedAt)
	assert.NotEmpty(t, run.CorrelationId)
}

func TestRunSyncPartialFailureIsolation(t *testing.T) {
	db := setupTestDB(t)
	seedLocation(t, db, "tenant-a", "Downtown")

	summary, err := RunSync(context.Background(), financialRequest("tenant-a", "Downtown", [][]string{
		{"2024-03-04", "5000", "250", "100"},
		{"2024-03-05", "not-money", "0", "0"},
		{"2024-03-06", "4800", "0", "50"},
	}))
	require.NoError(t, err)

	assert.Equal(t, models.SyncRunStatusPartial, summary.Status)
	assert.Equal(t, 3, summary.RecordsAttempted)
	assert.Equal(t, 2, summary.RecordsSucceeded)
	assert.Equal(t, 1, summary.RecordsFailed)

	require.Len(t, summary.Errors, 1)
	assert.Equal(t, 2, summary.Errors[0].RowIndex)
	assert.Equal(t, "invalid_amount", summary.Errors[0].Code)

	// The bad row failed alone; both valid rows persisted.
	var count int64
	require.NoError(t, db.Model(&models.LocationFinancialFact{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	// Errors are persisted on the run for later inspection.
	run, gerr := models.GetSyncRunById(utils.SetTenantIdInContext(context.Background(), "tenant-a"), summary.RunId)
	require.NoError(t, gerr)
	require.Len(t, run.Errors, 1)
	assert.Equal(t, "invalid_amount", run.Errors[0].ErrorCode)
	assert.False(t, run.Errors[0].Retryable)
}

func TestRunSyncAllRowsInvalid(t *testing.T) {
	db := setupTestDB(t)
	seedLocation(t, db, "tenant-a", "Downtown")

	summary, err := RunSync(context.Background(), financialRequest("tenant-a", "Downtown", [][]string{
		{"bad-date", "5000", "", ""},
		{"2024-03-05", "", "", ""},
	}))
	require.NoError(t, err)

	assert.Equal(t, models.SyncRunStatusFailed, summary.Status)
	assert.Equal(t, 0, summary.RecordsSucceeded)
	assert.Equal(t, 2, summary.RecordsFailed)
}

func TestRunSyncIdempotentResubmission(t *testing.T) {
	db := setupTestDB(t)
	seedLocation(t, db, "tenant-a", "Downtown")

	req := financialRequest("tenant-a", "Downtown", [][]string{
		{"2024-03-04", "5000", "250", "100"},
	})

	first, err := RunSync(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, models.SyncRunStatusSucceeded, first.Status)

	second, err := RunSync(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, models.SyncRunStatusSucceeded, second.Status)

	// Same natural key: the second run updated in place, no duplicate.
	var count int64
	require.NoError(t, db.Model(&models.LocationFinancialFact{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var fact models.LocationFinancialFact
	require.NoError(t, db.Take(&fact).Error)
	assert.Equal(t, second.RunId, fact.SyncRunId)
}

func TestRunSyncHeaderResolutionFailure(t *testing.T) {
	db := setupTestDB(t)
	seedLocation(t, db, "tenant-a", "Downtown")

	req := financialRequest("tenant-a", "Downtown", [][]string{{"2024-03-04", "5000"}})
	req.Headers = []string{"Date", "Notes"}

	summary, err := RunSync(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, models.SyncRunStatusFailed, summary.Status)
	assert.Equal(t, 0, summary.RecordsSucceeded)
	// Resolution failing fails every row, so the audit counts add up.
	assert.Equal(t, 1, summary.RecordsAttempted)
	assert.Equal(t, 1, summary.RecordsFailed)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "resolution_failed", summary.Errors[0].Code)

	detail, err := models.GetSyncRunById(utils.SetTenantIdInContext(context.Background(), "tenant-a"), summary.RunId)
	require.NoError(t, err)
	assert.Equal(t, detail.RecordsAttempted, detail.RecordsSucceeded+detail.RecordsFailed)

	// Nothing was written.
	var count int64
	require.NoError(t, db.Model(&models.LocationFinancialFact{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestRunSyncUnknownLocation(t *testing.T) {
	setupTestDB(t)

	_, err := RunSync(context.Background(), financialRequest("tenant-a", "Nowhere", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nowhere")
}

func TestRunSyncUnknownRecordType(t *testing.T) {
	setupTestDB(t)

	req := financialRequest("tenant-a", "Downtown", nil)
	req.RecordType = "perio"
	_, err := RunSync(context.Background(), req)
	assert.Error(t, err)
}

func TestRunSyncConcurrentRunRejected(t *testing.T) {
	db := setupTestDB(t)
	loc := seedLocation(t, db, "tenant-a", "Downtown")

	key := runLockKey("tenant-a", models.RecordTypeFinancial, loc.ID)
	release, err := locks.acquire(context.Background(), key)
	require.NoError(t, err)
	defer release()

	_, err = RunSync(context.Background(), financialRequest("tenant-a", "Downtown", [][]string{
		{"2024-03-04", "5000", "", ""},
	}))
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestRunSyncProviderScope(t *testing.T) {
	db := setupTestDB(t)
	p := seedProvider(t, db, "tenant-a", "Dr. Patel")

	summary, err := RunSync(context.Background(), IngestRequest{
		TenantId:     "tenant-a",
		RecordType:   models.RecordTypeProviderProduction,
		LocationHint: "Dr. Patel",
		TriggeredBy:  models.SyncTriggeredSchedule,
		Headers:      []string{"Date", "Production", "Collections"},
		Rows: [][]string{
			{"2024-03-04", "1500", "1200"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.SyncRunStatusSucceeded, summary.Status)
	assert.Equal(t, models.ScopeLevelProvider, summary.ScopeLevel)
	assert.Equal(t, p.ID, summary.ScopeId)

	var fact models.ProviderProductionFact
	require.NoError(t, db.Take(&fact).Error)
	assert.Equal(t, p.ID, fact.ProviderId)
}
