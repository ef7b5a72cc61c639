package models

import (
	"context"
	"errors"
	"time"

	"github.com/apexdental/practice_backend/config"
	"github.com/apexdental/practice_backend/utils"
	"gorm.io/gorm"
)

// SyncRun is the audit record for one execution of the sync pipeline.
// Append-only: rows are finalized once and never edited afterwards.
type SyncRun struct {
	ID         uint   `gorm:"primary_key" json:"id"`
	TenantId   string `gorm:"index;size:64;not null" json:"tenant_id"`
	Source     string `gorm:"size:100" json:"source"`
	RecordType string `gorm:"index;size:50;not null" json:"record_type"`
	ScopeLevel string `gorm:"size:20;not null" json:"scope_level"`
	ScopeId    int    `gorm:"index;not null" json:"scope_id"`

	Status      string `gorm:"index;size:20;not null" json:"status"`
	TriggeredBy string `gorm:"size:20" json:"triggered_by"`

	RecordsAttempted int `json:"records_attempted"`
	RecordsSucceeded int `json:"records_succeeded"`
	RecordsFailed    int `json:"records_failed"`

	CorrelationId string     `gorm:"size:64" json:"correlation_id"`
	StartedAt     *time.Time `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at"`
	DurationMs    int64      `json:"duration_ms"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Errors []SyncRunError `gorm:"foreignKey:SyncRunId" json:"errors,omitempty"`
}

// SyncRunError is one per-row error descriptor attached to a run. Row index
// plus reason is what an operator needs to find the bad cell in the sheet.
type SyncRunError struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	SyncRunId uint      `gorm:"index;not null" json:"sync_run_id"`
	TenantId  string    `gorm:"index;size:64;not null" json:"tenant_id"`
	RowIndex  int       `json:"row_index"`
	Field     string    `gorm:"size:64" json:"field"`
	ErrorCode string    `gorm:"size:64" json:"error_code"`
	Message   string    `gorm:"type:text" json:"message"`
	Retryable bool      `gorm:"default:false" json:"retryable"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func GetSyncRunById(ctx context.Context, id uint) (*SyncRun, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	var run SyncRun
	err := config.GetDB().WithContext(ctx).
		Preload("Errors").
		Where("tenant_id = ? AND id = ?", tenantId, id).
		Take(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &run, nil
}
