package sheetsync

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/apexdental/practice_backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FactStore is the persistence endpoint for validated facts. Each upsert
// is keyed by the fact's natural key: the store holds at most one row per
// key and re-writes update in place.
type FactStore interface {
	UpsertFinancial(ctx context.Context, facts []models.LocationFinancialFact) error
	UpsertHygiene(ctx context.Context, facts []models.HygieneFact) error
	UpsertProviderProduction(ctx context.Context, facts []models.ProviderProductionFact) error
}

type gormFactStore struct {
	db *gorm.DB
}

func NewGormFactStore(db *gorm.DB) FactStore {
	return &gormFactStore{db: db}
}

func (s *gormFactStore) UpsertFinancial(ctx context.Context, facts []models.LocationFinancialFact) error {
	return upsertFacts(ctx, s.db, facts,
		[]clause.Column{{Name: "tenant_id"}, {Name: "location_id"}, {Name: "fact_date"}},
		[]string{"production", "adjustments", "write_offs", "patient_income", "insurance_income",
			"unearned_income", "net_production", "total_collections", "sync_run_id", "updated_at"})
}

func (s *gormFactStore) UpsertHygiene(ctx context.Context, facts []models.HygieneFact) error {
	return upsertFacts(ctx, s.db, facts,
		[]clause.Column{{Name: "tenant_id"}, {Name: "location_id"}, {Name: "fact_date"}},
		[]string{"hours_worked", "estimated_production", "verified_production", "goal_production",
			"variance_pct", "sync_run_id", "updated_at"})
}

func (s *gormFactStore) UpsertProviderProduction(ctx context.Context, facts []models.ProviderProductionFact) error {
	return upsertFacts(ctx, s.db, facts,
		[]clause.Column{{Name: "tenant_id"}, {Name: "provider_id"}, {Name: "fact_date"}},
		[]string{"production", "collections", "scheduled_production", "sync_run_id", "updated_at"})
}

// upsertFacts writes one batch as a single insert-or-update statement on
// the natural key. The statement is atomic per row, so concurrent runs for
// different scopes never interleave writes within a row.
func upsertFacts[T any](ctx context.Context, db *gorm.DB, facts []T, conflictCols []clause.Column, updateCols []string) error {
	if len(facts) == 0 {
		return nil
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   conflictCols,
			DoUpdates: clause.AssignmentColumns(updateCols),
		}).
		Create(&facts).Error
	return classifyUpsertError(err)
}

// classifyUpsertError sorts store failures into retryable and not.
// Connection-level trouble and lock contention are worth retrying;
// everything else means the data or the statement is bad and a retry
// would just fail again.
func classifyUpsertError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return &TransientUpsertError{Err: err}
	}

	msg := strings.ToLower(err.Error())
	transientMarkers := []string{
		"deadlock",
		"lock wait timeout",
		"connection refused",
		"connection reset",
		"broken pipe",
		"server has gone away",
		"i/o timeout",
		"try again",
	}
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return &TransientUpsertError{Err: err}
		}
	}

	return &RejectedUpsertError{Err: err}
}
