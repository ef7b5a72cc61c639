package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// HygieneFact is one day of hygiene department results for one location.
// Grain: (tenant_id, location_id, fact_date).
//
// variance_pct is derived from verified vs goal production and is nil when
// the goal is zero (a percentage against nothing is meaningless, not Inf).
type HygieneFact struct {
	ID         uint      `gorm:"primary_key" json:"id"`
	TenantId   string    `gorm:"uniqueIndex:idx_hygiene_natural,priority:1;size:64;not null" json:"tenant_id"`
	LocationId int       `gorm:"uniqueIndex:idx_hygiene_natural,priority:2;not null" json:"location_id"`
	FactDate   time.Time `gorm:"uniqueIndex:idx_hygiene_natural,priority:3;type:date;not null" json:"fact_date"`

	HoursWorked         decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"hours_worked"`
	EstimatedProduction decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"estimated_production"`
	VerifiedProduction  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"verified_production"`
	GoalProduction      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"goal_production"`

	VariancePct *decimal.Decimal `gorm:"type:decimal(10,2)" json:"variance_pct"`

	SyncRunId uint      `gorm:"index" json:"sync_run_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ComputeDerived recomputes variance_pct: (verified - goal) / goal * 100,
// rounded to 2 decimal places. Zero goal leaves it nil.
func (f *HygieneFact) ComputeDerived() {
	if f.GoalProduction.IsZero() {
		f.VariancePct = nil
		return
	}
	pct := f.VerifiedProduction.Sub(f.GoalProduction).
		Div(f.GoalProduction).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	f.VariancePct = &pct
}
