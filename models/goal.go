package models

import (
	"context"
	"errors"
	"time"

	"github.com/apexdental/practice_backend/config"
	"github.com/apexdental/practice_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Goal is a target value for a metric over a period, at provider, location
// or clinic scope. Read-only input to aggregation; never written by the
// sync pipeline.
type Goal struct {
	ID          int             `gorm:"primary_key" json:"id"`
	TenantId    string          `gorm:"index:idx_goal_lookup,priority:1;size:64;not null" json:"tenant_id"`
	ScopeLevel  string          `gorm:"index:idx_goal_lookup,priority:2;size:20;not null" json:"scope_level"`
	ScopeId     int             `gorm:"index:idx_goal_lookup,priority:3;not null" json:"scope_id"`
	Metric      string          `gorm:"index:idx_goal_lookup,priority:4;size:50;not null" json:"metric"`
	PeriodStart time.Time       `gorm:"type:date;not null" json:"period_start"`
	PeriodEnd   time.Time       `gorm:"type:date;not null" json:"period_end"`
	Target      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"target"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// FindGoal returns the goal whose period covers [start, end] for the given
// scope and metric, or nil when none is defined. Multiple covering goals
// resolve to the narrowest period.
func FindGoal(ctx context.Context, scopeLevel string, scopeId int, metric string, start, end time.Time) (*Goal, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	var goals []Goal
	err := config.GetDB().WithContext(ctx).
		Where("tenant_id = ? AND scope_level = ? AND scope_id = ? AND metric = ?",
			tenantId, scopeLevel, scopeId, metric).
		Where("period_start <= ? AND period_end >= ?", start, end).
		Find(&goals).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(goals) == 0 {
		return nil, nil
	}

	best := goals[0]
	for _, g := range goals[1:] {
		if g.PeriodEnd.Sub(g.PeriodStart) < best.PeriodEnd.Sub(best.PeriodStart) {
			best = g
		}
	}
	return &best, nil
}
