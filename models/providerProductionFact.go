package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProviderProductionFact is one day of production for one provider.
// Grain: (tenant_id, provider_id, fact_date).
type ProviderProductionFact struct {
	ID         uint      `gorm:"primary_key" json:"id"`
	TenantId   string    `gorm:"uniqueIndex:idx_provprod_natural,priority:1;size:64;not null" json:"tenant_id"`
	ProviderId int       `gorm:"uniqueIndex:idx_provprod_natural,priority:2;not null" json:"provider_id"`
	FactDate   time.Time `gorm:"uniqueIndex:idx_provprod_natural,priority:3;type:date;not null" json:"fact_date"`

	Production          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"production"`
	Collections         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"collections"`
	ScheduledProduction decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"scheduled_production"`

	SyncRunId uint      `gorm:"index" json:"sync_run_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
