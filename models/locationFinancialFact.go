package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LocationFinancialFact is one day of financial results for one location.
//
// Grain (natural key): (tenant_id, location_id, fact_date). Re-syncing the
// same key updates the row in place; the table never holds duplicates.
//
// net_production and total_collections are derived. They are recomputed on
// every write and never read from the source sheet.
type LocationFinancialFact struct {
	ID         uint      `gorm:"primary_key" json:"id"`
	TenantId   string    `gorm:"uniqueIndex:idx_locfin_natural,priority:1;size:64;not null" json:"tenant_id"`
	LocationId int       `gorm:"uniqueIndex:idx_locfin_natural,priority:2;not null" json:"location_id"`
	FactDate   time.Time `gorm:"uniqueIndex:idx_locfin_natural,priority:3;type:date;not null" json:"fact_date"`

	Production      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"production"`
	Adjustments     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"adjustments"`
	WriteOffs       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"write_offs"`
	PatientIncome   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"patient_income"`
	InsuranceIncome decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"insurance_income"`
	UnearnedIncome  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unearned_income"`

	NetProduction    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"net_production"`
	TotalCollections decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_collections"`

	SyncRunId uint      `gorm:"index" json:"sync_run_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ComputeDerived recomputes net_production and total_collections from the
// source fields.
func (f *LocationFinancialFact) ComputeDerived() {
	f.NetProduction = f.Production.Sub(f.Adjustments).Sub(f.WriteOffs)
	f.TotalCollections = f.PatientIncome.Add(f.InsuranceIncome).Sub(f.UnearnedIncome)
}
