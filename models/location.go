package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/apexdental/practice_backend/config"
	"github.com/apexdental/practice_backend/utils"
	"gorm.io/gorm"
)

// Location is a physical clinic site. Reference data: created by admin
// tooling, read-only from the sync and aggregation paths.
type Location struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  string    `gorm:"index;size:64;not null" json:"tenant_id"`
	Name      string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Address   string    `gorm:"type:text" json:"address"`
	Phone     string    `gorm:"size:20" json:"phone"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetLocationById scopes by the tenant in ctx.
func GetLocationById(ctx context.Context, id int) (*Location, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	var location Location
	err := config.GetDB().WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantId, id).
		Take(&location).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &location, nil
}

// FindLocation resolves a location hint: a numeric id string or a
// case-insensitive name. Sheet triggers only carry the tab/location label,
// so name lookup is the common path.
func FindLocation(ctx context.Context, hint string) (*Location, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	hint = strings.TrimSpace(hint)
	if hint == "" {
		return nil, errors.New("location hint is required")
	}

	db := config.GetDB().WithContext(ctx)

	var location Location
	err := db.Where("tenant_id = ? AND name = ?", tenantId, hint).Take(&location).Error
	if err == nil {
		return &location, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = db.Where("tenant_id = ? AND id = ?", tenantId, hint).Take(&location).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &location, nil
}

func ListLocations(ctx context.Context) ([]Location, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	var locations []Location
	err := config.GetDB().WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantId, true).
		Order("id").
		Find(&locations).Error
	return locations, err
}
