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

// Provider is a producing clinician (dentist or hygienist).
type Provider struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  string    `gorm:"index;size:64;not null" json:"tenant_id"`
	Name      string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Role      string    `gorm:"size:50" json:"role"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProviderLocation links a provider to a location. At most one link per
// provider is primary.
type ProviderLocation struct {
	ID         int       `gorm:"primary_key" json:"id"`
	TenantId   string    `gorm:"uniqueIndex:idx_provider_location,priority:1;size:64;not null" json:"tenant_id"`
	ProviderId int       `gorm:"uniqueIndex:idx_provider_location,priority:2;not null" json:"provider_id"`
	LocationId int       `gorm:"uniqueIndex:idx_provider_location,priority:3;not null" json:"location_id"`
	IsPrimary  *bool     `gorm:"not null;default:false" json:"is_primary"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetProviderById(ctx context.Context, id int) (*Provider, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	var provider Provider
	err := config.GetDB().WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantId, id).
		Take(&provider).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &provider, nil
}

// FindProvider resolves a provider hint by name or numeric id, like
// FindLocation does for locations.
func FindProvider(ctx context.Context, hint string) (*Provider, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	hint = strings.TrimSpace(hint)
	if hint == "" {
		return nil, errors.New("provider hint is required")
	}

	db := config.GetDB().WithContext(ctx)

	var provider Provider
	err := db.Where("tenant_id = ? AND name = ?", tenantId, hint).Take(&provider).Error
	if err == nil {
		return &provider, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = db.Where("tenant_id = ? AND id = ?", tenantId, hint).Take(&provider).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &provider, nil
}

func ListProviders(ctx context.Context) ([]Provider, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	var providers []Provider
	err := config.GetDB().WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantId, true).
		Order("id").
		Find(&providers).Error
	return providers, err
}

// ListProviderLocations returns the location links for one provider.
func ListProviderLocations(ctx context.Context, providerId int) ([]ProviderLocation, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	var links []ProviderLocation
	err := config.GetDB().WithContext(ctx).
		Where("tenant_id = ? AND provider_id = ?", tenantId, providerId).
		Order("is_primary DESC, location_id").
		Find(&links).Error
	return links, err
}
