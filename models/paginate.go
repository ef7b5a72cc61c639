package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apexdental/practice_backend/config"
	"github.com/apexdental/practice_backend/utils"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const MaxPageLimit = 100

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type Page[T any] struct {
	Data       []*T       `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// fetchPageOffset runs a count query and a bounded offset/limit data query
// concurrently. newQuery must return a fresh query with the full filter
// applied, so both sides see an identical predicate by construction.
//
// There is no snapshot isolation across the two queries: under concurrent
// writes the total and the returned page may reflect slightly different
// database states. Accepted trade-off for dashboard-style reads.
func fetchPageOffset[T any](ctx context.Context, newQuery func() *gorm.DB, orderBy string, page, limit int) (*Page[T], error) {
	if page < 1 {
		return nil, fmt.Errorf("page must be >= 1, got %d", page)
	}
	if limit < 1 || limit > MaxPageLimit {
		return nil, fmt.Errorf("limit must be between 1 and %d, got %d", MaxPageLimit, limit)
	}

	var total int64
	rows := make([]*T, 0, limit)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return newQuery().WithContext(gctx).Count(&total).Error
	})
	g.Go(func() error {
		return newQuery().WithContext(gctx).
			Order(orderBy).
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&rows).Error
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &Page[T]{
		Data: rows,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

type FactFilter struct {
	LocationId *int
	ProviderId *int
	StartDate  *time.Time
	EndDate    *time.Time
}

func PaginateFinancialFacts(ctx context.Context, filter FactFilter, page, limit int) (*Page[LocationFinancialFact], error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	newQuery := func() *gorm.DB {
		q := config.GetDB().WithContext(ctx).
			Model(&LocationFinancialFact{}).
			Where("tenant_id = ?", tenantId)
		if filter.LocationId != nil && *filter.LocationId > 0 {
			q = q.Where("location_id = ?", *filter.LocationId)
		}
		if filter.StartDate != nil {
			q = q.Where("fact_date >= ?", *filter.StartDate)
		}
		if filter.EndDate != nil {
			q = q.Where("fact_date <= ?", *filter.EndDate)
		}
		return q
	}
	return fetchPageOffset[LocationFinancialFact](ctx, newQuery, "fact_date DESC, location_id", page, limit)
}

func PaginateHygieneFacts(ctx context.Context, filter FactFilter, page, limit int) (*Page[HygieneFact], error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	newQuery := func() *gorm.DB {
		q := config.GetDB().WithContext(ctx).
			Model(&HygieneFact{}).
			Where("tenant_id = ?", tenantId)
		if filter.LocationId != nil && *filter.LocationId > 0 {
			q = q.Where("location_id = ?", *filter.LocationId)
		}
		if filter.StartDate != nil {
			q = q.Where("fact_date >= ?", *filter.StartDate)
		}
		if filter.EndDate != nil {
			q = q.Where("fact_date <= ?", *filter.EndDate)
		}
		return q
	}
	return fetchPageOffset[HygieneFact](ctx, newQuery, "fact_date DESC, location_id", page, limit)
}

func PaginateProviderProductionFacts(ctx context.Context, filter FactFilter, page, limit int) (*Page[ProviderProductionFact], error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	newQuery := func() *gorm.DB {
		q := config.GetDB().WithContext(ctx).
			Model(&ProviderProductionFact{}).
			Where("tenant_id = ?", tenantId)
		if filter.ProviderId != nil && *filter.ProviderId > 0 {
			q = q.Where("provider_id = ?", *filter.ProviderId)
		}
		if filter.StartDate != nil {
			q = q.Where("fact_date >= ?", *filter.StartDate)
		}
		if filter.EndDate != nil {
			q = q.Where("fact_date <= ?", *filter.EndDate)
		}
		return q
	}
	return fetchPageOffset[ProviderProductionFact](ctx, newQuery, "fact_date DESC, provider_id", page, limit)
}

type SyncRunFilter struct {
	RecordType *string
	Status     *string
	ScopeId    *int
}

func PaginateSyncRuns(ctx context.Context, filter SyncRunFilter, page, limit int) (*Page[SyncRun], error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	newQuery := func() *gorm.DB {
		q := config.GetDB().WithContext(ctx).
			Model(&SyncRun{}).
			Where("tenant_id = ?", tenantId)
		if filter.RecordType != nil && *filter.RecordType != "" {
			q = q.Where("record_type = ?", *filter.RecordType)
		}
		if filter.Status != nil && *filter.Status != "" {
			q = q.Where("status = ?", *filter.Status)
		}
		if filter.ScopeId != nil && *filter.ScopeId > 0 {
			q = q.Where("scope_id = ?", *filter.ScopeId)
		}
		return q
	}
	return fetchPageOffset[SyncRun](ctx, newQuery, "id DESC", page, limit)
}
