package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apexdental/practice_backend/config"
	"github.com/apexdental/practice_backend/utils"
	"github.com/shopspring/decimal"
)

type MetricScope struct {
	Level string `json:"level" binding:"required"`
	Id    int    `json:"id"`
}

type AggregateRequest struct {
	MetricType       string      `json:"metricType" binding:"required"`
	PeriodType       string      `json:"periodType" binding:"required"`
	ReferenceDate    string      `json:"referenceDate"`
	StartDate        string      `json:"startDate"`
	EndDate          string      `json:"endDate"`
	Scope            MetricScope `json:"scope" binding:"required"`
	IncludeBreakdown bool        `json:"includeBreakdown"`
}

type FinancialTotals struct {
	Production       decimal.Decimal `json:"production"`
	Adjustments      decimal.Decimal `json:"adjustments"`
	WriteOffs        decimal.Decimal `json:"write_offs"`
	PatientIncome    decimal.Decimal `json:"patient_income"`
	InsuranceIncome  decimal.Decimal `json:"insurance_income"`
	UnearnedIncome   decimal.Decimal `json:"unearned_income"`
	NetProduction    decimal.Decimal `json:"net_production"`
	TotalCollections decimal.Decimal `json:"total_collections"`
}

type HygieneTotals struct {
	HoursWorked         decimal.Decimal `json:"hours_worked"`
	EstimatedProduction decimal.Decimal `json:"estimated_production"`
	VerifiedProduction  decimal.Decimal `json:"verified_production"`
	GoalProduction      decimal.Decimal `json:"goal_production"`
}

type ProviderTotals struct {
	Production          decimal.Decimal `json:"production"`
	Collections         decimal.Decimal `json:"collections"`
	ScheduledProduction decimal.Decimal `json:"scheduled_production"`
}

// MetricAggregate is derived data, recomputed on demand from facts and
// goals; it is never persisted.
type MetricAggregate struct {
	MetricType string `json:"metric_type"`
	ScopeLevel string `json:"scope_level"`
	ScopeId    int    `json:"scope_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Days       int    `json:"days"`

	// Actual is the primary value the metric is judged by:
	// net production (financial), verified production (hygiene),
	// production (provider-production).
	Actual    decimal.Decimal `json:"actual"`
	AvgPerDay decimal.Decimal `json:"avg_per_day"`

	Financial *FinancialTotals `json:"financial,omitempty"`
	Hygiene   *HygieneTotals   `json:"hygiene,omitempty"`
	Provider  *ProviderTotals  `json:"provider,omitempty"`

	// Goal fields are nil when no goal is defined or the goal is zero.
	// Absent data is not an error.
	Goal        *decimal.Decimal `json:"goal"`
	Variance    *decimal.Decimal `json:"variance"`
	VariancePct *decimal.Decimal `json:"variance_pct"`

	Breakdown []MetricAggregate `json:"breakdown,omitempty"`
}

// AggregateMetrics computes role- and period-scoped KPIs over the persisted
// facts. Empty fact sets yield zero-valued aggregates.
func AggregateMetrics(ctx context.Context, req AggregateRequest) (*MetricAggregate, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	if !IsValidRecordType(req.MetricType) {
		return nil, fmt.Errorf("unknown metric type %q", req.MetricType)
	}
	if err := validateScope(req.MetricType, req.Scope); err != nil {
		return nil, err
	}

	start, end, err := resolveBoundary(req)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("kpi:%s:%s:%s:%d:%s:%s:%t",
		tenantId, req.MetricType, req.Scope.Level, req.Scope.Id,
		start.Format("2006-01-02"), end.Format("2006-01-02"), req.IncludeBreakdown)
	var cached MetricAggregate
	if found, cerr := config.GetRedisObject(cacheKey, &cached); cerr == nil && found {
		return &cached, nil
	}

	agg, err := aggregateScope(ctx, req.MetricType, req.Scope.Level, req.Scope.Id, start, end)
	if err != nil {
		return nil, err
	}

	if req.IncludeBreakdown && req.Scope.Level == ScopeLevelClinic {
		breakdown, err := clinicBreakdown(ctx, req.MetricType, start, end)
		if err != nil {
			return nil, err
		}
		agg.Breakdown = breakdown
	}

	// Dashboard reads tolerate slightly stale aggregates.
	_ = config.SetRedisObject(cacheKey, agg, time.Minute)

	return agg, nil
}

func validateScope(metricType string, scope MetricScope) error {
	switch scope.Level {
	case ScopeLevelClinic:
		return nil
	case ScopeLevelProvider:
		if metricType != MetricTypeProviderProduction {
			return fmt.Errorf("metric %q does not support provider scope", metricType)
		}
		if scope.Id <= 0 {
			return errors.New("provider scope requires a provider id")
		}
		return nil
	case ScopeLevelLocation:
		if metricType == MetricTypeProviderProduction {
			return fmt.Errorf("metric %q does not support location scope", metricType)
		}
		if scope.Id <= 0 {
			return errors.New("location scope requires a location id")
		}
		return nil
	}
	return fmt.Errorf("unknown scope level %q", scope.Level)
}

func resolveBoundary(req AggregateRequest) (time.Time, time.Time, error) {
	if req.PeriodType == PeriodTypeCustom {
		start, err := parseISODate(req.StartDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid startDate: %w", err)
		}
		end, err := parseISODate(req.EndDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid endDate: %w", err)
		}
		return PeriodBoundary(PeriodTypeCustom, time.Time{}, &start, &end)
	}

	ref, err := parseISODate(req.ReferenceDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid referenceDate: %w", err)
	}
	return PeriodBoundary(req.PeriodType, ref, nil, nil)
}

func parseISODate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func aggregateScope(ctx context.Context, metricType, scopeLevel string, scopeId int, start, end time.Time) (*MetricAggregate, error) {
	tenantId, _ := utils.GetTenantIdFromContext(ctx)

	agg := &MetricAggregate{
		MetricType: metricType,
		ScopeLevel: scopeLevel,
		ScopeId:    scopeId,
		StartDate:  start.Format("2006-01-02"),
		EndDate:    end.Format("2006-01-02"),
		Days:       PeriodDays(start, end),
	}

	db := config.GetDB().WithContext(ctx)

	switch metricType {
	case MetricTypeFinancial:
		var totals FinancialTotals
		q := db.Model(&LocationFinancialFact{}).
			Select(`COALESCE(SUM(production), 0) AS production,
				COALESCE(SUM(adjustments), 0) AS adjustments,
				COALESCE(SUM(write_offs), 0) AS write_offs,
				COALESCE(SUM(patient_income), 0) AS patient_income,
				COALESCE(SUM(insurance_income), 0) AS insurance_income,
				COALESCE(SUM(unearned_income), 0) AS unearned_income,
				COALESCE(SUM(net_production), 0) AS net_production,
				COALESCE(SUM(total_collections), 0) AS total_collections`).
			Where("tenant_id = ? AND fact_date BETWEEN ? AND ?", tenantId, start, end)
		if scopeLevel == ScopeLevelLocation {
			q = q.Where("location_id = ?", scopeId)
		}
		if err := q.Scan(&totals).Error; err != nil {
			return nil, err
		}
		agg.Financial = &totals
		agg.Actual = totals.NetProduction

	case MetricTypeHygiene:
		var totals HygieneTotals
		q := db.Model(&HygieneFact{}).
			Select(`COALESCE(SUM(hours_worked), 0) AS hours_worked,
				COALESCE(SUM(estimated_production), 0) AS estimated_production,
				COALESCE(SUM(verified_production), 0) AS verified_production,
				COALESCE(SUM(goal_production), 0) AS goal_production`).
			Where("tenant_id = ? AND fact_date BETWEEN ? AND ?", tenantId, start, end)
		if scopeLevel == ScopeLevelLocation {
			q = q.Where("location_id = ?", scopeId)
		}
		if err := q.Scan(&totals).Error; err != nil {
			return nil, err
		}
		agg.Hygiene = &totals
		agg.Actual = totals.VerifiedProduction

	case MetricTypeProviderProduction:
		var totals ProviderTotals
		q := db.Model(&ProviderProductionFact{}).
			Select(`COALESCE(SUM(production), 0) AS production,
				COALESCE(SUM(collections), 0) AS collections,
				COALESCE(SUM(scheduled_production), 0) AS scheduled_production`).
			Where("tenant_id = ? AND fact_date BETWEEN ? AND ?", tenantId, start, end)
		if scopeLevel == ScopeLevelProvider {
			q = q.Where("provider_id = ?", scopeId)
		}
		if err := q.Scan(&totals).Error; err != nil {
			return nil, err
		}
		agg.Provider = &totals
		agg.Actual = totals.Production
	}

	if agg.Days > 0 {
		agg.AvgPerDay = agg.Actual.Div(decimal.NewFromInt(int64(agg.Days))).Round(2)
	}

	if err := attachGoal(ctx, agg, start, end); err != nil {
		return nil, err
	}

	return agg, nil
}

func attachGoal(ctx context.Context, agg *MetricAggregate, start, end time.Time) error {
	goal, err := FindGoal(ctx, agg.ScopeLevel, agg.ScopeId, agg.MetricType, start, end)
	if err != nil {
		return err
	}
	if goal == nil {
		return nil
	}

	target := goal.Target
	agg.Goal = &target

	variance := agg.Actual.Sub(target)
	agg.Variance = &variance

	if !target.IsZero() {
		pct := variance.Div(target).Mul(decimal.NewFromInt(100)).Round(2)
		agg.VariancePct = &pct
	}
	return nil
}

// clinicBreakdown computes one aggregate per location (per provider for the
// provider-production metric), each at the narrower scope.
func clinicBreakdown(ctx context.Context, metricType string, start, end time.Time) ([]MetricAggregate, error) {
	if metricType == MetricTypeProviderProduction {
		providers, err := ListProviders(ctx)
		if err != nil {
			return nil, err
		}
		breakdown := make([]MetricAggregate, 0, len(providers))
		for _, p := range providers {
			entry, err := aggregateScope(ctx, metricType, ScopeLevelProvider, p.ID, start, end)
			if err != nil {
				return nil, err
			}
			breakdown = append(breakdown, *entry)
		}
		return breakdown, nil
	}

	locations, err := ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	breakdown := make([]MetricAggregate, 0, len(locations))
	for _, loc := range locations {
		entry, err := aggregateScope(ctx, metricType, ScopeLevelLocation, loc.ID, start, end)
		if err != nil {
			return nil, err
		}
		breakdown = append(breakdown, *entry)
	}
	return breakdown, nil
}
