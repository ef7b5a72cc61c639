package models

// Record types accepted by the sync pipeline. Each maps to one fact table
// with a fixed canonical field set.
const (
	RecordTypeFinancial          = "financial"
	RecordTypeHygiene            = "hygiene"
	RecordTypeProviderProduction = "provider-production"
)

func IsValidRecordType(rt string) bool {
	switch rt {
	case RecordTypeFinancial, RecordTypeHygiene, RecordTypeProviderProduction:
		return true
	}
	return false
}

const (
	SyncRunStatusQueued    = "queued"
	SyncRunStatusRunning   = "running"
	SyncRunStatusSucceeded = "succeeded"
	SyncRunStatusPartial   = "partial"
	SyncRunStatusFailed    = "failed"
)

const (
	SyncTriggeredManual   = "manual"
	SyncTriggeredSchedule = "schedule"
	SyncTriggeredEdit     = "edit"
	SyncTriggeredRetry    = "retry"
)

// Aggregation scope levels.
const (
	ScopeLevelProvider = "provider"
	ScopeLevelLocation = "location"
	ScopeLevelClinic   = "clinic"
)

// Metric types served by the aggregation engine. They match record types
// one-to-one: each metric reads the fact table its record type writes.
const (
	MetricTypeFinancial          = RecordTypeFinancial
	MetricTypeHygiene            = RecordTypeHygiene
	MetricTypeProviderProduction = RecordTypeProviderProduction
)

const (
	PeriodTypeDaily     = "daily"
	PeriodTypeWeekly    = "weekly"
	PeriodTypeMonthly   = "monthly"
	PeriodTypeQuarterly = "quarterly"
	PeriodTypeYearly    = "yearly"
	PeriodTypeCustom    = "custom"
)
