package sheetsync

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// IngestRequest is one sync invocation: raw sheet headers and rows for a
// single (tenant, scope, recordType) target. Row cells are untyped strings
// exactly as read from the source; nothing here is persisted directly.
type IngestRequest struct {
	TenantId     string     `json:"tenantId" validate:"required"`
	RecordType   string     `json:"recordType" validate:"required"`
	LocationHint string     `json:"locationHint" validate:"required"`
	Source       string     `json:"source"`
	TriggeredBy  string     `json:"triggeredBy"`
	Headers      []string   `json:"headers" validate:"required,min=1"`
	Rows         [][]string `json:"rows"`
}

type RunErrorSummary struct {
	RowIndex  int    `json:"rowIndex"`
	Field     string `json:"field,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// RunSummary is what every caller of the ingestion entry point gets back,
// success or not. It distinguishes "nothing written" from "partially
// written" from "fully written".
type RunSummary struct {
	RunId            uint              `json:"runId"`
	Status           string            `json:"status"`
	RecordType       string            `json:"recordType"`
	ScopeLevel       string            `json:"scopeLevel"`
	ScopeId          int               `json:"scopeId"`
	RecordsAttempted int               `json:"recordsAttempted"`
	RecordsSucceeded int               `json:"recordsSucceeded"`
	RecordsFailed    int               `json:"recordsFailed"`
	DurationMs       int64             `json:"durationMs"`
	Errors           []RunErrorSummary `json:"errors"`
}

type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}
