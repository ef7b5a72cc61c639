package sheetsync

import (
	"fmt"
	"sort"
	"strings"

	"github.com/apexdental/practice_backend/models"
	"github.com/shopspring/decimal"
)

type FieldKind int

const (
	FieldDate FieldKind = iota
	FieldMoney
	FieldNumber
)

// FieldSpec declares one canonical field of a record type: the header
// aliases that resolve to it, whether it is required, and the sanity range
// applied after coercion.
type FieldSpec struct {
	Name     string
	Aliases  []string
	Required bool
	Kind     FieldKind
	Min      *decimal.Decimal
	Max      *decimal.Decimal
}

func dptr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

// Static alias tables per record type. Sheets come from several practice
// management exports, so each canonical field accepts the header spellings
// seen in the wild. Matching is case-insensitive and ignores punctuation
// and whitespace.
var recordSchemas = map[string][]FieldSpec{
	models.RecordTypeFinancial: {
		{Name: "date", Aliases: []string{"date", "production date", "dos", "day"}, Required: true, Kind: FieldDate},
		{Name: "production", Aliases: []string{"production", "prod", "gross production"}, Required: true, Kind: FieldMoney, Min: dptr(0), Max: dptr(1_000_000)},
		{Name: "adjustments", Aliases: []string{"adjustments", "adj", "adjs"}, Kind: FieldMoney, Min: dptr(-1_000_000), Max: dptr(1_000_000)},
		{Name: "write_offs", Aliases: []string{"write offs", "write-offs", "writeoffs", "w/o"}, Kind: FieldMoney, Min: dptr(0), Max: dptr(1_000_000)},
		{Name: "patient_income", Aliases: []string{"patient income", "pt income", "patient payments"}, Kind: FieldMoney, Min: dptr(-1_000_000), Max: dptr(1_000_000)},
		{Name: "insurance_income", Aliases: []string{"insurance income", "ins income", "insurance payments"}, Kind: FieldMoney, Min: dptr(-1_000_000), Max: dptr(1_000_000)},
		{Name: "unearned_income", Aliases: []string{"unearned income", "unearned", "prepayments"}, Kind: FieldMoney, Min: dptr(-1_000_000), Max: dptr(1_000_000)},
	},
	models.RecordTypeHygiene: {
		{Name: "date", Aliases: []string{"date", "dos", "day"}, Required: true, Kind: FieldDate},
		{Name: "hours_worked", Aliases: []string{"hours worked", "hrs worked", "hours", "hrs"}, Required: true, Kind: FieldNumber, Min: dptr(0), Max: dptr(24)},
		{Name: "estimated_production", Aliases: []string{"estimated production", "est production", "est prod", "estimated"}, Kind: FieldMoney, Min: dptr(0), Max: dptr(1_000_000)},
		{Name: "verified_production", Aliases: []string{"verified production", "verified prod", "verified"}, Required: true, Kind: FieldMoney, Min: dptr(0), Max: dptr(1_000_000)},
		{Name: "goal_production", Aliases: []string{"goal production", "production goal", "goal", "daily goal"}, Kind: FieldMoney, Min: dptr(0), Max: dptr(1_000_000)},
	},
	models.RecordTypeProviderProduction: {
		{Name: "date", Aliases: []string{"date", "dos", "day"}, Required: true, Kind: FieldDate},
		{Name: "production", Aliases: []string{"production", "prod", "total production"}, Required: true, Kind: FieldMoney, Min: dptr(0), Max: dptr(1_000_000)},
		{Name: "collections", Aliases: []string{"collections", "total collections", "collected"}, Kind: FieldMoney, Min: dptr(-1_000_000), Max: dptr(1_000_000)},
		{Name: "scheduled_production", Aliases: []string{"scheduled production", "sched production", "scheduled"}, Kind: FieldMoney, Min: dptr(0), Max: dptr(1_000_000)},
	},
}

// FieldMapping maps canonical field names to column indexes. Optional
// fields that found no header are simply absent.
type FieldMapping map[string]int

// ResolutionError aborts a run before any data is touched: a required
// canonical field has no matching header.
type ResolutionError struct {
	RecordType string
	Missing    []string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %s headers: missing required field(s) %s",
		e.RecordType, strings.Join(e.Missing, ", "))
}

// ResolveHeaders maps raw sheet headers to the canonical field set of a
// record type. Pure function over the static alias tables.
func ResolveHeaders(recordType string, headers []string) (FieldMapping, error) {
	specs, ok := recordSchemas[recordType]
	if !ok {
		return nil, fmt.Errorf("unknown record type %q", recordType)
	}

	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}

	mapping := make(FieldMapping, len(specs))
	var missing []string
	for _, spec := range specs {
		idx := -1
		for _, alias := range spec.Aliases {
			target := normalizeHeader(alias)
			for i, h := range normalized {
				if h == target {
					idx = i
					break
				}
			}
			if idx >= 0 {
				break
			}
		}
		if idx >= 0 {
			mapping[spec.Name] = idx
		} else if spec.Required {
			missing = append(missing, spec.Name)
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &ResolutionError{RecordType: recordType, Missing: missing}
	}
	return mapping, nil
}

// normalizeHeader lowercases and strips everything but letters and digits,
// so "Hrs Worked", "hrs_worked" and "Hrs-Worked" all compare equal.
func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func fieldSpecs(recordType string) []FieldSpec {
	return recordSchemas[recordType]
}
