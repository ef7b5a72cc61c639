package sheetsync

import (
	"fmt"
	"strings"
	"time"

	"github.com/apexdental/practice_backend/models"
	"github.com/apexdental/practice_backend/utils"
	"github.com/shopspring/decimal"
)

// RowError fails a single row. Rows fail independently: one bad cell never
// aborts the run.
type RowError struct {
	Row     int
	Field   string
	Code    string
	Message string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s (%s: %s)", e.Row, e.Message, e.Field, e.Code)
}

var acceptedDateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"2006/01/02",
}

func parseSheetDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range acceptedDateFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return utils.DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// parseCurrency coerces spreadsheet currency text to a signed decimal:
// "$1,234.56", "1234.56", "(12.00)" (negative), "-$45.10".
func parseCurrency(value string) (decimal.Decimal, error) {
	s := strings.TrimSpace(value)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := utils.ParseDecimal(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unrecognized amount %q", value)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// parsedRow holds one row's typed values keyed by canonical field name.
// The date field is split out since it is the only non-numeric field.
type parsedRow struct {
	date   time.Time
	values map[string]decimal.Decimal
}

func (p parsedRow) value(name string) decimal.Decimal {
	return p.values[name]
}

// parseRow applies the full validation pass for one row: required-field
// checks, type coercion, and range checks, in field declaration order.
func parseRow(recordType string, mapping FieldMapping, rowIndex int, cells []string) (parsedRow, *RowError) {
	parsed := parsedRow{values: make(map[string]decimal.Decimal)}

	for _, spec := range fieldSpecs(recordType) {
		idx, mapped := mapping[spec.Name]
		raw := ""
		if mapped && idx < len(cells) {
			raw = strings.TrimSpace(cells[idx])
		}

		if raw == "" {
			if spec.Required {
				return parsedRow{}, &RowError{
					Row:     rowIndex,
					Field:   spec.Name,
					Code:    "required_field_missing",
					Message: fmt.Sprintf("required field %q is blank", spec.Name),
				}
			}
			// Blank optional numerics coerce to zero.
			if spec.Kind != FieldDate {
				parsed.values[spec.Name] = decimal.Zero
			}
			continue
		}

		switch spec.Kind {
		case FieldDate:
			d, err := parseSheetDate(raw)
			if err != nil {
				return parsedRow{}, &RowError{Row: rowIndex, Field: spec.Name, Code: "invalid_date", Message: err.Error()}
			}
			parsed.date = d

		case FieldMoney:
			d, err := parseCurrency(raw)
			if err != nil {
				return parsedRow{}, &RowError{Row: rowIndex, Field: spec.Name, Code: "invalid_amount", Message: err.Error()}
			}
			if rerr := checkRange(spec, d, rowIndex); rerr != nil {
				return parsedRow{}, rerr
			}
			parsed.values[spec.Name] = d

		case FieldNumber:
			d, err := utils.ParseDecimal(raw)
			if err != nil {
				return parsedRow{}, &RowError{
					Row:     rowIndex,
					Field:   spec.Name,
					Code:    "invalid_number",
					Message: fmt.Sprintf("unrecognized number %q", raw),
				}
			}
			if rerr := checkRange(spec, d, rowIndex); rerr != nil {
				return parsedRow{}, rerr
			}
			parsed.values[spec.Name] = d
		}
	}

	return parsed, nil
}

func checkRange(spec FieldSpec, d decimal.Decimal, rowIndex int) *RowError {
	if (spec.Min != nil && d.LessThan(*spec.Min)) || (spec.Max != nil && d.GreaterThan(*spec.Max)) {
		return &RowError{
			Row:     rowIndex,
			Field:   spec.Name,
			Code:    "out_of_range",
			Message: fmt.Sprintf("%s value %s outside sane range [%s, %s]", spec.Name, d, spec.Min, spec.Max),
		}
	}
	return nil
}

// TransformFinancialRow validates one financial row and produces a fact
// with derived fields recomputed. Derived values coming from the sheet are
// never trusted.
func TransformFinancialRow(mapping FieldMapping, rowIndex int, cells []string, tenantId string, locationId int) (*models.LocationFinancialFact, *RowError) {
	parsed, rerr := parseRow(models.RecordTypeFinancial, mapping, rowIndex, cells)
	if rerr != nil {
		return nil, rerr
	}

	fact := &models.LocationFinancialFact{
		TenantId:        tenantId,
		LocationId:      locationId,
		FactDate:        parsed.date,
		Production:      parsed.value("production"),
		Adjustments:     parsed.value("adjustments"),
		WriteOffs:       parsed.value("write_offs"),
		PatientIncome:   parsed.value("patient_income"),
		InsuranceIncome: parsed.value("insurance_income"),
		UnearnedIncome:  parsed.value("unearned_income"),
	}
	fact.ComputeDerived()
	return fact, nil
}

func TransformHygieneRow(mapping FieldMapping, rowIndex int, cells []string, tenantId string, locationId int) (*models.HygieneFact, *RowError) {
	parsed, rerr := parseRow(models.RecordTypeHygiene, mapping, rowIndex, cells)
	if rerr != nil {
		return nil, rerr
	}

	fact := &models.HygieneFact{
		TenantId:            tenantId,
		LocationId:          locationId,
		FactDate:            parsed.date,
		HoursWorked:         parsed.value("hours_worked"),
		EstimatedProduction: parsed.value("estimated_production"),
		VerifiedProduction:  parsed.value("verified_production"),
		GoalProduction:      parsed.value("goal_production"),
	}
	fact.ComputeDerived()
	return fact, nil
}

func TransformProviderProductionRow(mapping FieldMapping, rowIndex int, cells []string, tenantId string, providerId int) (*models.ProviderProductionFact, *RowError) {
	parsed, rerr := parseRow(models.RecordTypeProviderProduction, mapping, rowIndex, cells)
	if rerr != nil {
		return nil, rerr
	}

	return &models.ProviderProductionFact{
		TenantId:            tenantId,
		ProviderId:          providerId,
		FactDate:            parsed.date,
		Production:          parsed.value("production"),
		Collections:         parsed.value("collections"),
		ScheduledProduction: parsed.value("scheduled_production"),
	}, nil
}
