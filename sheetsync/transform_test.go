package sheetsync

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexdental/practice_backend/models"
)

func mustMapping(t *testing.T, recordType string, headers []string) FieldMapping {
	t.Helper()
	mapping, err := ResolveHeaders(recordType, headers)
	require.NoError(t, err)
	return mapping
}

func TestParseCurrencyForms(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1234.56", "1234.56"},
		{"$1,234.56", "1234.56"},
		{"(12.00)", "-12"},
		{"-$45.10", "-45.1"},
		{"($1,000.00)", "-1000"},
		{"0", "0"},
		{" 99 ", "99"},
	}
	for _, tc := range cases {
		got, err := parseCurrency(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)),
			"input %q: got %s want %s", tc.in, got, tc.want)
	}
}

func TestParseCurrencyRejectsGarbage(t *testing.T) {
	for _, in := range []string{"abc", "12..3", "$", "(12"} {
		_, err := parseCurrency(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseSheetDateFormats(t *testing.T) {
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-05", "03/05/2024", "3/5/2024", "03-05-2024", "2024/03/05"} {
		got, err := parseSheetDate(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	_, err := parseSheetDate("March 5, 2024")
	assert.Error(t, err)
}

func TestTransformFinancialRowComputesDerived(t *testing.T) {
	mapping := mustMapping(t, models.RecordTypeFinancial,
		[]string{"Date", "Production", "Adjustments", "Write Offs", "Patient Income", "Insurance Income", "Unearned Income"})

	fact, rerr := TransformFinancialRow(mapping, 1,
		[]string{"2024-03-05", "$5,000.00", "250.00", "100.00", "1,200.00", "2,300.00", "500.00"},
		"tenant-a", 7)
	require.Nil(t, rerr)

	assert.Equal(t, "tenant-a", fact.TenantId)
	assert.Equal(t, 7, fact.LocationId)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), fact.FactDate)
	// net = 5000 - 250 - 100, collections = 1200 + 2300 - 500
	assert.True(t, fact.NetProduction.Equal(decimal.NewFromInt(4650)), "net %s", fact.NetProduction)
	assert.True(t, fact.TotalCollections.Equal(decimal.NewFromInt(3000)), "collections %s", fact.TotalCollections)
}

func TestTransformFinancialRowBlankOptionalsAreZero(t *testing.T) {
	mapping := mustMapping(t, models.RecordTypeFinancial,
		[]string{"Date", "Production", "Adjustments"})

	fact, rerr := TransformFinancialRow(mapping, 1,
		[]string{"2024-03-05", "1000", ""}, "tenant-a", 7)
	require.Nil(t, rerr)
	assert.True(t, fact.Adjustments.IsZero())
	assert.True(t, fact.NetProduction.Equal(decimal.NewFromInt(1000)))
}

func TestTransformRowRequiredFieldMissing(t *testing.T) {
	mapping := mustMapping(t, models.RecordTypeFinancial, []string{"Date", "Production"})

	_, rerr := TransformFinancialRow(mapping, 3, []string{"2024-03-05", ""}, "tenant-a", 7)
	require.NotNil(t, rerr)
	assert.Equal(t, 3, rerr.Row)
	assert.Equal(t, "production", rerr.Field)
	assert.Equal(t, "required_field_missing", rerr.Code)
}

func TestTransformRowInvalidDate(t *testing.T) {
	mapping := mustMapping(t, models.RecordTypeFinancial, []string{"Date", "Production"})

	_, rerr := TransformFinancialRow(mapping, 2, []string{"not-a-date", "100"}, "tenant-a", 7)
	require.NotNil(t, rerr)
	assert.Equal(t, "invalid_date", rerr.Code)
	assert.Equal(t, "date", rerr.Field)
}

func TestTransformRowOutOfRange(t *testing.T) {
	mapping := mustMapping(t, models.RecordTypeHygiene,
		[]string{"Date", "Hours Worked", "Verified Production"})

	_, rerr := TransformHygieneRow(mapping, 4, []string{"2024-03-05", "25", "100"}, "tenant-a", 7)
	require.NotNil(t, rerr)
	assert.Equal(t, "out_of_range", rerr.Code)
	assert.Equal(t, "hours_worked", rerr.Field)

	_, rerr = TransformHygieneRow(mapping, 5, []string{"2024-03-05", "8", "-1"}, "tenant-a", 7)
	require.NotNil(t, rerr)
	assert.Equal(t, "out_of_range", rerr.Code)
	assert.Equal(t, "verified_production", rerr.Field)
}

func TestTransformHygieneRowVariance(t *testing.T) {
	mapping := mustMapping(t, models.RecordTypeHygiene,
		[]string{"Date", "Hours Worked", "Verified Production", "Goal Production"})

	// (177.12 - 779.03) / 779.03 * 100 = -77.2634... rounds to -77.26
	fact, rerr := TransformHygieneRow(mapping, 1,
		[]string{"03/05/2024", "5.49", "$177.12", "$779.03"}, "tenant-a", 7)
	require.Nil(t, rerr)
	require.NotNil(t, fact.VariancePct)
	assert.True(t, fact.VariancePct.Equal(decimal.RequireFromString("-77.26")),
		"variance %s", fact.VariancePct)
	assert.True(t, fact.HoursWorked.Equal(decimal.RequireFromString("5.49")))
}

func TestTransformHygieneRowZeroGoalNilVariance(t *testing.T) {
	mapping := mustMapping(t, models.RecordTypeHygiene,
		[]string{"Date", "Hours Worked", "Verified Production", "Goal Production"})

	fact, rerr := TransformHygieneRow(mapping, 1,
		[]string{"2024-03-05", "8", "250", "0"}, "tenant-a", 7)
	require.Nil(t, rerr)
	assert.Nil(t, fact.VariancePct)
}

func TestTransformProviderProductionRow(t *testing.T) {
	mapping := mustMapping(t, models.RecordTypeProviderProduction,
		[]string{"Date", "Production", "Collections", "Scheduled Production"})

	fact, rerr := TransformProviderProductionRow(mapping, 1,
		[]string{"2024-03-05", "1,500.00", "(200.00)", "1,800.00"}, "tenant-a", 11)
	require.Nil(t, rerr)
	assert.Equal(t, 11, fact.ProviderId)
	assert.True(t, fact.Production.Equal(decimal.NewFromInt(1500)))
	assert.True(t, fact.Collections.Equal(decimal.NewFromInt(-200)))
	assert.True(t, fact.ScheduledProduction.Equal(decimal.NewFromInt(1800)))
}

func TestTransformRowShortRow(t *testing.T) {
	// A row shorter than the header set treats missing trailing cells as blank.
	mapping := mustMapping(t, models.RecordTypeFinancial,
		[]string{"Date", "Production", "Adjustments"})

	fact, rerr := TransformFinancialRow(mapping, 1, []string{"2024-03-05", "1000"}, "tenant-a", 7)
	require.Nil(t, rerr)
	assert.True(t, fact.Adjustments.IsZero())
}
