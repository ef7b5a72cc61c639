package sheetsync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexdental/practice_backend/models"
)

func TestResolveHeadersExactMatch(t *testing.T) {
	mapping, err := ResolveHeaders(models.RecordTypeFinancial,
		[]string{"Date", "Production", "Adjustments", "Write Offs"})
	require.NoError(t, err)
	assert.Equal(t, 0, mapping["date"])
	assert.Equal(t, 1, mapping["production"])
	assert.Equal(t, 2, mapping["adjustments"])
	assert.Equal(t, 3, mapping["write_offs"])
}

func TestResolveHeadersAliasesAndNoise(t *testing.T) {
	// Aliases, mixed case, punctuation and stray whitespace all resolve.
	mapping, err := ResolveHeaders(models.RecordTypeHygiene,
		[]string{"DOS", "  Hrs-Worked ", "Est. Production", "VERIFIED", "Daily Goal"})
	require.NoError(t, err)
	assert.Equal(t, 0, mapping["date"])
	assert.Equal(t, 1, mapping["hours_worked"])
	assert.Equal(t, 2, mapping["estimated_production"])
	assert.Equal(t, 3, mapping["verified_production"])
	assert.Equal(t, 4, mapping["goal_production"])
}

func TestResolveHeadersColumnOrderIndependent(t *testing.T) {
	mapping, err := ResolveHeaders(models.RecordTypeProviderProduction,
		[]string{"Collections", "Date", "Production"})
	require.NoError(t, err)
	assert.Equal(t, 1, mapping["date"])
	assert.Equal(t, 2, mapping["production"])
	assert.Equal(t, 0, mapping["collections"])
}

func TestResolveHeadersOptionalFieldAbsent(t *testing.T) {
	mapping, err := ResolveHeaders(models.RecordTypeFinancial,
		[]string{"Date", "Production"})
	require.NoError(t, err)
	_, present := mapping["adjustments"]
	assert.False(t, present)
}

func TestResolveHeadersMissingRequired(t *testing.T) {
	_, err := ResolveHeaders(models.RecordTypeHygiene,
		[]string{"Date", "Hours Worked"})
	require.Error(t, err)

	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, models.RecordTypeHygiene, resErr.RecordType)
	assert.Equal(t, []string{"verified_production"}, resErr.Missing)
}

func TestResolveHeadersReportsAllMissing(t *testing.T) {
	_, err := ResolveHeaders(models.RecordTypeFinancial, []string{"Notes"})
	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, []string{"date", "production"}, resErr.Missing)
}

func TestResolveHeadersUnknownRecordType(t *testing.T) {
	_, err := ResolveHeaders("perio", []string{"Date"})
	assert.Error(t, err)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "hrsworked", normalizeHeader("Hrs Worked"))
	assert.Equal(t, "hrsworked", normalizeHeader("hrs_worked"))
	assert.Equal(t, "hrsworked", normalizeHeader(" HRS-WORKED "))
	assert.Equal(t, "wo", normalizeHeader("W/O"))
}
