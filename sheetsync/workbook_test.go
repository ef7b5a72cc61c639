package sheetsync

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbookBytes(t *testing.T, sheetRows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range sheetRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadWorkbook(t *testing.T) {
	buf := workbookBytes(t, [][]interface{}{
		{"Date", "Production", "Adjustments", "Write Offs"},
		{"2024-03-04", "5000", "250", "100"},
		{"", "", "", ""},
		{"2024-03-05", "4800"},
	})

	headers, rows, err := ReadWorkbook(buf)
	require.NoError(t, err)

	assert.Equal(t, []string{"Date", "Production", "Adjustments", "Write Offs"}, headers)
	require.Len(t, rows, 2, "the fully blank row is dropped")
	assert.Equal(t, []string{"2024-03-04", "5000", "250", "100"}, rows[0])
	// Trailing cells trimmed by the reader come back as blanks so every
	// row matches the header width.
	assert.Equal(t, []string{"2024-03-05", "4800", "", ""}, rows[1])
}

func TestReadWorkbookEmptySheet(t *testing.T) {
	buf := workbookBytes(t, nil)

	_, _, err := ReadWorkbook(buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestReadWorkbookBlankHeaderRow(t *testing.T) {
	buf := workbookBytes(t, [][]interface{}{
		{"", "", ""},
		{"2024-03-04", "5000", "250"},
	})

	_, _, err := ReadWorkbook(buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header")
}

func TestReadWorkbookRejectsNonWorkbook(t *testing.T) {
	_, _, err := ReadWorkbook(strings.NewReader("date,production\n2024-03-04,5000\n"))
	assert.Error(t, err)
}
