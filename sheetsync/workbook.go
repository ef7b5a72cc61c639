package sheetsync

import (
	"errors"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadWorkbook extracts the header row and data rows from the first sheet
// of an xlsx workbook. Trailing fully-blank rows are dropped; blank cells
// inside a row are kept so column positions stay aligned with the header.
func ReadWorkbook(r io.Reader) (headers []string, rows [][]string, err error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("workbook has no sheets")
	}

	allRows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, err
	}
	if len(allRows) == 0 {
		return nil, nil, errors.New("workbook sheet is empty")
	}

	headers = allRows[0]
	if len(headers) == 0 || allBlank(headers) {
		return nil, nil, errors.New("workbook header row is empty")
	}

	for _, row := range allRows[1:] {
		if allBlank(row) {
			continue
		}
		// GetRows trims trailing empty cells per row; pad back to the
		// header width so index-based field lookup works.
		for len(row) < len(headers) {
			row = append(row, "")
		}
		rows = append(rows, row)
	}

	return headers, rows, nil
}

func allBlank(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
