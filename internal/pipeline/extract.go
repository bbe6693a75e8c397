package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"offerhub/internal"
)

// ExtractRows reads a spreadsheet into column-keyed raw rows. Only the
// first sheet of a workbook is read. The returned total counts every
// data row after the header, including blank ones that produce no
// RawRow, so skip accounting stays consistent.
func ExtractRows(path string) ([]internal.RawRow, int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return extractXLSX(path)
	case ".csv":
		return extractCSV(path)
	default:
		return nil, 0, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

func extractXLSX(path string) ([]internal.RawRow, int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, 0, fmt.Errorf("no sheets in %s", filepath.Base(path))
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, 0, err
	}
	return tableToRows(rows)
}

func extractCSV(path string) ([]internal.RawRow, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse file: %w", err)
	}
	return tableToRows(records)
}

func tableToRows(table [][]string) ([]internal.RawRow, int, error) {
	if len(table) == 0 {
		return nil, 0, nil
	}

	headers := make([]string, len(table[0]))
	for i, h := range table[0] {
		headers[i] = strings.TrimSpace(h)
	}

	totalRows := len(table) - 1
	out := make([]internal.RawRow, 0, totalRows)
	for _, cells := range table[1:] {
		row := internal.RawRow{}
		empty := true
		for i, cell := range cells {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			value := strings.TrimSpace(cell)
			if value != "" {
				empty = false
			}
			row[headers[i]] = value
		}
		if empty {
			continue
		}
		out = append(out, row)
	}

	return out, totalRows, nil
}
