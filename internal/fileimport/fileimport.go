// Package fileimport parses uploaded village and holiday lists. Both .xlsx
// and .csv uploads decode into the same Table shape before extraction.
package fileimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/krishd9895/multi-op-bot-v5/internal/models"
	"github.com/krishd9895/multi-op-bot-v5/internal/selector"
)

// ErrUnsupported is returned for uploads that are neither .xlsx nor .csv.
var ErrUnsupported = errors.New("fileimport: unsupported file type, send .xlsx or .csv")

// Table is a parsed spreadsheet: the first row as headers, the rest as rows.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Parse decodes an uploaded document by file extension.
func Parse(filename string, data []byte) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return parseCSV(data)
	case ".xlsx":
		return parseXLSX(data)
	default:
		return nil, ErrUnsupported
	}
}

func parseCSV(data []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return tableFromRows(records)
}

func parseXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("fileimport: workbook has no sheets")
	}
	// Raw values keep native date cells as serial numbers instead of a
	// locale-formatted string, so parseHolidayDate can decode them.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return tableFromRows(rows)
}

func tableFromRows(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, errors.New("fileimport: file is empty")
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	return &Table{Headers: headers, Rows: rows[1:]}, nil
}

// columnIndex finds the first header containing the given word, case
// insensitively.
func (t *Table) columnIndex(word string) int {
	for i, h := range t.Headers {
		if strings.Contains(strings.ToLower(h), word) {
			return i
		}
	}
	return -1
}

func (t *Table) cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// Villages extracts the village column: names are validated, title-cased and
// deduplicated case-insensitively. Rejected values come back in skipped.
func Villages(t *Table) (villages, skipped []string, err error) {
	col := t.columnIndex("village")
	if col < 0 {
		return nil, nil, errors.New("fileimport: no column named like \"village\"")
	}
	seen := make(map[string]bool)
	for _, row := range t.Rows {
		raw := t.cell(row, col)
		if raw == "" {
			continue
		}
		if !selector.ValidVillage(raw) {
			skipped = append(skipped, raw)
			continue
		}
		name := selector.TitleCase(raw)
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		villages = append(villages, name)
	}
	if len(villages) == 0 {
		return nil, skipped, errors.New("fileimport: no valid villages found")
	}
	return villages, skipped, nil
}

// holidayDateLayouts are the accepted input formats; all normalize to the
// stored DD/MM/YYYY form.
var holidayDateLayouts = []string{
	models.DateLayout,
	"02-01-2006",
	"02.01.2006",
	"2006-01-02",
	"2006/01/02",
}

func parseHolidayDate(s string) (string, bool) {
	for _, layout := range holidayDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(models.DateLayout), true
		}
	}
	// Native xlsx date cells arrive as Excel serial numbers.
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil &&
			t.Year() >= 1900 && t.Year() <= 2200 {
			return t.Format(models.DateLayout), true
		}
	}
	return "", false
}

// Holidays extracts date/description pairs. Rows whose date matches none of
// the accepted formats are reported in skipped.
func Holidays(t *Table) (holidays []models.Holiday, skipped []string, err error) {
	dateCol := t.columnIndex("date")
	descCol := t.columnIndex("holiday")
	if dateCol < 0 || descCol < 0 {
		return nil, nil, errors.New("fileimport: need columns named like \"date\" and \"holiday\"")
	}
	seen := make(map[string]bool)
	for _, row := range t.Rows {
		rawDate := t.cell(row, dateCol)
		desc := t.cell(row, descCol)
		if rawDate == "" && desc == "" {
			continue
		}
		date, ok := parseHolidayDate(rawDate)
		if !ok || desc == "" {
			skipped = append(skipped, rawDate)
			continue
		}
		if seen[date] {
			continue
		}
		seen[date] = true
		holidays = append(holidays, models.Holiday{Date: date, Desc: desc})
	}
	if len(holidays) == 0 {
		return nil, skipped, errors.New("fileimport: no valid holidays found")
	}
	return holidays, skipped, nil
}
