// Package report builds the month exports: a plain CSV of recorded entries
// and a formatted tour-diary workbook covering every calendar day.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/krishd9895/multi-op-bot-v5/internal/models"
	"github.com/krishd9895/multi-op-bot-v5/internal/selector"
)

// MinTourDays is the monthly requirement the summary is measured against.
const MinTourDays = 20

// IsTourDay reports whether a destination counts toward the monthly tour
// total: at least two letters and not a leave entry.
func IsTourDay(toVillage string) bool {
	letters := 0
	for _, r := range toVillage {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= 2 && !strings.Contains(strings.ToLower(toVillage), "leave")
}

// TourDays counts the qualifying entries in a month.
func TourDays(acts []models.Activity) int {
	n := 0
	for _, a := range acts {
		if IsTourDay(a.ToVillage) {
			n++
		}
	}
	return n
}

// Summary renders the tour-day status line shown with the CSV export.
func Summary(month time.Month, year, tourDays int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *%s %d Tour Summary*\n", month, year)
	fmt.Fprintf(&b, "Tour Days: %d\n", tourDays)
	fmt.Fprintf(&b, "Required: %d\n", MinTourDays)
	if tourDays < MinTourDays {
		fmt.Fprintf(&b, "⚠️ Short by %d days", MinTourDays-tourDays)
	} else {
		b.WriteString("✅ Requirement met")
	}
	return b.String()
}

// CSV serializes one month of entries, one row per activity.
func CSV(acts []models.Activity) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"date", "from", "to_village", "purpose"}); err != nil {
		return nil, err
	}
	for _, a := range models.SortActivitiesByDate(acts) {
		if err := w.Write([]string{a.Date, a.From, a.ToVillage, a.Purpose}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WorkbookParams carries everything the formatted export needs.
type WorkbookParams struct {
	UserName     string
	Role         string
	Headquarters string
	Year         int
	Month        time.Month
	Activities   []models.Activity
	Holidays     []models.Holiday
	Loc          *time.Location
}

// WorkbookFilename names the exported file, e.g. TourDiary_June_2024.xlsx.
func WorkbookFilename(m time.Month, year int) string {
	return fmt.Sprintf("TourDiary_%s_%d.xlsx", m, year)
}

const sheetName = "Tour Diary"

// MonthlyWorkbook renders the formatted diary: a merged heading, one row per
// calendar day with holiday and blank placeholders for unrecorded days, and
// a tour-day summary line. Returns the workbook bytes and the tour count.
func MonthlyWorkbook(p WorkbookParams) ([]byte, int, error) {
	loc := p.Loc
	if loc == nil {
		loc = time.UTC
	}
	byDate := make(map[string]models.Activity, len(p.Activities))
	for _, a := range p.Activities {
		byDate[a.Date] = a
	}
	userHolidays := make(map[string]string, len(p.Holidays))
	for _, h := range p.Holidays {
		userHolidays[h.Date] = h.Desc
	}
	secondSat := selector.SecondSaturday(p.Year, p.Month, loc)

	f := excelize.NewFile()
	defer f.Close()
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, 0, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	if err := f.MergeCell(sheetName, "A1", "D1"); err != nil {
		return nil, 0, fmt.Errorf("merge heading: %w", err)
	}
	hq := p.Headquarters
	if hq == "" {
		hq = "HQ"
	}
	heading := fmt.Sprintf("TOUR DIARY OF %s, %s FOR THE MONTH OF %s-%d",
		strings.ToUpper(p.UserName), strings.ToUpper(hq),
		strings.ToUpper(p.Month.String()), p.Year)
	if p.Role != "" {
		heading = fmt.Sprintf("TOUR DIARY OF %s, %s, %s FOR THE MONTH OF %s-%d",
			strings.ToUpper(p.UserName), p.Role, strings.ToUpper(hq),
			strings.ToUpper(p.Month.String()), p.Year)
	}
	f.SetCellValue(sheetName, "A1", heading)

	headingStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 13},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, 0, err
	}
	f.SetCellStyle(sheetName, "A1", "D1", headingStyle)

	headers := []string{"Date", "From", "To", "Purpose of Journey"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		f.SetCellValue(sheetName, cell, h)
	}

	first := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	tourDays := 0
	row := 3
	for day := 1; day <= daysInMonth; day++ {
		d := time.Date(p.Year, p.Month, day, 0, 0, 0, 0, loc)
		key := d.Format(models.DateLayout)
		from := selector.TitleCase(hq)
		var to, purpose string
		switch {
		case hasDate(byDate, key):
			a := byDate[key]
			if a.From != "" {
				from = selector.TitleCase(a.From)
			}
			to = selector.TitleCase(a.ToVillage)
			purpose = a.Purpose
			if IsTourDay(to) {
				tourDays++
			}
		case d.Weekday() == time.Sunday:
			purpose = "Public holiday (Sunday)"
		case d.Day() == secondSat.Day():
			purpose = "Public holiday (Second Saturday)"
		case userHolidays[key] != "":
			purpose = fmt.Sprintf("Public holiday (%s)", userHolidays[key])
		}
		values := []any{d.Format("02-Jan-2006"), from, to, purpose}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheetName, cell, v)
		}
		row++
	}

	lastDataRow := row - 1
	summaryRow := row + 1
	if err := f.MergeCell(sheetName,
		fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("C%d", summaryRow)); err != nil {
		return nil, 0, fmt.Errorf("merge summary: %w", err)
	}
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryRow),
		fmt.Sprintf("No. of days toured in the month: %d", tourDays))
	summaryStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return nil, 0, err
	}
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", summaryRow),
		fmt.Sprintf("A%d", summaryRow), summaryStyle)

	thin := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	tableStyle, err := f.NewStyle(&excelize.Style{
		Border:    thin,
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, 0, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Border:    thin,
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, 0, err
	}
	f.SetCellStyle(sheetName, "A2", "D2", headerStyle)
	f.SetCellStyle(sheetName, "A3", fmt.Sprintf("D%d", lastDataRow), tableStyle)

	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "C", 18)
	f.SetColWidth(sheetName, "D", "D", 55)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), tourDays, nil
}

func hasDate(m map[string]models.Activity, key string) bool {
	_, ok := m[key]
	return ok
}
