package fileimport

import (
	"reflect"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestParseCSVVillages(t *testing.T) {
	csv := "Sl No,Village Name\n1,gokul\n2,RAMPUR\n3,Gokul\n4,/start\n5,\n6,new colony\n"
	table, err := Parse("villages.csv", []byte(csv))
	if err != nil {
		t.Fatal(err)
	}
	villages, skipped, err := Villages(table)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Gokul", "Rampur", "New Colony"}
	if !reflect.DeepEqual(villages, want) {
		t.Fatalf("villages = %v, want %v", villages, want)
	}
	if !reflect.DeepEqual(skipped, []string{"/start"}) {
		t.Fatalf("skipped = %v", skipped)
	}
}

func TestParseCSVNoVillageColumn(t *testing.T) {
	table, err := Parse("x.csv", []byte("Name,City\na,b\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := Villages(table); err == nil {
		t.Fatal("expected error for missing village column")
	}
}

func TestParseUnsupportedExtension(t *testing.T) {
	if _, err := Parse("x.pdf", []byte("data")); err != ErrUnsupported {
		t.Fatalf("err = %v", err)
	}
}

func TestHolidaysDateFormats(t *testing.T) {
	csv := "Date,Holiday\n" +
		"15/08/2024,Independence Day\n" +
		"02-10-2024,Gandhi Jayanti\n" +
		"25.12.2024,Christmas\n" +
		"2024-11-01,Kannada Rajyotsava\n" +
		"2024/01/26,Republic Day\n" +
		"15/08/2024,Duplicate\n" +
		"31-31-2024,Broken\n"
	table, err := Parse("holidays.csv", []byte(csv))
	if err != nil {
		t.Fatal(err)
	}
	holidays, skipped, err := Holidays(table)
	if err != nil {
		t.Fatal(err)
	}
	if len(holidays) != 5 {
		t.Fatalf("got %d holidays: %v", len(holidays), holidays)
	}
	wantDates := []string{"15/08/2024", "02/10/2024", "25/12/2024", "01/11/2024", "26/01/2024"}
	for i, w := range wantDates {
		if holidays[i].Date != w {
			t.Errorf("holiday %d date = %s, want %s", i, holidays[i].Date, w)
		}
	}
	if len(skipped) != 1 || skipped[0] != "31-31-2024" {
		t.Fatalf("skipped = %v", skipped)
	}
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetCellValue(sheet, "A1", "Village")
	f.SetCellValue(sheet, "A2", "gokul")
	f.SetCellValue(sheet, "A3", "rampur")
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	table, err := Parse("villages.xlsx", buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	villages, _, err := Villages(table)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Gokul", "Rampur"}
	if !reflect.DeepEqual(villages, want) {
		t.Fatalf("villages = %v, want %v", villages, want)
	}
}

func TestHolidaysNativeXLSXDateCells(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetCellValue(sheet, "A1", "Date")
	f.SetCellValue(sheet, "B1", "Holiday")
	f.SetCellValue(sheet, "A2", time.Date(2024, time.August, 15, 0, 0, 0, 0, time.UTC))
	f.SetCellValue(sheet, "B2", "Independence Day")
	f.SetCellValue(sheet, "A3", "02/10/2024")
	f.SetCellValue(sheet, "B3", "Gandhi Jayanti")
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	table, err := Parse("holidays.xlsx", buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	holidays, skipped, err := Holidays(table)
	if err != nil {
		t.Fatal(err)
	}
	if len(skipped) != 0 {
		t.Fatalf("skipped = %v", skipped)
	}
	if len(holidays) != 2 || holidays[0].Date != "15/08/2024" || holidays[1].Date != "02/10/2024" {
		t.Fatalf("holidays = %v", holidays)
	}
}

func TestParseEmptyFile(t *testing.T) {
	if _, err := Parse("x.csv", nil); err == nil {
		t.Fatal("expected error for empty file")
	}
}
