package models

import (
	"reflect"
	"testing"
	"time"
)

func TestYearMonthKeys(t *testing.T) {
	y, m := YearMonthKeys(time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC))
	if y != "2024" || m != "6" {
		t.Fatalf("got %q/%q", y, m)
	}
	y, m = YearMonthKeys(time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC))
	if y != "2023" || m != "12" {
		t.Fatalf("got %q/%q", y, m)
	}
}

func TestHQ(t *testing.T) {
	u := &User{}
	if u.HQ() != "HQ" {
		t.Fatalf("empty headquarters should display as HQ, got %q", u.HQ())
	}
	u.Headquarters = "Anandpur"
	if u.HQ() != "Anandpur" {
		t.Fatalf("got %q", u.HQ())
	}
}

func TestHasActivityOn(t *testing.T) {
	u := &User{Activities: map[string]map[string][]Activity{
		"2024": {"6": {{Date: "05/06/2024", ToVillage: "Gokul"}}},
	}}
	if !u.HasActivityOn("05/06/2024") {
		t.Fatal("expected activity on 05/06/2024")
	}
	if u.HasActivityOn("06/06/2024") {
		t.Fatal("unexpected activity on 06/06/2024")
	}
	if u.HasActivityOn("not a date") {
		t.Fatal("malformed date must not match")
	}
}

func TestSortActivitiesByDate(t *testing.T) {
	in := []Activity{
		{Date: "10/06/2024"},
		{Date: "02/06/2024"},
		{Date: "25/05/2024"},
	}
	got := SortActivitiesByDate(in)
	want := []string{"25/05/2024", "02/06/2024", "10/06/2024"}
	for i, w := range want {
		if got[i].Date != w {
			t.Fatalf("position %d: got %s, want %s", i, got[i].Date, w)
		}
	}
	// input untouched
	if !reflect.DeepEqual(in[0], Activity{Date: "10/06/2024"}) {
		t.Fatal("input slice was mutated")
	}
}
