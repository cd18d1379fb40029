package storage

import (
	"testing"

	"github.com/krishd9895/multi-op-bot-v5/internal/models"
)

func TestNestActivities(t *testing.T) {
	flat := []models.Activity{
		{Date: "05/06/2024", ToVillage: "Gokul", Purpose: "a"},
		{Date: "20/06/2024", ToVillage: "Rampur", Purpose: "b"},
		{Date: "01/07/2024", ToVillage: "Gokul", Purpose: "c"},
		{Date: "15/12/2023", ToVillage: "Sitapur", Purpose: "d"},
		{Date: "garbage", ToVillage: "X", Purpose: "skipped"},
	}
	nested, skipped := nestActivities(flat)

	if len(skipped) != 1 || skipped[0].Purpose != "skipped" {
		t.Fatalf("skipped = %v", skipped)
	}
	if got := len(nested["2024"]["6"]); got != 2 {
		t.Fatalf("2024/6 has %d entries", got)
	}
	if got := len(nested["2024"]["7"]); got != 1 {
		t.Fatalf("2024/7 has %d entries", got)
	}
	if got := nested["2023"]["12"][0].ToVillage; got != "Sitapur" {
		t.Fatalf("2023/12 destination = %q", got)
	}
	// in-month order preserved
	if nested["2024"]["6"][0].Date != "05/06/2024" || nested["2024"]["6"][1].Date != "20/06/2024" {
		t.Fatalf("order not preserved: %v", nested["2024"]["6"])
	}
}

func TestNestActivitiesEmpty(t *testing.T) {
	nested, skipped := nestActivities(nil)
	if len(nested) != 0 || len(skipped) != 0 {
		t.Fatalf("nested=%v skipped=%v", nested, skipped)
	}
}
