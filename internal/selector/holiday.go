package selector

import (
	"fmt"
	"time"

	"github.com/krishd9895/multi-op-bot-v5/internal/models"
)

// SecondSaturday returns the date of the month's second Saturday: the first
// Saturday on or after the 1st, plus seven days.
func SecondSaturday(year int, m time.Month, loc *time.Location) time.Time {
	first := time.Date(year, m, 1, 0, 0, 0, 0, loc)
	offset := (int(time.Saturday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+7)
}

// GlobalHoliday reports whether t falls on a standing holiday that applies
// to every user, with its display reason.
func GlobalHoliday(t time.Time) (reason string, ok bool) {
	switch {
	case t.Weekday() == time.Sunday:
		return "Sunday", true
	case t.Weekday() == time.Saturday:
		second := SecondSaturday(t.Year(), t.Month(), t.Location())
		if sameDay(t, second) {
			return "Second Saturday", true
		}
	}
	return "", false
}

// UserHoliday looks t up in a user's declared holiday list.
func UserHoliday(holidays []models.Holiday, t time.Time) (desc string, ok bool) {
	for _, h := range holidays {
		d, err := time.Parse(models.DateLayout, h.Date)
		if err != nil {
			continue
		}
		if d.Day() == t.Day() && d.Month() == t.Month() && d.Year() == t.Year() {
			return h.Desc, true
		}
	}
	return "", false
}

// HolidayPurpose builds the purpose string for a holiday entry. The user's
// own description wins over the generic weekday reason.
func HolidayPurpose(holidays []models.Holiday, t time.Time) (string, bool) {
	if desc, ok := UserHoliday(holidays, t); ok {
		return fmt.Sprintf("Public holiday (%s)", desc), true
	}
	if reason, ok := GlobalHoliday(t); ok {
		return fmt.Sprintf("Public holiday (%s)", reason), true
	}
	return "", false
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
