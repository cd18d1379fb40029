package models

import (
	"strconv"
	"time"
)

// DateLayout is the civil-date format used everywhere: activity dates,
// holiday dates and command arguments.
const DateLayout = "02/01/2006"

// Activity is one recorded tour entry. An empty ToVillage means the user
// stayed at headquarters (office work or a holiday).
type Activity struct {
	Date      string `bson:"date" json:"date"`
	From      string `bson:"from" json:"from"`
	ToVillage string `bson:"to_village" json:"to_village"`
	Purpose   string `bson:"purpose" json:"purpose"`
}

// Holiday is a user-declared public holiday.
type Holiday struct {
	Date string `bson:"date" json:"date"`
	Desc string `bson:"desc" json:"desc"`
}

// User is the persistent document for one telegram user. Activities are
// nested year -> month -> entries; the legacy flat list is migrated by the
// storage layer before any activity operation runs.
type User struct {
	UserID           int64                            `bson:"user_id"`
	Headquarters     string                           `bson:"headquarters,omitempty"`
	Role             string                           `bson:"role,omitempty"`
	Villages         []string                         `bson:"villages"`
	CustomActivities []string                         `bson:"custom_activities"`
	DefaultPurpose   string                           `bson:"default_purpose,omitempty"`
	PublicHolidays   []Holiday                        `bson:"public_holidays,omitempty"`
	Activities       map[string]map[string][]Activity `bson:"activities,omitempty"`
}

// HQ returns the headquarters for display, falling back to the literal "HQ"
// when the user never set one. The stored value stays absent.
func (u *User) HQ() string {
	if u.Headquarters == "" {
		return "HQ"
	}
	return u.Headquarters
}

// YearMonthKeys returns the map keys for a point in time: a 4-digit year and
// the month as "1".."12".
func YearMonthKeys(t time.Time) (year, month string) {
	return strconv.Itoa(t.Year()), strconv.Itoa(int(t.Month()))
}

// MonthActivities returns the recorded entries for a year/month key pair.
func (u *User) MonthActivities(year, month string) []Activity {
	if u.Activities == nil {
		return nil
	}
	return u.Activities[year][month]
}

// HasActivityOn reports whether an entry already exists for the given date.
func (u *User) HasActivityOn(date string) bool {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return false
	}
	y, m := YearMonthKeys(t)
	for _, act := range u.MonthActivities(y, m) {
		if act.Date == date {
			return true
		}
	}
	return false
}

// SortActivitiesByDate returns a copy ordered by parsed date, oldest first.
func SortActivitiesByDate(acts []Activity) []Activity {
	out := make([]Activity, len(acts))
	copy(out, acts)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && actBefore(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func actBefore(a, b Activity) bool {
	ta, errA := time.Parse(DateLayout, a.Date)
	tb, errB := time.Parse(DateLayout, b.Date)
	if errA != nil || errB != nil {
		return errA == nil
	}
	return ta.Before(tb)
}
