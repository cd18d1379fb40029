// Package selector holds the pure selection rules shared by the interactive
// flow and the fallback engine: which villages are still unvisited this
// month, which purposes to offer, and how the automatic entry picks both.
package selector

import (
	"math/rand"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/krishd9895/multi-op-bot-v5/internal/models"
)

const (
	purposeSowing   = "Attended this village to observe sowing operations"
	purposeHarvest  = "Attended this village to observe harvesting operations"
	purposeSeasonal = "Attended this village to observe seasonal and crop conditions"
)

// seasonalByMonth maps month number to the canonical purpose wordings
// offered for it.
var seasonalByMonth = map[time.Month][]string{
	time.January:   {purposeSowing, purposeSeasonal},
	time.February:  {purposeSowing, purposeSeasonal},
	time.March:     {purposeSeasonal},
	time.April:     {purposeHarvest, purposeSeasonal},
	time.May:       {purposeHarvest, purposeSeasonal},
	time.June:      {purposeSeasonal},
	time.July:      {purposeSowing, purposeSeasonal},
	time.August:    {purposeSowing, purposeSeasonal},
	time.September: {purposeSeasonal},
	time.October:   {purposeSowing, purposeHarvest, purposeSeasonal},
	time.November:  {purposeSowing, purposeSeasonal},
	time.December:  {purposeSeasonal},
}

// genericPurposes is the fallback when the seasonal table has no entry.
var genericPurposes = []string{"survey harvest", "seasonal conditions"}

var titleCaser = cases.Title(language.English)

// TitleCase normalizes a name the way village and headquarters values are
// stored: trimmed, each word capitalized.
func TitleCase(s string) string {
	return titleCaser.String(strings.TrimSpace(s))
}

// ValidVillage reports whether a raw name is acceptable as a village: not
// empty after trimming, not a command, and made of letters, digits and
// spaces only.
func ValidVillage(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "/") {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' {
			return false
		}
	}
	return true
}

// Seasonal returns the purpose wordings for a month.
func Seasonal(m time.Month) []string {
	if list, ok := seasonalByMonth[m]; ok {
		return list
	}
	return genericPurposes
}

// PurposeOptions is the candidate purpose set for a user and month: the
// user's custom labels in insertion order, then the seasonal items not
// already present. Deduplicated on exact string equality; the order is this
// package's own choice, the data carries none.
func PurposeOptions(custom []string, m time.Month) []string {
	seen := make(map[string]bool, len(custom))
	out := make([]string, 0, len(custom)+3)
	for _, c := range custom {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	for _, s := range Seasonal(m) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Covered returns the title-cased destinations recorded in acts, skipping
// empty destinations (holidays and office days).
func Covered(acts []models.Activity) map[string]bool {
	covered := make(map[string]bool)
	for _, a := range acts {
		if a.ToVillage != "" {
			covered[TitleCase(a.ToVillage)] = true
		}
	}
	return covered
}

// Available filters villages down to the ones not yet visited in the month
// acts belongs to, preserving the original order. Comparison is
// case-insensitive via title-case normalization.
func Available(villages []string, acts []models.Activity) []string {
	covered := Covered(acts)
	out := make([]string, 0, len(villages))
	for _, v := range villages {
		tv := TitleCase(v)
		if !covered[tv] {
			out = append(out, tv)
		}
	}
	return out
}

// FallbackVillage picks the destination for an automatic entry. Unvisited
// villages are preferred; once every village has been covered this month the
// pool resets to the full list, excluding the most recently visited village
// when that leaves at least one candidate. Returns false when the user has
// no villages at all.
func FallbackVillage(r *rand.Rand, villages []string, monthActs []models.Activity) (string, bool) {
	if len(villages) == 0 {
		return "", false
	}
	if avail := Available(villages, monthActs); len(avail) > 0 {
		return avail[r.Intn(len(avail))], true
	}

	pool := make([]string, len(villages))
	for i, v := range villages {
		pool[i] = TitleCase(v)
	}
	if len(monthActs) > 0 && len(pool) > 1 {
		sorted := models.SortActivitiesByDate(monthActs)
		last := TitleCase(sorted[len(sorted)-1].ToVillage)
		if last != "" {
			trimmed := make([]string, 0, len(pool))
			for _, v := range pool {
				if v != last {
					trimmed = append(trimmed, v)
				}
			}
			if len(trimmed) > 0 {
				pool = trimmed
			}
		}
	}
	return pool[r.Intn(len(pool))], true
}

// FallbackPurpose resolves the purpose for an automatic entry: the user's
// default purpose when set, otherwise a random seasonal pick for the month.
func FallbackPurpose(r *rand.Rand, u *models.User, m time.Month) (purpose string, userSet bool) {
	if u.DefaultPurpose != "" {
		return u.DefaultPurpose, true
	}
	opts := Seasonal(m)
	return opts[r.Intn(len(opts))], false
}
