package conversation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/breathebhutan/tashi/internal/types"
)

// ordinalDayRe matches day numbers written with ordinal suffixes, as found
// in scraped festival date text ("March 15th-17th").
var ordinalDayRe = regexp.MustCompile(`(\d{1,2})(?:st|nd|rd|th)`)

// rewriteFestivalDates appends a computed date suffix to each festival's
// display title. The corpus carries hard-coded years that go stale; the
// suffix replaces them with the festival's next upcoming occurrence relative
// to now and the user's travel month.
func rewriteFestivalDates(recs []types.Record, travelMonth string, now time.Time) []types.Record {
	rewritten := make([]types.Record, len(recs))
	copy(rewritten, recs)

	currentMonth := int(now.Month())
	travelNum, travelKnown := types.ParseMonth(travelMonth)

	for i := range rewritten {
		month, ok := monthFromText(rewritten[i].DatesText)
		if !ok {
			continue
		}

		year := now.Year()
		if month < currentMonth {
			year++
		} else if travelKnown && travelNum < currentMonth {
			// The user is planning past year-end; show next year's run.
			year++
		}

		var suffix string
		if days := dayRange(rewritten[i].DatesText); days != "" {
			suffix = fmt.Sprintf("(%s %s, %d)", types.MonthName(month), days, year)
		} else {
			suffix = fmt.Sprintf("(%s %d)", types.MonthName(month), year)
		}
		rewritten[i].Title = strings.TrimSpace(rewritten[i].Title) + " " + suffix
	}
	return rewritten
}

// monthFromText finds the first month name or abbreviation in free-form
// date text.
func monthFromText(text string) (int, bool) {
	lower := strings.ToLower(text)
	for i, name := range types.MonthNames {
		ln := strings.ToLower(name)
		if strings.Contains(lower, ln) || strings.Contains(lower, ln[:3]) {
			return i + 1, true
		}
	}
	return 0, false
}

// dayRange extracts up to two ordinal day numbers ("15th-17th" yields
// "15-17"); returns empty when the text carries no day numbers.
func dayRange(text string) string {
	matches := ordinalDayRe.FindAllStringSubmatch(text, 2)
	switch len(matches) {
	case 0:
		return ""
	case 1:
		return matches[0][1]
	default:
		return matches[0][1] + "-" + matches[1][1]
	}
}
