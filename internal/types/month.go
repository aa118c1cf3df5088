package types

import (
	"strconv"
	"strings"
)

// MonthNames are the twelve canonical month names used throughout the
// preference model; travel_month always holds one of these.
var MonthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// ParseMonth converts a month token to its 1-based number. It accepts a full
// name, a three-letter abbreviation, or a numeric string 1-12, all
// case-insensitively.
func ParseMonth(s string) (int, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, false
	}
	for i, name := range MonthNames {
		lower := strings.ToLower(name)
		if s == lower || s == lower[:3] {
			return i + 1, true
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 12 {
		return n, true
	}
	return 0, false
}

// MonthName returns the canonical name for a 1-based month number.
func MonthName(n int) string {
	if n < 1 || n > 12 {
		return ""
	}
	return MonthNames[n-1]
}
