package conversation

import (
	"regexp"
	"strings"
	"time"

	"github.com/breathebhutan/tashi/internal/types"
)

var (
	numberRe = regexp.MustCompile(`\d+`)
	emailRe  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// interestVocabulary is the fixed set of interest keywords recognized in
// free-form interest replies.
var interestVocabulary = []string{
	"culture", "history", "nature", "hiking", "trekking", "mountains",
	"spirituality", "buddhism", "temples", "dzongs", "festivals",
	"photography", "food", "local", "adventure", "relaxation",
}

// interestStopWords are common words excluded from the free-word fallback
// when no vocabulary keyword matched.
var interestStopWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true,
	"have": true, "would": true, "about": true, "like": true,
}

var affirmativeWords = []string{
	"yes", "yeah", "yep", "sure", "ok", "okay", "confirm", "good", "great", "perfect",
}

var negativeWords = []string{
	"no", "nope", "not", "don't", "dont", "other", "different", "another", "else",
}

var restartPhrases = []string{
	"start over", "restart", "reset", "new", "again", "begin", "another trip",
}

// contactPhrases are lead-ins stripped from the name portion of a contact
// reply before capitalization.
var contactPhrases = []string{
	"my name is", "i am", "this is", "i'm", "name:", "email:",
}

// extractTripType classifies a free-form reply into one of the four trip
// types. Anything without a clear keyword falls back to a custom trip.
func extractTripType(text string) types.TripType {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "cultural") || strings.Contains(lower, "culture"):
		return types.TripCultural
	case strings.Contains(lower, "festival"):
		return types.TripFestival
	case strings.Contains(lower, "trek") || strings.Contains(lower, "hiking") || strings.Contains(lower, "adventure"):
		return types.TripTrekking
	default:
		return types.TripCustom
	}
}

// extractDuration pulls the first number out of a reply; a reply without a
// usable number defaults to a week. The result is always positive.
func extractDuration(text string) int {
	if m := numberRe.FindString(text); m != "" {
		if n := types.ParseDays(m); n > 0 {
			return n
		}
	}
	return 7
}

// extractTravelMonth finds a month name (full or three-letter), then a
// season, then falls back to three months from now.
func extractTravelMonth(text string, now time.Time) string {
	lower := strings.ToLower(text)

	for _, name := range types.MonthNames {
		ln := strings.ToLower(name)
		if strings.Contains(lower, ln) || strings.Contains(lower, ln[:3]) {
			return name
		}
	}

	switch {
	case containsAny(lower, "spring"):
		return "April"
	case containsAny(lower, "summer"):
		return "July"
	case containsAny(lower, "fall", "autumn"):
		return "October"
	case containsAny(lower, "winter"):
		return "January"
	}

	target := (int(now.Month()) + 3) % 12
	if target == 0 {
		target = 12
	}
	return types.MonthName(target)
}

// extractDurationAndMonth handles the combined "7 days in October" style
// reply collected in a single turn.
func extractDurationAndMonth(text string, now time.Time) (int, string) {
	return extractDuration(text), extractTravelMonth(text, now)
}

// extractInterests matches the reply against the interest vocabulary. When
// nothing matches, words longer than three characters (minus stop words) are
// taken as-is; an empty result defaults to culture and nature.
func extractInterests(text string) []string {
	lower := strings.ToLower(text)

	var interests []string
	for _, interest := range interestVocabulary {
		if strings.Contains(lower, interest) {
			interests = append(interests, interest)
		}
	}

	if len(interests) == 0 {
		for _, word := range strings.Fields(lower) {
			if len(word) > 3 && !interestStopWords[word] {
				interests = append(interests, word)
			}
		}
	}

	if len(interests) == 0 {
		return []string{"culture", "nature"}
	}
	return interests
}

// extractContactInfo pulls an email address and a name out of a contact
// reply. The name is whatever precedes the email, cleaned of lead-in phrases
// and title-cased.
func extractContactInfo(text string) types.ContactInfo {
	email := emailRe.FindString(text)

	namePart := text
	if email != "" {
		namePart = strings.TrimSpace(strings.SplitN(text, email, 2)[0])
	}

	namePart = strings.ToLower(namePart)
	for _, phrase := range contactPhrases {
		namePart = strings.TrimSpace(strings.ReplaceAll(namePart, phrase, ""))
	}

	words := strings.Fields(namePart)
	for i, w := range words {
		words[i] = capitalize(w)
	}

	return types.ContactInfo{
		Name:  strings.Join(words, " "),
		Email: email,
	}
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}

// extractSelection resolves a reply to a 1-based recommendation index, or 0
// when the reply holds no valid number.
func extractSelection(text string, count int) int {
	m := numberRe.FindString(text)
	if m == "" {
		return 0
	}
	n := types.ParseDays(m)
	if n < 1 || n > count {
		return 0
	}
	return n
}

func isAffirmative(text string) bool {
	return containsAny(strings.ToLower(text), affirmativeWords...)
}

func isNegative(text string) bool {
	return containsAny(strings.ToLower(text), negativeWords...)
}

func isRestart(text string) bool {
	return containsAny(strings.ToLower(text), restartPhrases...)
}

func containsAny(lower string, tokens ...string) bool {
	for _, t := range tokens {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
