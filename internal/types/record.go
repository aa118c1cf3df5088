package types

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Category identifies one of the travel corpora.
type Category string

const (
	CategoryTours       Category = "tours"
	CategoryFestivals   Category = "festivals"
	CategoryTrekking    Category = "trekking"
	CategoryItineraries Category = "itineraries"
)

// AllCategories returns every known corpus category in a stable order.
func AllCategories() []Category {
	return []Category{CategoryTours, CategoryFestivals, CategoryTrekking, CategoryItineraries}
}

// Valid reports whether c names a known corpus.
func (c Category) Valid() bool {
	switch c {
	case CategoryTours, CategoryFestivals, CategoryTrekking, CategoryItineraries:
		return true
	}
	return false
}

var digitsRe = regexp.MustCompile(`\d+`)

// Duration is a trip length as found in the corpus. The source data carries
// it either as free text ("7 days"), a bare day count, or an object with a
// "days" field; all three decode into the same normalized value.
type Duration struct {
	Text string
	Days int
}

// ParseDays extracts the first run of digits from a duration string.
// Returns 0 when no digits are present or the run does not fit an int.
func ParseDays(s string) int {
	m := digitsRe.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		d.Text = s
		d.Days = ParseDays(s)
		return nil
	case '{':
		var obj struct {
			Days int    `json:"days"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		d.Days = obj.Days
		d.Text = obj.Text
		return nil
	default:
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		d.Days = n
		return nil
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	if d.Text != "" {
		return json.Marshal(d.Text)
	}
	return json.Marshal(struct {
		Days int `json:"days"`
	}{Days: d.Days})
}

// String renders the duration for display, preferring the original text.
func (d Duration) String() string {
	if d.Text != "" {
		return d.Text
	}
	if d.Days == 1 {
		return "1 day"
	}
	if d.Days > 0 {
		return strconv.Itoa(d.Days) + " days"
	}
	return ""
}

// DateRange is an explicit availability window ("YYYY-MM-DD" bounds).
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ItineraryDay is one entry of a day-by-day plan.
type ItineraryDay struct {
	Day         string `json:"day,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Record is the normalized shape of a corpus item. The scraped sources are
// inconsistent (title vs name, description vs summary, several duration
// encodings); normalization happens once here, at decode time, so the rest
// of the engine never needs get-with-fallback access.
type Record struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Duration        Duration       `json:"duration,omitempty"`
	Highlights      []string       `json:"highlights,omitempty"`
	BestSeason      string         `json:"best_season,omitempty"`
	DatesText       string         `json:"dates_text,omitempty"`
	Dates           []DateRange    `json:"dates,omitempty"`
	DifficultyLevel string         `json:"difficulty_level,omitempty"`
	Itinerary       []ItineraryDay `json:"itinerary,omitempty"`

	// Source is the category a record came from; only set when categories
	// are unioned for custom trips.
	Source Category `json:"source,omitempty"`

	// Score is attached transiently during preference matching.
	Score int `json:"-"`
}

type recordAlias struct {
	ID              json.RawMessage `json:"id"`
	Title           string          `json:"title"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Summary         string          `json:"summary"`
	Duration        Duration        `json:"duration"`
	DurationDays    int             `json:"duration_days"`
	Highlights      []string        `json:"highlights"`
	BestSeason      json.RawMessage `json:"best_season"`
	Dates           json.RawMessage `json:"dates"`
	DatesText       string          `json:"dates_text"`
	DifficultyLevel string          `json:"difficulty_level"`
	DailyItinerary  []ItineraryDay  `json:"daily_itinerary"`
	Itinerary       []ItineraryDay  `json:"itinerary"`
	Source          Category        `json:"source"`
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var a recordAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	r.ID = decodeFlexibleString(a.ID)
	r.Title = a.Title
	if r.Title == "" {
		r.Title = a.Name
	}
	r.Description = a.Description
	if r.Description == "" {
		r.Description = a.Summary
	}
	r.Duration = a.Duration
	if r.Duration.Days == 0 && a.DurationDays > 0 {
		r.Duration.Days = a.DurationDays
	}
	r.Highlights = a.Highlights
	r.BestSeason = decodeSeason(a.BestSeason)
	r.DatesText, r.Dates = decodeDates(a.Dates)
	if r.DatesText == "" {
		r.DatesText = a.DatesText
	}
	r.DifficultyLevel = a.DifficultyLevel
	r.Itinerary = a.DailyItinerary
	if len(r.Itinerary) == 0 {
		r.Itinerary = a.Itinerary
	}
	r.Source = a.Source
	return nil
}

// decodeFlexibleString accepts string and numeric identifiers.
func decodeFlexibleString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	}
	return string(raw)
}

// decodeSeason flattens a season value (string or token list) into a single
// lowercase string for keyword matching.
func decodeSeason(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '[' {
		var tokens []string
		if json.Unmarshal(raw, &tokens) == nil {
			return strings.ToLower(strings.Join(tokens, ", "))
		}
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.ToLower(s)
	}
	return ""
}

// decodeDates accepts either free text ("March 15th-17th") or a list of
// structured ranges; list entries that are plain strings are folded into the
// text form.
func decodeDates(raw json.RawMessage) (string, []DateRange) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s, nil
		}
		return "", nil
	}
	var entries []json.RawMessage
	if json.Unmarshal(raw, &entries) != nil {
		return "", nil
	}
	var ranges []DateRange
	var texts []string
	for _, e := range entries {
		e = bytes.TrimSpace(e)
		if len(e) == 0 {
			continue
		}
		if e[0] == '"' {
			var s string
			if json.Unmarshal(e, &s) == nil {
				texts = append(texts, s)
			}
			continue
		}
		var dr DateRange
		if json.Unmarshal(e, &dr) == nil && (dr.Start != "" || dr.End != "") {
			ranges = append(ranges, dr)
		}
	}
	return strings.Join(texts, "; "), ranges
}
