package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/breathebhutan/tashi/internal/types"
)

func TestExtractTripType(t *testing.T) {
	tests := []struct {
		input    string
		expected types.TripType
	}{
		{"I want a cultural tour", types.TripCultural},
		{"something about Culture please", types.TripCultural},
		{"the festival season sounds great", types.TripFestival},
		{"a long trek", types.TripTrekking},
		{"hiking in the mountains", types.TripTrekking},
		{"adventure!", types.TripTrekking},
		{"surprise me", types.TripCustom},
		{"", types.TripCustom},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, extractTripType(tt.input), "input %q", tt.input)
	}
}

func TestExtractDuration(t *testing.T) {
	assert.Equal(t, 10, extractDuration("10 days please"))
	assert.Equal(t, 5, extractDuration("about 5"))
	assert.Equal(t, 7, extractDuration("a week or so"), "no number defaults to a week")
	assert.Equal(t, 7, extractDuration("0 days"), "zero falls back to the default")
}

func TestExtractDurationIsAlwaysPositive(t *testing.T) {
	inputs := []string{
		"",
		"a trip of 99999999999999999999 days",
		"000",
		"maybe later",
	}
	for _, input := range inputs {
		assert.Positive(t, extractDuration(input), "input %q", input)
	}
}

func TestExtractTravelMonth(t *testing.T) {
	now := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		input    string
		expected string
	}{
		{"I'd like to visit in October", "October"},
		{"sometime in dec", "December"},
		{"in the spring", "April"},
		{"summer works for us", "July"},
		{"autumn colours", "October"},
		{"fall", "October"},
		{"winter trip", "January"},
		{"whenever really", "June"}, // three months from March
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, extractTravelMonth(tt.input, now), "input %q", tt.input)
	}
}

func TestExtractTravelMonthDefaultWrapsYearEnd(t *testing.T) {
	now := time.Date(2026, time.November, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "February", extractTravelMonth("no idea yet", now))

	now = time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "December", extractTravelMonth("no idea yet", now))
}

func TestExtractDurationAndMonth(t *testing.T) {
	now := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	days, month := extractDurationAndMonth("7 days in October", now)
	assert.Equal(t, 7, days)
	assert.Equal(t, "October", month)
}

func TestExtractInterests(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "vocabulary matches",
			input:    "I love photography and buddhism, also the food",
			expected: []string{"buddhism", "photography", "food"},
		},
		{
			name:     "free words when nothing matches",
			input:    "birds and monasteries",
			expected: []string{"birds", "monasteries"},
		},
		{
			name:     "stop words excluded from free words",
			input:    "something like that would",
			expected: []string{"something"},
		},
		{
			name:     "default on empty reply",
			input:    "",
			expected: []string{"culture", "nature"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractInterests(tt.input))
		})
	}
}

func TestExtractContactInfo(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected types.ContactInfo
	}{
		{
			name:     "name before email",
			input:    "My name is john doe john.doe@example.com",
			expected: types.ContactInfo{Name: "John Doe", Email: "john.doe@example.com"},
		},
		{
			name:     "bare name and email",
			input:    "sonam wangmo sonam@travel.bt",
			expected: types.ContactInfo{Name: "Sonam Wangmo", Email: "sonam@travel.bt"},
		},
		{
			name:     "email only",
			input:    "hello@example.org",
			expected: types.ContactInfo{Name: "", Email: "hello@example.org"},
		},
		{
			name:     "no email",
			input:    "i'm karma",
			expected: types.ContactInfo{Name: "Karma", Email: ""},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractContactInfo(tt.input))
		})
	}
}

func TestExtractSelection(t *testing.T) {
	assert.Equal(t, 1, extractSelection("1", 5))
	assert.Equal(t, 3, extractSelection("option 3 looks great", 5))
	assert.Equal(t, 0, extractSelection("6", 5), "out of range")
	assert.Equal(t, 0, extractSelection("the first one", 5), "no digits")
	assert.Equal(t, 0, extractSelection("0", 5))
}

func TestAffirmativeNegativeRestart(t *testing.T) {
	assert.True(t, isAffirmative("Yes, let's do it"))
	assert.True(t, isAffirmative("sounds perfect"))
	assert.False(t, isAffirmative("hmm"))

	assert.True(t, isNegative("no thanks"))
	assert.True(t, isNegative("show me something different"))
	assert.False(t, isNegative("yes"))

	assert.True(t, isRestart("start over"))
	assert.True(t, isRestart("can we restart?"))
	assert.False(t, isRestart("more details please"))
}
