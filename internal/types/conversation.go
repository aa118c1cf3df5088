package types

import (
	"fmt"
	"time"
)

// State is a position in the guided planning dialogue.
type State int

const (
	StateGreeting State = iota
	StateTripType
	StateDuration
	// StateTravelDate is kept for snapshots written before duration and
	// month were collected in a single turn; normal flow never enters it.
	StateTravelDate
	StateInterests
	StateRecommendations
	StateRecommendationDetails
	StateFinalization
	StateCompleted
)

var stateNames = map[State]string{
	StateGreeting:              "GREETING",
	StateTripType:              "TRIP_TYPE",
	StateDuration:              "DURATION",
	StateTravelDate:            "TRAVEL_DATE",
	StateInterests:             "INTERESTS",
	StateRecommendations:       "RECOMMENDATIONS",
	StateRecommendationDetails: "RECOMMENDATION_DETAILS",
	StateFinalization:          "FINALIZATION",
	StateCompleted:             "COMPLETED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ParseState resolves a serialized state name back to its value.
func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown conversation state %q", name)
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// TripType is the user's chosen kind of trip.
type TripType string

const (
	TripCultural TripType = "cultural"
	TripFestival TripType = "festival"
	TripTrekking TripType = "trekking"
	TripCustom   TripType = "custom"
)

// Category returns the corpus a trip type draws from. Custom trips draw from
// all categories and return false.
func (t TripType) Category() (Category, bool) {
	switch t {
	case TripCultural:
		return CategoryTours, true
	case TripFestival:
		return CategoryFestivals, true
	case TripTrekking:
		return CategoryTrekking, true
	}
	return "", false
}

// Preferences collects what the dialogue has learned about the trip so far.
type Preferences struct {
	TripType     TripType `json:"trip_type,omitempty"`
	DurationDays int      `json:"duration,omitempty"`
	TravelMonth  string   `json:"travel_month,omitempty"`
	Interests    []string `json:"interests,omitempty"`
}

// IsZero reports whether no preference has been captured yet.
func (p Preferences) IsZero() bool {
	return p.TripType == "" && p.DurationDays == 0 && p.TravelMonth == "" && len(p.Interests) == 0
}

// ContactInfo is the name/email pair collected during finalization.
type ContactInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// HistoryEntry is one exchange fragment; either side may be empty when the
// turn recorded only a user or only an assistant message.
type HistoryEntry struct {
	UserMessage      string `json:"user_message,omitempty"`
	AssistantMessage string `json:"assistant_message,omitempty"`
}

// MaxHistoryEntries bounds per-conversation history; it exists only to cap
// the generative adapter's context window.
const MaxHistoryEntries = 20

// Conversation is the full dialogue state for one user.
type Conversation struct {
	State                  State
	Preferences            Preferences
	Recommendations        []Record
	SelectedRecommendation *Record
	ContactInfo            ContactInfo
	MessageHistory         []HistoryEntry
	UpdatedAt              time.Time
}

// AppendHistory records an exchange fragment, evicting the oldest entries
// beyond MaxHistoryEntries.
func (c *Conversation) AppendHistory(userMessage, assistantMessage string) {
	c.MessageHistory = append(c.MessageHistory, HistoryEntry{
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
	})
	if n := len(c.MessageHistory); n > MaxHistoryEntries {
		c.MessageHistory = c.MessageHistory[n-MaxHistoryEntries:]
	}
}

// Snapshot produces the read-only view handed to the generative adapter.
func (c *Conversation) Snapshot() ConversationSnapshot {
	snap := ConversationSnapshot{
		State:       c.State,
		Preferences: c.Preferences,
		History:     append([]HistoryEntry(nil), c.MessageHistory...),
	}
	for _, rec := range c.Recommendations {
		snap.RecommendationTitles = append(snap.RecommendationTitles, rec.Title)
	}
	if c.SelectedRecommendation != nil {
		snap.SelectedTitle = c.SelectedRecommendation.Title
	}
	return snap
}

// ConversationSnapshot is an immutable view of a conversation used to seed
// generative prompts.
type ConversationSnapshot struct {
	State                State
	Preferences          Preferences
	History              []HistoryEntry
	RecommendationTitles []string
	SelectedTitle        string
}

// Choice is one labeled option offered to the user; Value is what the
// transport feeds back when it is tapped.
type Choice struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ChoiceSet is an ordered grid of choices.
type ChoiceSet struct {
	Rows [][]Choice `json:"rows"`
}

// BotResponse is a rendered dialogue turn. Transports render Choices as
// native controls; the text never embeds markup.
type BotResponse struct {
	Text    string     `json:"text"`
	Choices *ChoiceSet `json:"choices,omitempty"`
}
