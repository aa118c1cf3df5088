package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/breathebhutan/tashi/internal/types"
)

// promptHistoryLimit bounds how many history entries are replayed into the
// prompt.
const promptHistoryLimit = 10

const systemPrompt = `You are Tashi, a helpful travel planning assistant for Breathe Bhutan, a boutique travel agency.
Your goal is to help users plan their ideal trip to Bhutan by understanding their preferences
and providing personalized recommendations.

Be friendly, knowledgeable about Bhutan's culture, festivals, trekking routes, and tourist attractions.
Provide concise but helpful responses. Use a conversational tone.`

// buildPrompt assembles system instructions, recent history, the current
// input, and state-specific guidance into a single prompt.
func buildPrompt(snap types.ConversationSnapshot, input string) string {
	var b strings.Builder

	b.WriteString(systemPrompt)
	b.WriteString("\n\nCurrent conversation state: ")
	b.WriteString(snap.State.String())
	b.WriteString("\nUser preferences so far: ")
	b.WriteString(preferencesJSON(snap.Preferences))
	b.WriteString("\n")

	history := snap.History
	if len(history) > promptHistoryLimit {
		history = history[len(history)-promptHistoryLimit:]
	}
	for _, entry := range history {
		if entry.UserMessage != "" {
			b.WriteString("\nUser: ")
			b.WriteString(entry.UserMessage)
		}
		if entry.AssistantMessage != "" {
			b.WriteString("\nTashi: ")
			b.WriteString(entry.AssistantMessage)
		}
	}

	if n := len(history); n == 0 || history[n-1].UserMessage != input {
		b.WriteString("\nUser: ")
		b.WriteString(input)
	}

	if guidance := stateGuidance(snap); guidance != "" {
		b.WriteString("\n\nGuidance: ")
		b.WriteString(guidance)
	}
	b.WriteString("\nTashi: ")

	return b.String()
}

func preferencesJSON(prefs types.Preferences) string {
	if prefs.IsZero() {
		return "None yet"
	}
	data, err := json.Marshal(prefs)
	if err != nil {
		return "None yet"
	}
	return string(data)
}

// stateGuidance steers the model toward the question the deterministic flow
// would ask in each state.
func stateGuidance(snap types.ConversationSnapshot) string {
	switch snap.State {
	case types.StateGreeting:
		return "The user is starting a conversation. Introduce yourself as Tashi, a travel assistant for Breathe Bhutan. Ask about what kind of trip they're interested in."
	case types.StateTripType:
		return "Ask the user what type of trip they're interested in (cultural tours, festivals, trekking, or a custom itinerary). Explain briefly what each option means."
	case types.StateDuration:
		tripType := string(snap.Preferences.TripType)
		if tripType == "" {
			tripType = "a trip"
		}
		return fmt.Sprintf("The user is interested in %s to Bhutan. Ask how many days they plan to stay and when they plan to visit.", tripType)
	case types.StateTravelDate:
		return fmt.Sprintf("The user is planning a %d day trip. Ask about their preferred travel dates or month.", snap.Preferences.DurationDays)
	case types.StateInterests:
		return fmt.Sprintf("The user wants to travel in %s. Ask about their specific interests in Bhutan (culture, spirituality, nature, photography, etc.).", snap.Preferences.TravelMonth)
	case types.StateRecommendations:
		return fmt.Sprintf("Based on preferences, offer these %d recommendations. Ask which one sounds most appealing.", len(snap.RecommendationTitles))
	case types.StateRecommendationDetails:
		return fmt.Sprintf("The user is interested in '%s'. Provide more details and ask if they want to proceed with this plan.", snap.SelectedTitle)
	case types.StateFinalization:
		return "The user has confirmed their interest. Ask for their name and email to finalize the booking."
	case types.StateCompleted:
		return "The trip is booked. Thank the user and let them know that Breathe Bhutan will contact them soon. They can also start over if they want to plan another trip."
	}
	return ""
}
