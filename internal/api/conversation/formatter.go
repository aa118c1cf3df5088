package conversation

import (
	"fmt"
	"strings"

	"github.com/breathebhutan/tashi/internal/types"
)

// Canned dialogue texts. The assistant persona is "Tashi", the Breathe
// Bhutan planning bot.
const (
	welcomeMessage = "Hello! I'm Tashi, your personal travel assistant for planning your trip to Bhutan.\n" +
		"I can help you discover cultural tours, festivals, trekking options, and create custom itineraries.\n" +
		"What type of travel experience are you looking for?"

	tripTypePrompt = "What kind of experience are you looking for in Bhutan?\n\nPlease select one of the options below:"

	durationPrompt = "Great choice! How many days are you planning to stay in Bhutan, and when are you planning to visit? (Example: '7 days in October')"

	interestsPrompt = "What specific interests do you have for your trip to Bhutan? (e.g., culture, nature, hiking, spirituality, photography)"

	noRecommendationsMessage = "I couldn't find any recommendations matching your preferences. Let's try again with different preferences."

	invalidSelectionMessage = "Please select a recommendation by number (e.g., '1' for the first option), or say 'more' to see additional options."

	contactRequestMessage = "Great! I'll finalize your travel plan. Could you please provide your name and email so the Breathe Bhutan team can contact you?"

	finalizationMessage = "Thank you for planning your trip with me! I've sent your customized itinerary to the Breathe Bhutan team.\n" +
		"They will contact you shortly to finalize the details and answer any questions you may have."

	completedReminderMessage = "Your travel plan has been sent to the Breathe Bhutan team. If you'd like to plan another trip, just say 'start over'."

	confirmationQuestion = "Would you like to proceed with this travel plan?"

	apologyMessage = "I'm sorry, I didn't understand that. Could you please try again?"

	errorMessage = "I'm sorry, I encountered an error. Please try again or contact Breathe Bhutan directly."
)

// recommendationSummaryLimit caps how many candidates are summarized in the
// recommendation text; every candidate still gets a selection button.
const recommendationSummaryLimit = 5

func welcomeResponse() types.BotResponse {
	return types.BotResponse{Text: welcomeMessage}
}

func tripTypeResponse() types.BotResponse {
	return types.BotResponse{
		Text: tripTypePrompt,
		Choices: &types.ChoiceSet{Rows: [][]types.Choice{
			{{Label: "Cultural Tours", Value: "cultural"}},
			{{Label: "Festivals", Value: "festival"}},
			{{Label: "Trekking & Adventure", Value: "trekking"}},
			{{Label: "Custom Itinerary", Value: "custom"}},
		}},
	}
}

func durationResponse() types.BotResponse {
	return types.BotResponse{Text: durationPrompt}
}

func interestsResponse() types.BotResponse {
	return types.BotResponse{Text: interestsPrompt}
}

// recommendationsResponse renders the ranked candidates: a summary of the
// top few plus one selection button per candidate, two to a row, and a
// start-over escape hatch.
func recommendationsResponse(recs []types.Record) types.BotResponse {
	if len(recs) == 0 {
		return types.BotResponse{Text: noRecommendationsMessage}
	}

	var b strings.Builder
	b.WriteString("Based on your preferences, here are some recommendations for your trip to Bhutan:\n\n")
	for i, rec := range recs {
		if i == recommendationSummaryLimit {
			break
		}
		if d := rec.Duration.String(); d != "" {
			fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, rec.Title, d)
		} else {
			fmt.Fprintf(&b, "%d. %s\n", i+1, rec.Title)
		}
		if rec.Description != "" {
			fmt.Fprintf(&b, "   %s\n", summarize(rec.Description))
		}
		b.WriteString("\n")
	}
	b.WriteString("Which option interests you the most? Please select one:")

	choices := &types.ChoiceSet{}
	var row []types.Choice
	for i, rec := range recs {
		row = append(row, types.Choice{
			Label: fmt.Sprintf("%d. %s", i+1, rec.Title),
			Value: fmt.Sprintf("%d", i+1),
		})
		if len(row) == 2 {
			choices.Rows = append(choices.Rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		choices.Rows = append(choices.Rows, row)
	}
	choices.Rows = append(choices.Rows, []types.Choice{{Label: "Start Over", Value: "start over"}})

	return types.BotResponse{Text: b.String(), Choices: choices}
}

// detailsResponse renders the full view of a selected record with
// confirm/back/restart buttons.
func detailsResponse(rec types.Record) types.BotResponse {
	var b strings.Builder
	fmt.Fprintf(&b, "Here are the details for %s:\n\n", rec.Title)
	if d := rec.Duration.String(); d != "" {
		fmt.Fprintf(&b, "Duration: %s\n\n", d)
	}
	if rec.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n\n", rec.Description)
	}
	if rec.DifficultyLevel != "" {
		fmt.Fprintf(&b, "Difficulty: %s\n\n", rec.DifficultyLevel)
	}
	if len(rec.Highlights) > 0 {
		b.WriteString("Highlights:\n")
		for _, h := range rec.Highlights {
			fmt.Fprintf(&b, "• %s\n", h)
		}
		b.WriteString("\n")
	}
	if len(rec.Itinerary) > 0 {
		b.WriteString("Itinerary:\n")
		for _, day := range rec.Itinerary {
			switch {
			case day.Title != "" && day.Description != "":
				fmt.Fprintf(&b, "%s: %s\n", day.Title, day.Description)
			case day.Title != "":
				fmt.Fprintf(&b, "%s\n", day.Title)
			default:
				fmt.Fprintf(&b, "%s: %s\n", day.Day, day.Description)
			}
		}
		b.WriteString("\n")
	}
	b.WriteString(confirmationQuestion)

	return types.BotResponse{
		Text: b.String(),
		Choices: &types.ChoiceSet{Rows: [][]types.Choice{
			{
				{Label: "Yes, proceed with this plan", Value: "yes"},
				{Label: "No, show other options", Value: "no"},
			},
			{{Label: "Start Over", Value: "start over"}},
		}},
	}
}

func confirmationResponse() types.BotResponse {
	return types.BotResponse{
		Text: confirmationQuestion,
		Choices: &types.ChoiceSet{Rows: [][]types.Choice{
			{
				{Label: "Yes", Value: "yes"},
				{Label: "No", Value: "no"},
			},
		}},
	}
}

func contactRequestResponse() types.BotResponse {
	return types.BotResponse{Text: contactRequestMessage}
}

func finalizationResponse() types.BotResponse {
	return types.BotResponse{Text: finalizationMessage}
}

func completedReminderResponse() types.BotResponse {
	return types.BotResponse{Text: completedReminderMessage}
}

func invalidSelectionResponse(recs []types.Record) types.BotResponse {
	resp := recommendationsResponse(recs)
	resp.Text = invalidSelectionMessage
	return resp
}

func backToRecommendationsResponse(recs []types.Record) types.BotResponse {
	resp := recommendationsResponse(recs)
	resp.Text = "No problem! Let's look at other options.\n\n" + resp.Text
	return resp
}

func apologyResponse() types.BotResponse {
	return types.BotResponse{Text: apologyMessage}
}

// summarize truncates long descriptions for the list view.
func summarize(s string) string {
	const limit = 160
	if len(s) <= limit {
		return s
	}
	cut := strings.LastIndex(s[:limit], " ")
	if cut <= 0 {
		cut = limit
	}
	return s[:cut] + "..."
}
