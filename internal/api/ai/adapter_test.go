package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breathebhutan/tashi/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeBackend struct {
	text       string
	err        error
	lastPrompt string
}

func (f *fakeBackend) GenerateContent(ctx context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	return f.text, f.err
}

func TestGenerateReturnsTrimmedText(t *testing.T) {
	backend := &fakeBackend{text: "  Kuzuzangpo! \n"}
	adapter := NewAdapter(backend, time.Second, testLogger())

	text, err := adapter.Generate(context.Background(), types.ConversationSnapshot{}, "hello")
	require.NoError(t, err)
	assert.Equal(t, "Kuzuzangpo!", text)
}

func TestGenerateBackendErrorIsUnavailable(t *testing.T) {
	backend := &fakeBackend{err: errors.New("quota exceeded")}
	adapter := NewAdapter(backend, time.Second, testLogger())

	_, err := adapter.Generate(context.Background(), types.ConversationSnapshot{}, "hello")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGenerateEmptyResponseIsUnavailable(t *testing.T) {
	backend := &fakeBackend{text: "   "}
	adapter := NewAdapter(backend, time.Second, testLogger())

	_, err := adapter.Generate(context.Background(), types.ConversationSnapshot{}, "hello")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewGeminiBackendRequiresKey(t *testing.T) {
	_, err := NewGeminiBackend(context.Background(), "", "gemini-2.0-flash", testLogger())
	assert.Error(t, err)
}

func TestBuildPromptContents(t *testing.T) {
	snap := types.ConversationSnapshot{
		State: types.StateInterests,
		Preferences: types.Preferences{
			TripType:     types.TripFestival,
			DurationDays: 7,
			TravelMonth:  "October",
		},
		History: []types.HistoryEntry{
			{UserMessage: "hi", AssistantMessage: "Hello! What kind of trip?"},
			{UserMessage: "festival", AssistantMessage: "How long will you stay?"},
		},
	}

	prompt := buildPrompt(snap, "7 days in October")

	assert.Contains(t, prompt, "You are Tashi")
	assert.Contains(t, prompt, "Current conversation state: INTERESTS")
	assert.Contains(t, prompt, `"trip_type":"festival"`)
	assert.Contains(t, prompt, "User: hi")
	assert.Contains(t, prompt, "Tashi: How long will you stay?")
	assert.Contains(t, prompt, "User: 7 days in October")
	assert.Contains(t, prompt, "Guidance: The user wants to travel in October.")
	assert.True(t, len(prompt) > 0 && prompt[len(prompt)-len("Tashi: "):] == "Tashi: ")
}

func TestBuildPromptEmptyPreferences(t *testing.T) {
	prompt := buildPrompt(types.ConversationSnapshot{State: types.StateGreeting}, "hello")
	assert.Contains(t, prompt, "User preferences so far: None yet")
	assert.Contains(t, prompt, "Introduce yourself as Tashi")
}

func TestBuildPromptBoundsHistory(t *testing.T) {
	snap := types.ConversationSnapshot{State: types.StateTripType}
	for i := 0; i < promptHistoryLimit+5; i++ {
		snap.History = append(snap.History, types.HistoryEntry{
			UserMessage:      "old message",
			AssistantMessage: "old reply",
		})
	}
	snap.History[0].UserMessage = "the very first message"

	prompt := buildPrompt(snap, "latest")
	assert.NotContains(t, prompt, "the very first message")
}

func TestBuildPromptSkipsDuplicateCurrentInput(t *testing.T) {
	snap := types.ConversationSnapshot{
		State: types.StateTripType,
		History: []types.HistoryEntry{
			{UserMessage: "festival please", AssistantMessage: ""},
		},
	}

	prompt := buildPrompt(snap, "festival please")
	assert.Equal(t, 1, countOccurrences(prompt, "User: festival please"))
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}
