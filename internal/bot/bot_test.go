package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breathebhutan/tashi/internal/types"
)

func TestToInlineKeyboard(t *testing.T) {
	choices := &types.ChoiceSet{Rows: [][]types.Choice{
		{
			{Label: "Cultural Tours", Value: "cultural"},
			{Label: "Festivals", Value: "festival"},
		},
		{{Label: "Start Over", Value: "start over"}},
	}}

	kb, ok := toInlineKeyboard(choices)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 2)
	require.Len(t, kb.InlineKeyboard[0], 2)

	btn := kb.InlineKeyboard[0][0]
	assert.Equal(t, "Cultural Tours", btn.Text)
	require.NotNil(t, btn.CallbackData)
	assert.Equal(t, "cultural", *btn.CallbackData)

	last := kb.InlineKeyboard[1][0]
	assert.Equal(t, "Start Over", last.Text)
}

func TestToInlineKeyboardEmpty(t *testing.T) {
	_, ok := toInlineKeyboard(nil)
	assert.False(t, ok)

	_, ok = toInlineKeyboard(&types.ChoiceSet{})
	assert.False(t, ok)
}
