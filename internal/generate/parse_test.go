package generate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/ironskeleton/internal/models"
)

const goodPayload = `{
  "id": "gen_corridor",
  "text": "The corridor narrows.",
  "isEnd": false,
  "options": [
    {"id": 1, "text": "press on", "nextSceneId": "dynamic_await"},
    {"id": 2, "text": "turn back", "nextSceneId": "dynamic_await"}
  ],
  "reachedTargetAnchor": false,
  "statDelta": {"hp": -5}
}`

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"id": "x"}`, `{"id": "x"}`},
		{"json fence", "```json\n{\"id\": \"x\"}\n```", `{"id": "x"}`},
		{"plain fence", "```\n{\"id\": \"x\"}\n```", `{"id": "x"}`},
		{"surrounding prose", "Here is the scene:\n{\"id\": \"x\"}\nHope you like it!", `{"id": "x"}`},
		{"prose and fence", "Sure!\n```json\n{\"id\": \"x\"}\n```", `{"id": "x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestDecodeValidPayload(t *testing.T) {
	result, err := Decode(goodPayload)
	require.NoError(t, err)

	assert.Equal(t, "gen_corridor", result.ID)
	assert.Equal(t, "The corridor narrows.", result.Text)
	assert.False(t, result.IsEnd)
	assert.False(t, result.ReachedTargetAnchor)
	require.Len(t, result.Options, 2)
	assert.Equal(t, "dynamic_await", result.Options[0].NextSceneID)
	assert.Equal(t, -5, result.StatDelta[models.StatHP])
}

func TestDecodeFencedPayload(t *testing.T) {
	result, err := Decode("```json\n" + goodPayload + "\n```")
	require.NoError(t, err)
	assert.Equal(t, "gen_corridor", result.ID)
}

func TestDecodeReachedTargetAnchorDefaultsFalse(t *testing.T) {
	result, err := Decode(`{"id": "g", "text": "t", "isEnd": false, "options": []}`)
	require.NoError(t, err)
	assert.False(t, result.ReachedTargetAnchor)
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `the dragon wins`},
		{"missing id", `{"text": "t", "isEnd": false, "options": []}`},
		{"empty id", `{"id": "", "text": "t", "isEnd": false, "options": []}`},
		{"missing text", `{"id": "g", "isEnd": false, "options": []}`},
		{"missing isEnd", `{"id": "g", "text": "t", "options": []}`},
		{"missing options", `{"id": "g", "text": "t", "isEnd": false}`},
		{"options wrong type", `{"id": "g", "text": "t", "isEnd": false, "options": "go north"}`},
		{"isEnd wrong type", `{"id": "g", "text": "t", "isEnd": "no", "options": []}`},
		{"incomplete option", `{"id": "g", "text": "t", "isEnd": false, "options": [{"id": 1}]}`},
		{"duplicate option ids", `{"id": "g", "text": "t", "isEnd": false, "options": [
			{"id": 1, "text": "a", "nextSceneId": "x"},
			{"id": 1, "text": "b", "nextSceneId": "y"}]}`},
		{"unknown stat key", `{"id": "g", "text": "t", "isEnd": false, "options": [], "statDelta": {"luck": 3}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.payload)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrGenerationFailed), "error should wrap ErrGenerationFailed: %v", err)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	req := Request{
		WorldSummary: "A steampunk city over dead mana pools.",
		HistoryWindow: []models.HistoryEntry{
			{Input: "1", Output: "go north"},
		},
		Stats:      models.Player{HP: 80, Mana: 40, Bullets: 9, Credits: 50},
		LastInput:  "sneak past the echoes",
		TurnCount:  5,
		MaxTurns:   20,
		AnchorID:   "oasis",
		AnchorText: "A hidden oasis deep in the earth.",
	}

	prompt, err := BuildPrompt(req)
	require.NoError(t, err)

	assert.Contains(t, prompt, "A steampunk city over dead mana pools.")
	assert.Contains(t, prompt, "sneak past the echoes")
	assert.Contains(t, prompt, "A hidden oasis deep in the earth.")
	assert.Contains(t, prompt, "dynamic_await")
	assert.Contains(t, prompt, "reachedTargetAnchor")
}

func TestBuildPromptConclude(t *testing.T) {
	base := Request{LastInput: "keep going", TurnCount: 19, MaxTurns: 20}
	open, err := BuildPrompt(base)
	require.NoError(t, err)

	base.Conclude = true
	base.TurnCount = 20
	closing, err := BuildPrompt(base)
	require.NoError(t, err)

	assert.NotEqual(t, open, closing, "conclude must change the rendered prompt")
	assert.Contains(t, closing, `MUST set "isEnd" to true`)
}
