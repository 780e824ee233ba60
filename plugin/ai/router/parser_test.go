package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoIntents = `{"reasoning": "payment and meeting", "intents": [
  {"intent": "finance", "confidence": 0.95, "data": {"type": "expense", "amount": 50000, "category": "такси"}},
  {"intent": "meeting", "confidence": 0.9, "data": {"action": "create", "title": "Встреча с Асхатом"}}
]}`

func TestParse_Recovers(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		intents []string
	}{
		{"plain", twoIntents, []string{"finance", "meeting"}},
		{"fenced", "```json\n" + twoIntents + "\n```", []string{"finance", "meeting"}},
		{"prose around", "Вот результат:\n" + twoIntents + "\nГотово.", []string{"finance", "meeting"}},
		{"unterminated fence", "```json\n" + twoIntents, []string{"finance", "meeting"}},
		{"single object", `{"intent": "task", "confidence": 0.8, "data": {"title": "отчёт"}}`, []string{"task"}},
		{"intents as object", `{"intents": {"intent": "task", "confidence": 0.8}}`, []string{"task"}},
		{"missing closing brace", `{"reasoning": "x", "intents": [{"intent": "finance", "confidence": 0.9, "data": {}}]`, []string{"finance"}},
		{"missing closing brace keeps every intent", `{"intents": [{"intent": "finance"}, {"intent": "task"}]`, []string{"finance", "task"}},
		{"brace in trailing prose", `Here you go: {"intents":[{"intent":"finance","confidence":0.9}]} (format was {intent})`, []string{"finance"}},
		{"brace in leading prose", `Format {intent, confidence}: {"intents":[{"intent":"meeting","confidence":0.7}]}`, []string{"meeting"}},
		{"drops intents without id", `{"intents": [{"confidence": 0.9}, {"intent": "  "}, {"intent": "meeting"}]}`, []string{"meeting"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.input)
			require.NotNil(t, result)
			assert.Equal(t, tt.intents, result.IntentIDs())
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, input := range []string{
		"",
		"I cannot help with that",
		"{",
		"{{{",
		`{"intents": []}`,
		`{"intents": [{"confidence": 1}]}`,
		`{"reasoning": "nothing"}`,
		"{\"intents\": [{\"intent\": \"finance\"",
	} {
		assert.Nil(t, Parse(input), input)
	}
}

func TestParse_Normalizes(t *testing.T) {
	result := Parse(`{"intents": [
		{"intent": "a"},
		{"intent": "b", "confidence": "0.6"},
		{"intent": "c", "confidence": 7},
		{"intent": "d", "confidence": -1, "arguments": {"x": 1}}
	]}`)
	require.NotNil(t, result)
	require.Len(t, result.Intents, 4)
	assert.Equal(t, 0.0, result.Intents[0].Confidence)
	assert.NotNil(t, result.Intents[0].Args)
	assert.Equal(t, 0.6, result.Intents[1].Confidence)
	assert.Equal(t, 1.0, result.Intents[2].Confidence)
	assert.Equal(t, 0.0, result.Intents[3].Confidence)
	assert.Equal(t, 1.0, result.Intents[3].Args["x"])
	assert.Equal(t, SourceLLM, result.Source)
}

func TestParse_Idempotent(t *testing.T) {
	first := Parse(twoIntents)
	second := Parse(twoIntents)
	require.NotNil(t, first)
	assert.Equal(t, first, second)
}

func TestParse_NeverPanicsOnTruncation(t *testing.T) {
	fenced := "```json\n" + twoIntents + "\n```"
	for i := 0; i <= len(fenced); i++ {
		assert.NotPanics(t, func() { _ = Parse(fenced[:i]) })
	}
}
