package router

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hrygo/secretary/plugin/ai/tool"
)

var fenceRe = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// Parse extracts a classification from raw model text. It tolerates surrounding prose,
// code fences, one missing closing brace and a bare intent object. It returns nil when
// no intent with an identifier can be recovered.
func Parse(raw string) *ClassificationResult {
	obj := extractObject(raw)
	if obj == nil {
		return nil
	}

	var items []any
	switch v := obj["intents"].(type) {
	case []any:
		items = v
	case map[string]any:
		items = []any{v}
	default:
		if _, ok := obj["intent"]; ok {
			items = []any{obj}
		}
	}

	result := &ClassificationResult{Source: SourceLLM}
	if s, ok := obj["reasoning"].(string); ok {
		result.Reasoning = s
	}
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if in, ok := normalizeIntent(m); ok {
			result.Intents = append(result.Intents, in)
		}
	}
	if len(result.Intents) == 0 {
		return nil
	}
	return result
}

func extractObject(raw string) map[string]any {
	text := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	} else if strings.HasPrefix(text, "```") {
		// Unterminated fence: drop the opening line.
		if _, rest, ok := strings.Cut(text, "\n"); ok {
			text = rest
		}
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil
	}
	if obj, ok := decodeObject(text[start:]); ok {
		return obj
	}
	tail := strings.TrimSpace(text[start:])
	if strings.Count(tail, "{")-strings.Count(tail, "}") == 1 {
		if obj, ok := decodeObject(tail + "}"); ok {
			return obj
		}
	}

	// The first brace may belong to the prose; try every later one.
	for i := start + 1; i < len(text); i++ {
		if text[i] == '{' {
			if obj, ok := decodeObject(text[i:]); ok {
				return obj
			}
		}
	}
	return nil
}

// decodeObject decodes the first JSON object in s, ignoring whatever follows it.
func decodeObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.NewDecoder(strings.NewReader(s)).Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func normalizeIntent(m map[string]any) (ClassifiedIntent, bool) {
	id, _ := m["intent"].(string)
	id = strings.TrimSpace(id)
	if id == "" {
		return ClassifiedIntent{}, false
	}

	in := ClassifiedIntent{Intent: id, Args: tool.Args{}}
	switch c := m["confidence"].(type) {
	case float64:
		in.Confidence = c
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(c), 64); err == nil {
			in.Confidence = f
		}
	}
	if math.IsNaN(in.Confidence) {
		in.Confidence = 0
	}
	in.Confidence = math.Max(0, math.Min(1, in.Confidence))

	data, ok := m["data"].(map[string]any)
	if !ok {
		data, _ = m["arguments"].(map[string]any)
	}
	for k, v := range data {
		in.Args[k] = v
	}
	return in, true
}
