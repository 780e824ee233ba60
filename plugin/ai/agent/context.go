package agent

import (
	"strings"

	"github.com/hrygo/secretary/plugin/ai"
)

// contextHistoryTurns bounds the history rendered into an agent turn.
const contextHistoryTurns = 100

// buildContext renders trailing history and the results of inter-agent calls made
// earlier in the same run, oldest first.
func buildContext(history []ai.Message, accumulated []string) string {
	if len(history) > contextHistoryTurns {
		history = history[len(history)-contextHistoryTurns:]
	}
	parts := make([]string, 0, len(history)+1)
	for _, m := range history {
		parts = append(parts, m.Role+": "+m.Content)
	}
	if len(accumulated) > 0 {
		parts = append(parts, "Previous results: "+strings.Join(accumulated, "; "))
	}
	return strings.Join(parts, "\n")
}
