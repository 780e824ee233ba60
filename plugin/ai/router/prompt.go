package router

import (
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/secretary/plugin/ai"
	"github.com/hrygo/secretary/plugin/ai/handler"
	"github.com/hrygo/secretary/plugin/ai/timeout"
)

// HistoryTurns is the number of trailing conversation turns shown to the model.
const HistoryTurns = 5

var weekdaysRu = []string{"воскресенье", "понедельник", "вторник", "среда", "четверг", "пятница", "суббота"}

// PromptInput is everything the context assembler combines into one instruction payload.
type PromptInput struct {
	Handlers      []handler.Handler
	History       []ai.Message
	MemoryContext string
	Now           time.Time
	Locale        string
}

// BuildSystemPrompt assembles the classification instruction. It is rebuilt for every call.
func BuildSystemPrompt(in *PromptInput) string {
	var b strings.Builder
	if in.Locale == "kz" {
		b.WriteString("Сіз кәсіпкердің жеке хатшысысыз. Пайдаланушы хабарламасынан барлық ниеттерді анықтаңыз.\n\n")
	} else {
		b.WriteString("Ты персональный секретарь предпринимателя. Определи все намерения в сообщении пользователя.\n\n")
	}

	fmt.Fprintf(&b, "Текущее время: %s (%s)\n\n", in.Now.Format("2006-01-02 15:04"), weekdaysRu[in.Now.Weekday()])

	b.WriteString("Доступные модули:\n")
	b.WriteString(handler.Catalog(in.Handlers, in.Locale))
	b.WriteString("- " + IntentRecall + ": вспомнить прошлую информацию, data: {\"query\": что вспомнить}\n\n")

	b.WriteString("Предыдущий диалог:\n")
	b.WriteString(formatHistory(in.History))
	b.WriteString("\n")

	if mc := strings.TrimSpace(in.MemoryContext); mc != "" {
		b.WriteString("Контекст из памяти:\n")
		b.WriteString(mc)
		b.WriteString("\n\n")
	}

	b.WriteString(`Формат ответа (только JSON):
{
  "reasoning": "<почему выделены эти намерения>",
  "intents": [
    {"intent": "<module_id>", "confidence": <0.0-1.0>, "data": { ... }}
  ]
}

Если в сообщении НЕСКОЛЬКО действий, добавь ВСЕ в массив intents в порядке упоминания.
Пример: "Заплатил Асхату 50к, завтра встреча" -> finance + meeting.
Если не можешь определить намерение: {"reasoning": "...", "intents": [{"intent": "unknown", "confidence": 0.0, "data": {}}]}`)
	return b.String()
}

func formatHistory(history []ai.Message) string {
	if len(history) > HistoryTurns {
		history = history[len(history)-HistoryTurns:]
	}
	if len(history) == 0 {
		return "(нет)\n"
	}
	var b strings.Builder
	for _, m := range history {
		who := "Пользователь"
		if m.Role == ai.RoleAssistant {
			who = "Ассистент"
		}
		fmt.Fprintf(&b, "%s: %s\n", who, truncate(m.Content, timeout.MaxTruncateLength))
	}
	return b.String()
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
