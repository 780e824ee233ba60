package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hrygo/secretary/plugin/ai/tool"
)

// NewHandoffTool declares a transfer tool. The runtime intercepts it by name through the
// handoff table; the callable only runs when the table lacks the entry.
func NewHandoffTool(name, target, description string) *tool.Tool {
	return tool.New(name, description, func(context.Context, tool.Scope, tool.Args) (tool.Result, error) {
		return tool.Reply("%s%s", HandoffMarker, target), nil
	})
}

// NewPlanTool lets the coordinator run several steps across agents.
func NewPlanTool() *tool.Tool {
	return tool.New("execute_multi_task",
		"Выполнить несколько действий подряд. Используй для составных запросов с 2+ действиями. "+
			`Каждый шаг: {"agent": "calendar_agent", "tool": "create_meeting", "params": {...}} или "agent.tool(param=value)". `+
			"Результат предыдущих шагов доступен как {{step_1_result}} и {{phone}}.",
		func(_ context.Context, _ tool.Scope, args tool.Args) (tool.Result, error) {
			steps := planSteps(args["steps"])
			if len(steps) == 0 {
				return tool.Failure("Не указаны шаги для выполнения"), nil
			}
			return tool.RunPlan{Steps: steps}, nil
		},
		tool.WithParam("steps", "array", "Массив шагов", true),
	)
}

func planSteps(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []string:
		steps := make([]any, len(s))
		for i, step := range s {
			steps[i] = step
		}
		return steps
	case string:
		s = strings.TrimSpace(s)
		var decoded []any
		if strings.HasPrefix(s, "[") && json.Unmarshal([]byte(s), &decoded) == nil {
			return decoded
		}
		var steps []any
		for _, line := range strings.Split(s, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				steps = append(steps, line)
			}
		}
		return steps
	}
	return nil
}

// NewSearchAndSaveTool finds a phone number on the web and stores it as a contact.
func NewSearchAndSaveTool() *tool.Tool {
	return tool.New("search_and_save",
		"Найти номер телефона организации или человека и сохранить его в контакты.",
		func(_ context.Context, _ tool.Scope, args tool.Args) (tool.Result, error) {
			query := args.String("query")
			name := args.String("name")
			if name == "" {
				name = query
			}
			return tool.SearchAndSave{Query: query, Name: name}, nil
		},
		tool.WithParam("query", "string", "Что искать, например: такси Алматы", true),
		tool.WithParam("name", "string", "Имя контакта для сохранения", false),
	)
}

// NewDelegateTool calls one tool of another agent and returns its result as the reply.
func NewDelegateTool() *tool.Tool {
	return tool.New("delegate",
		"Вызвать инструмент другого агента и вернуть его результат пользователю.",
		func(_ context.Context, _ tool.Scope, args tool.Args) (tool.Result, error) {
			params, _ := args["params"].(map[string]any)
			return tool.FollowUpCall{
				Agent: args.String("agent"),
				Tool:  args.String("tool"),
				Args:  tool.Args(params),
			}, nil
		},
		tool.WithParam("agent", "string", "Имя агента, например calendar_agent", true),
		tool.WithParam("tool", "string", "Имя инструмента", true),
		tool.WithParam("params", "object", "Параметры инструмента", false),
	)
}
