package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/secretary/plugin/ai"
	"github.com/hrygo/secretary/plugin/ai/tool"
)

var testScope = tool.Scope{TenantID: "tenant-1", UserID: "user-1", Locale: "ru"}

// scriptedAgent replays canned responses; the last one repeats.
type scriptedAgent struct {
	name    string
	tools   []*tool.Tool
	replies []*Response
	turns   []*TurnInput
}

func (a *scriptedAgent) Name() string               { return a.name }
func (a *scriptedAgent) Role() string               { return "test agent" }
func (a *scriptedAgent) Instructions(string) string { return "" }
func (a *scriptedAgent) Tools() []*tool.Tool        { return a.tools }
func (a *scriptedAgent) Run(_ context.Context, in *TurnInput) (*Response, error) {
	a.turns = append(a.turns, in)
	if len(a.replies) == 0 {
		return &Response{}, nil
	}
	return a.replies[min(len(a.turns), len(a.replies))-1], nil
}

func call(name string, args tool.Args) *Response {
	return &Response{ToolCalls: []ToolCall{{Name: name, Args: args}}}
}

func text(s string) *Response {
	return &Response{Content: s}
}

type recordingTool struct {
	calls []tool.Args
}

func (r *recordingTool) tool(name, reply string) *tool.Tool {
	return tool.New(name, name, func(_ context.Context, _ tool.Scope, args tool.Args) (tool.Result, error) {
		r.calls = append(r.calls, args)
		return tool.Reply("%s", reply), nil
	})
}

func newRuntime(t *testing.T, agents ...Agent) *Runtime {
	t.Helper()
	handoffs := map[string]string{}
	for _, a := range agents {
		if short, ok := strings.CutSuffix(a.Name(), "_agent"); ok {
			handoffs["transfer_to_"+short] = a.Name()
		}
	}
	rt, err := NewRuntime(Config{
		Agents:        agents,
		Coordinator:   "chief",
		Handoffs:      handoffs,
		AgentAliases:  DefaultAgentAliases,
		ToolAliases:   DefaultToolAliases,
		SearchAgent:   "knowledge_agent",
		ContactsAgent: "contacts_agent",
	})
	require.NoError(t, err)
	return rt
}

func run(rt *Runtime, message string) *Result {
	return rt.Run(context.Background(), &RunInput{Message: message, Scope: testScope})
}

func TestNewRuntime_Validation(t *testing.T) {
	chief := &scriptedAgent{name: "chief"}

	_, err := NewRuntime(Config{Agents: []Agent{chief}, Coordinator: "boss"})
	assert.ErrorIs(t, err, ErrAgentNotFound)

	_, err = NewRuntime(Config{Agents: []Agent{chief}, Coordinator: "chief", Handoffs: map[string]string{"transfer_to_x": "x_agent"}})
	assert.ErrorIs(t, err, ErrAgentNotFound)

	_, err = NewRuntime(Config{Agents: []Agent{chief, &scriptedAgent{name: "chief"}}, Coordinator: "chief"})
	assert.Error(t, err)
}

func TestRuntime_HopLimit(t *testing.T) {
	loop := &scriptedAgent{name: "chief", replies: []*Response{call("transfer_to_chief", nil)}}
	rt, err := NewRuntime(Config{
		Agents:      []Agent{loop},
		Coordinator: "chief",
		Handoffs:    map[string]string{"transfer_to_chief": "chief"},
		MaxHops:     10,
	})
	require.NoError(t, err)

	res := run(rt, "привет")
	assert.Equal(t, HopLimitMessage, res.Reply)
	assert.ErrorIs(t, res.Err, ErrHopLimit)
	assert.Equal(t, 10, res.Hops)
	assert.Len(t, loop.turns, 10)

	snap := rt.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.HopLimitReached)
	assert.Equal(t, int64(10), snap.Handoffs)
}

func TestRuntime_Handoff(t *testing.T) {
	chief := &scriptedAgent{name: "chief", replies: []*Response{call("transfer_to_calendar", nil)}}
	calendar := &scriptedAgent{name: "calendar_agent", replies: []*Response{text("📅 Встреча создана")}}
	rt := newRuntime(t, chief, calendar)

	var statuses []string
	res := rt.Run(context.Background(), &RunInput{
		Message: "встреча завтра",
		History: []ai.Message{{Role: ai.RoleUser, Content: "привет"}, {Role: ai.RoleAssistant, Content: "здравствуйте"}},
		Scope:   testScope,
		Status:  func(s string) { statuses = append(statuses, s) },
	})
	assert.Equal(t, "📅 Встреча создана", res.Reply)
	assert.Equal(t, "calendar_agent", res.Agent)
	assert.Equal(t, 1, res.Hops)
	assert.NoError(t, res.Err)
	require.Len(t, calendar.turns, 1)
	assert.Equal(t, "user: привет\nassistant: здравствуйте", calendar.turns[0].Context)
	assert.Contains(t, statuses, "🔄 chief → calendar_agent")
}

func TestRuntime_TextualHandoff(t *testing.T) {
	chief := &scriptedAgent{name: "chief", replies: []*Response{text("Передаю финансисту. handoff:finance")}}
	finance := &scriptedAgent{name: "finance_agent", replies: []*Response{text("💰 Баланс: 0 ₸")}}
	rt := newRuntime(t, chief, finance)

	res := run(rt, "какой баланс")
	assert.Equal(t, "💰 Баланс: 0 ₸", res.Reply)
	assert.Equal(t, "finance_agent", res.Agent)

	// An unknown target is just text.
	chief.replies = []*Response{text("handoff:nobody")}
	chief.turns = nil
	res = run(rt, "какой баланс")
	assert.Equal(t, "handoff:nobody", res.Reply)
}

func TestRuntime_InterAgentCall(t *testing.T) {
	balance := &recordingTool{}
	finance := &scriptedAgent{name: "finance_agent", tools: []*tool.Tool{balance.tool("get_balance", "📊 Баланс: 100 ₸")}}
	chief := &scriptedAgent{name: "chief", replies: []*Response{
		call(CallAgentPrefix+"finance:getbalance", nil),
		text("Вот ваш баланс."),
	}}
	rt := newRuntime(t, chief, finance)

	res := run(rt, "баланс")
	assert.Equal(t, "Вот ваш баланс.\n\ngetbalance: 📊 Баланс: 100 ₸", res.Reply)
	assert.Equal(t, "chief", res.Agent)
	assert.Len(t, balance.calls, 1)
	require.Len(t, chief.turns, 2)
	assert.Contains(t, chief.turns[1].Context, "Previous results: getbalance: 📊 Баланс: 100 ₸")
}

func TestRuntime_LocalToolAndFollowUp(t *testing.T) {
	balance := &recordingTool{}
	finance := &scriptedAgent{name: "finance_agent", tools: []*tool.Tool{balance.tool("get_balance", "📊 Баланс: 5 ₸")}}
	chief := &scriptedAgent{name: "chief", tools: []*tool.Tool{NewDelegateTool()}, replies: []*Response{
		call("delegate", tool.Args{"agent": "finance_agent", "tool": "get_balance", "params": map[string]any{"period": "month"}}),
	}}
	rt := newRuntime(t, chief, finance)

	res := run(rt, "баланс за месяц")
	assert.Equal(t, "📊 Баланс: 5 ₸", res.Reply)
	require.Len(t, balance.calls, 1)
	assert.Equal(t, "month", balance.calls[0]["period"])

	chief.replies = []*Response{call("no_such_tool", nil)}
	res = run(rt, "что-то")
	assert.Equal(t, "❌ Инструмент 'no_such_tool' не найден у агента 'chief'", res.Reply)

	chief.replies = []*Response{call("delegate", tool.Args{"tool": "get_balance"})}
	res = run(rt, "что-то")
	assert.True(t, tool.IsFailure(res.Reply))
	assert.Contains(t, res.Reply, "agent")
}

func TestRuntime_SearchAndSave(t *testing.T) {
	contacts := &recordingTool{}
	contactsAgent := &scriptedAgent{name: "contacts_agent", tools: []*tool.Tool{contacts.tool("create_contact", "👥 Контакт сохранён")}}
	knowledge := &scriptedAgent{name: "knowledge_agent", replies: []*Response{text("Такси Алматы: +7 (727) 355-55-55, круглосуточно")}}
	chief := &scriptedAgent{name: "chief", tools: []*tool.Tool{NewSearchAndSaveTool()}, replies: []*Response{
		call("search_and_save", tool.Args{"query": "такси Алматы", "name": "Такси"}),
	}}
	rt := newRuntime(t, chief, contactsAgent, knowledge)

	res := run(rt, "найди номер такси и сохрани")
	assert.Equal(t, "🔍 Найдено: +77273555555\n\n👥 Контакт сохранён", res.Reply)
	require.Len(t, contacts.calls, 1)
	assert.Equal(t, "Такси", contacts.calls[0]["name"])
	assert.Equal(t, "+77273555555", contacts.calls[0]["phone"])
	assert.Equal(t, "Найди телефон такси Алматы", knowledge.turns[0].Message)

	knowledge.replies = []*Response{text("Ничего не нашёл")}
	res = run(rt, "найди номер такси и сохрани")
	assert.Equal(t, "🔍 Результат поиска:\nНичего не нашёл\n\n❌ Номер телефона не найден в результатах", res.Reply)
	assert.Len(t, contacts.calls, 1)
}

func TestRuntime_Plan(t *testing.T) {
	search := &recordingTool{}
	contacts := &recordingTool{}
	knowledge := &scriptedAgent{name: "knowledge_agent", tools: []*tool.Tool{search.tool("search", "Нашёл: +77011234567")}}
	contactsAgent := &scriptedAgent{name: "contacts_agent", tools: []*tool.Tool{contacts.tool("create_contact", "👥 Контакт сохранён")}}
	chief := &scriptedAgent{name: "chief", tools: []*tool.Tool{NewPlanTool()}, replies: []*Response{
		call("execute_multi_task", tool.Args{"steps": []any{
			map[string]any{"agent": "knowledge", "tool": "search", "params": map[string]any{"query": "Асхат"}},
			"contacts_agent.create_contact(name=Асхат, phone={{phone}})",
			"weather",
		}}),
	}}
	rt := newRuntime(t, chief, knowledge, contactsAgent)

	res := run(rt, "найди Асхата и сохрани")
	lines := strings.Split(res.Reply, "\n\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "✅ Шаг 1: Нашёл: +77011234567", lines[0])
	assert.Equal(t, "✅ Шаг 2: 👥 Контакт сохранён", lines[1])
	assert.Equal(t, "⚠️ Шаг 3: ❌ Неизвестный формат шага: weather", lines[2])

	require.Len(t, contacts.calls, 1)
	assert.Equal(t, "+77011234567", contacts.calls[0]["phone"])
	assert.Equal(t, "Асхат", contacts.calls[0]["name"])
}

func TestRuntime_PlanRetriesFailedStep(t *testing.T) {
	attempts := 0
	flaky := tool.New("add_task", "", func(context.Context, tool.Scope, tool.Args) (tool.Result, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("dial tcp: connection refused")
		}
		return tool.Reply("✅ Задача создана"), nil
	})
	tasks := &scriptedAgent{name: "tasks_agent", tools: []*tool.Tool{flaky}}
	broken := tool.New("get_balance", "", func(context.Context, tool.Scope, tool.Args) (tool.Result, error) {
		return tool.Failure("нет данных"), nil
	})
	finance := &scriptedAgent{name: "finance_agent", tools: []*tool.Tool{broken}}
	rt := newRuntime(t, &scriptedAgent{name: "chief"}, tasks, finance)

	out := rt.executePlan(context.Background(), testScope, []any{
		"finance:get_balance",
		`{"agent": "tasks_agent", "tool": "add_task", "params": {"title": "позвонить"}}`,
	}, nil)
	assert.Equal(t, "⚠️ Шаг 1: ❌ нет данных\n\n✅ Шаг 2: ✅ Задача создана", out)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, int64(1), rt.Metrics().Snapshot().PlanStepsFailed)

	assert.Equal(t, "❌ Не указаны шаги для выполнения", rt.executePlan(context.Background(), testScope, nil, nil))
}

func TestRuntime_PlanRetryNormalizesParams(t *testing.T) {
	var seen []tool.Args
	create := tool.New("create_contact", "", func(_ context.Context, _ tool.Scope, args tool.Args) (tool.Result, error) {
		seen = append(seen, args)
		if strings.Contains(args.String("phone"), " ") {
			return tool.Failure("неверный номер"), nil
		}
		return tool.Reply("👥 Контакт сохранён"), nil
	})
	contacts := &scriptedAgent{name: "contacts_agent", tools: []*tool.Tool{create}}
	rt := newRuntime(t, &scriptedAgent{name: "chief"}, contacts)

	out := rt.executePlan(context.Background(), testScope, []any{
		map[string]any{"agent": "contacts_agent", "tool": "create_contact", "params": map[string]any{
			"name": "  Асхат   Ким ", "phone": "+7 701 123 45 67", "note": "  ",
		}},
	}, nil)
	assert.Equal(t, "✅ Шаг 1: 👥 Контакт сохранён", out)
	require.Len(t, seen, 2)
	assert.Equal(t, "+7 701 123 45 67", seen[0]["phone"])
	assert.Equal(t, tool.Args{"name": "Асхат Ким", "phone": "+77011234567"}, seen[1])
}

func TestRecoverParams(t *testing.T) {
	in := tool.Args{"title": " отчёт\tза  месяц ", "amount": int64(5), "empty": "", "phone": "8 (701) 123-45-67"}
	out := recoverParams(in)
	assert.Equal(t, tool.Args{"title": "отчёт за месяц", "amount": int64(5), "phone": "87011234567"}, out)
	assert.Equal(t, "", in["empty"])
}

func TestRuntime_AgentFailure(t *testing.T) {
	rt := newRuntime(t, &failingAgent{})
	res := run(rt, "привет")
	assert.True(t, tool.IsFailure(res.Reply))
	assert.NoError(t, res.Err)
}

type failingAgent struct{ scriptedAgent }

func (*failingAgent) Name() string { return "chief" }
func (*failingAgent) Run(context.Context, *TurnInput) (*Response, error) {
	return nil, NewAgentError("chief", "chat", errors.New("quota"))
}
