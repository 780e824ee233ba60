package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/secretary/plugin/ai"
	"github.com/hrygo/secretary/plugin/ai/tool"
)

// MockLLM is a mock LLM service for testing.
type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) Chat(ctx context.Context, req *ai.ChatRequest) (*ai.ChatResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ai.ChatResponse), args.Error(1)
}

func newLLMAgent(llm ai.LLMService, tools ...*tool.Tool) *LLMAgent {
	return NewLLMAgent(llm, AgentConfig{
		Name:    "chief",
		Role:    "координатор",
		Prompts: map[string]string{"ru": "Ты секретарь.", "kz": "Сен хатшысың."},
	}, tools)
}

func TestLLMAgent_ToolCalls(t *testing.T) {
	llm := new(MockLLM)
	llm.On("Chat", mock.Anything, mock.Anything).Return(&ai.ChatResponse{
		ToolCalls: []ai.ToolCall{
			{ID: "1", Name: "create_meeting", Arguments: `{"title": "Встреча", "duration_minutes": "30"}`},
			{ID: "2", Name: "get_balance", Arguments: `not json`},
		},
	}, nil).Once()

	a := newLLMAgent(llm, NewHandoffTool("transfer_to_calendar", "calendar_agent", "Календарь"))
	resp, err := a.Run(context.Background(), &TurnInput{
		Message: "встреча завтра",
		Context: "user: привет",
		Scope:   tool.Scope{TenantID: "t", Locale: "kz"},
	})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, "create_meeting", resp.ToolCalls[0].Name)
	assert.Equal(t, "Встреча", resp.ToolCalls[0].Args["title"])
	assert.Equal(t, "30", resp.ToolCalls[0].Args["duration_minutes"])
	assert.Empty(t, resp.ToolCalls[1].Args)

	req := llm.Calls[0].Arguments.Get(1).(*ai.ChatRequest)
	assert.Equal(t, "Сен хатшысың.", req.System)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "Context:\nuser: привет\n\nUser: встреча завтра", req.Messages[0].Content)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "transfer_to_calendar", req.Tools[0].Name)
	llm.AssertExpectations(t)
}

func TestLLMAgent_TextAction(t *testing.T) {
	llm := new(MockLLM)
	llm.On("Chat", mock.Anything, mock.Anything).Return(&ai.ChatResponse{
		Text: "Thought: это про деньги\nAction: transfer_to_finance",
	}, nil).Once()
	llm.On("Chat", mock.Anything, mock.Anything).Return(&ai.ChatResponse{Text: "  Готово  "}, nil).Once()

	a := newLLMAgent(llm)
	resp, err := a.Run(context.Background(), &TurnInput{Message: "баланс"})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "transfer_to_finance", resp.ToolCalls[0].Name)

	resp, err = a.Run(context.Background(), &TurnInput{Message: "спасибо"})
	require.NoError(t, err)
	assert.Empty(t, resp.ToolCalls)
	assert.Equal(t, "Готово", resp.Content)

	req := llm.Calls[1].Arguments.Get(1).(*ai.ChatRequest)
	assert.Equal(t, "спасибо", req.Messages[0].Content)
	assert.Equal(t, "Ты секретарь.", req.System)
}

func TestLLMAgent_RetryWithoutTools(t *testing.T) {
	llm := new(MockLLM)
	llm.On("Chat", mock.Anything, mock.Anything).Return(nil, errors.New("tools unsupported")).Once()
	llm.On("Chat", mock.Anything, mock.Anything).Return(&ai.ChatResponse{Text: "Привет!"}, nil).Once()

	a := newLLMAgent(llm, NewDelegateTool())
	resp, err := a.Run(context.Background(), &TurnInput{Message: "привет"})
	require.NoError(t, err)
	assert.Equal(t, "Привет!", resp.Content)
	require.Len(t, llm.Calls, 2)
	assert.Nil(t, llm.Calls[1].Arguments.Get(1).(*ai.ChatRequest).Tools)
}

func TestLLMAgent_Errors(t *testing.T) {
	llm := new(MockLLM)
	llm.On("Chat", mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))

	_, err := newLLMAgent(llm).Run(context.Background(), &TurnInput{Message: "привет"})
	var agentErr *AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, "chief", agentErr.AgentName)
	assert.Len(t, llm.Calls, 1)

	resp, err := newLLMAgent(nil).Run(context.Background(), &TurnInput{Message: "привет"})
	require.NoError(t, err)
	assert.Equal(t, "ИИ-модель не настроена.", resp.Content)
}

func TestParseStep(t *testing.T) {
	tests := []struct {
		name   string
		raw    any
		want   tool.Step
		hasErr bool
	}{
		{
			name: "struct",
			raw:  tool.Step{Agent: "tasks_agent", Tool: "add_task"},
			want: tool.Step{Agent: "tasks_agent", Tool: "add_task", Params: tool.Args{}},
		},
		{
			name: "decoded json object",
			raw:  map[string]any{"agent": "finance_agent", "tool": "add_expense", "params": map[string]any{"amount": 500.0}},
			want: tool.Step{Agent: "finance_agent", Tool: "add_expense", Params: tool.Args{"amount": 500.0}},
		},
		{
			name: "json string",
			raw:  `{"agent": "calendar_agent", "tool": "create_meeting", "params": {"title": "Обед"}}`,
			want: tool.Step{Agent: "calendar_agent", Tool: "create_meeting", Params: tool.Args{"title": "Обед"}},
		},
		{
			name: "call form",
			raw:  `contacts_agent.create_contact(name="Асхат", phone='87011234567')`,
			want: tool.Step{Agent: "contacts_agent", Tool: "create_contact", Params: tool.Args{"name": "Асхат", "phone": "87011234567"}},
		},
		{
			name: "colon form",
			raw:  "finance:add_expense:amount=2000, category=такси",
			want: tool.Step{Agent: "finance", Tool: "add_expense", Params: tool.Args{"amount": "2000", "category": "такси"}},
		},
		{
			name: "colon form without params",
			raw:  "tasks_agent:get_all_tasks",
			want: tool.Step{Agent: "tasks_agent", Tool: "get_all_tasks", Params: tool.Args{}},
		},
		{name: "plain word", raw: "погода", hasErr: true},
		{name: "object without tool", raw: map[string]any{"agent": "tasks_agent"}, hasErr: true},
		{name: "number", raw: 42, hasErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStep(tt.raw)
			if tt.hasErr {
				assert.ErrorIs(t, err, ErrUnknownStepFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInjectContext(t *testing.T) {
	values := map[string]string{"phone": "+77011234567", "step_1_result": "Нашёл"}

	out := injectContext(tool.Args{"note": "{{step_1_result}}: {{phone}}", "other": "{{missing}}"}, values)
	assert.Equal(t, "Нашёл: +77011234567", out["note"])
	assert.Equal(t, "{{missing}}", out["other"])

	out = injectContext(tool.Args{"name": "Такси", "phone": ""}, values)
	assert.Equal(t, "+77011234567", out["phone"])

	// Absent phone params are not invented.
	out = injectContext(tool.Args{"name": "Такси"}, values)
	assert.NotContains(t, out, "phone")

	params := tool.Args{"phone": "{{phone}}"}
	injectContext(params, values)
	assert.Equal(t, "{{phone}}", params["phone"])
}

func TestExtractPhone(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Звоните: +7 (727) 355-55-55, круглосуточно", "+77273555555"},
		{"Номер 8 701 123 45 67", "87011234567"},
		{"Код 12345, телефон 87011234567", "87011234567"},
		{"Адрес: ул. Абая 150", ""},
		// Digits separated only by spaces form one run, so an adjacent house number is absorbed.
		{"Абая 150 8 (727) 123-45-67", "15087271234567"},
		{"Абая 150, 8 (727) 123-45-67", "87271234567"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractPhone(tt.text), tt.text)
	}
}

func TestResolver(t *testing.T) {
	calls := 0
	balance := tool.New("get_balance", "", func(context.Context, tool.Scope, tool.Args) (tool.Result, error) {
		calls++
		return tool.Reply("📊 Баланс: 0 ₸"), nil
	})
	dup := tool.New("create_contact", "", func(context.Context, tool.Scope, tool.Args) (tool.Result, error) {
		return nil, errors.New("UNIQUE constraint failed: contacts.phone")
	})
	finance := &scriptedAgent{name: "finance_agent", tools: []*tool.Tool{balance}}
	contacts := &scriptedAgent{name: "contacts_agent", tools: []*tool.Tool{dup}}

	r, err := NewResolver([]Agent{finance, contacts}, DefaultAgentAliases, DefaultToolAliases)
	require.NoError(t, err)

	a, err := r.Agent("Finance")
	require.NoError(t, err)
	assert.Equal(t, "finance_agent", a.Name())
	assert.Equal(t, []Agent{finance, contacts}, r.Agents())

	ctx := context.Background()
	assert.Equal(t, "📊 Баланс: 0 ₸", r.Call(ctx, testScope, "finance", "getBalance", nil))
	assert.Equal(t, 1, calls)

	assert.Equal(t, "❌ Агент 'weather_agent' не найден", r.Call(ctx, testScope, "weather_agent", "get_balance", nil))
	assert.Equal(t, "❌ Инструмент 'get_rates' не найден у агента 'finance_agent'", r.Call(ctx, testScope, "finance_agent", "get_rates", nil))
	assert.Equal(t, "❌ Такая запись уже существует", r.Call(ctx, testScope, "contacts", "create_contact", tool.Args{"phone": "+7701"}))

	_, err = r.Invoke(ctx, testScope, "finance_agent", "get_rates", nil)
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		class ErrorClass
		msg   string
	}{
		{
			name:  "missing parameters",
			err:   errors.Join(tool.ErrMissingParameters, errors.New("x")),
			class: ErrorClassPermanent,
		},
		{
			name:  "unique",
			err:   errors.New(`pq: duplicate key value violates unique constraint "contacts_pkey"`),
			class: ErrorClassConflict,
			msg:   "❌ Такая запись уже существует",
		},
		{
			name:  "not null",
			err:   errors.New("NOT NULL constraint failed: tasks.title"),
			class: ErrorClassPermanent,
			msg:   "❌ Не заполнены обязательные поля",
		},
		{
			name:  "timeout",
			err:   context.DeadlineExceeded,
			class: ErrorClassTransient,
			msg:   "❌ Сервис временно недоступен, попробуйте позже",
		},
		{
			name:  "other",
			err:   errors.New("boom"),
			class: ErrorClassPermanent,
			msg:   "❌ Ошибка: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ClassifyError("add_task", tt.err)
			assert.Equal(t, tt.class, c.Class)
			assert.True(t, tool.IsFailure(c.UserMessage))
			if tt.msg != "" {
				assert.Equal(t, tt.msg, c.UserMessage)
			}
			assert.ErrorIs(t, c, tt.err)
		})
	}

	_, err := tool.New("add_task", "", nil, tool.WithParam("title", "string", "", true)).
		Call(context.Background(), testScope, tool.Args{})
	assert.Equal(t, "❌ Неверные параметры для add_task: title", ClassifyError("add_task", err).UserMessage)
	assert.Nil(t, ClassifyError("add_task", nil))
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRun(2, false)
	m.RecordRun(10, true)
	m.RecordHandoff()
	m.RecordPlanStep(false)
	m.RecordPlanStep(true)
	m.RecordToolCall("add_task", false, 20*time.Millisecond)
	m.RecordToolCall("add_task", true, 40*time.Millisecond)

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.Runs)
	assert.Equal(t, 6.0, s.AvgHops)
	assert.Equal(t, int64(1), s.HopLimitReached)
	assert.Equal(t, int64(1), s.Handoffs)
	assert.Equal(t, int64(2), s.PlanSteps)
	assert.Equal(t, int64(1), s.PlanStepsFailed)
	assert.Equal(t, ToolStats{Calls: 2, Failures: 1, AvgLatencyMs: 30}, s.Tools["add_task"])
}
