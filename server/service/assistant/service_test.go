package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/secretary/plugin/ai"
	"github.com/hrygo/secretary/plugin/ai/handler"
	"github.com/hrygo/secretary/plugin/ai/tool"
	"github.com/hrygo/secretary/store"
	storetest "github.com/hrygo/secretary/store/test"
)

var (
	testZone  = time.FixedZone("UTC+5", 5*3600)
	testNow   = time.Date(2026, 10, 15, 10, 0, 0, 0, testZone)
	testScope = tool.Scope{TenantID: "tenant-1", UserID: "user-1", Locale: "ru"}
)

// MockLLM is a mock implementation of ai.LLMService.
type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) Chat(ctx context.Context, req *ai.ChatRequest) (*ai.ChatResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*ai.ChatResponse)
	return resp, args.Error(1)
}

func newService(t *testing.T, s *store.Store, llm ai.LLMService) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Store:    s,
		LLM:      llm,
		Location: testZone,
		Now:      func() time.Time { return testNow },
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func chatRequest(llm *MockLLM, i int) *ai.ChatRequest {
	return llm.Calls[i].Arguments.Get(1).(*ai.ChatRequest)
}

func TestNewService_RequiresStore(t *testing.T) {
	_, err := NewService(Config{})
	assert.Error(t, err)
}

func TestRespond(t *testing.T) {
	ctx := context.Background()
	s := storetest.NewTestingStore(ctx, t)
	llm := &MockLLM{}
	llm.On("Chat", mock.Anything, mock.Anything).Return(&ai.ChatResponse{
		Text: `{"reasoning": "расход", "intents": [{"intent": "finance", "confidence": 0.9, "data": {"type": "expense", "amount": 2000, "category": "такси"}}]}`,
	}, nil).Once()
	llm.On("Chat", mock.Anything, mock.Anything).Return(&ai.ChatResponse{
		Text: `{"reasoning": "непонятно", "intents": [{"intent": "unknown", "confidence": 0.0, "data": {}}]}`,
	}, nil).Once()
	svc := newService(t, s, llm)

	reply, err := svc.Respond(ctx, &Input{Scope: testScope, Text: "такси 2000"})
	require.NoError(t, err)
	assert.Equal(t, "💸 Расход записан: 2 000 ₸ (такси)", reply.Text)
	assert.Equal(t, []string{"finance"}, reply.Intents)
	assert.Equal(t, []string{"💰 Финансы…"}, reply.Statuses)

	reply, err = svc.Respond(ctx, &Input{Scope: testScope, Text: "абракадабра"})
	require.NoError(t, err)
	assert.Equal(t, "Извините, я не понял запрос. Попробуйте сформулировать иначе.", reply.Text)
	assert.Empty(t, reply.Statuses)

	// The second classification sees the first exchange.
	system := chatRequest(llm, 1).System
	assert.Contains(t, system, "Пользователь: такси 2000")
	assert.Contains(t, system, "Ассистент: 💸 Расход записан: 2 000 ₸ (такси)")
	llm.AssertExpectations(t)
}

func TestRespond_DisabledModule(t *testing.T) {
	ctx := context.Background()
	s := storetest.NewTestingStore(ctx, t)
	require.NoError(t, s.SetModuleEnabled(ctx, testScope.TenantID, "finance", false))

	llm := &MockLLM{}
	llm.On("Chat", mock.Anything, mock.Anything).Return(&ai.ChatResponse{
		Text: `{"intents": [{"intent": "finance", "confidence": 0.9, "data": {"amount": 2000}}]}`,
	}, nil).Once()
	svc := newService(t, s, llm)

	reply, err := svc.Respond(ctx, &Input{Scope: testScope, Text: "такси 2000"})
	require.NoError(t, err)
	assert.Equal(t, "⚠️ Модуль «finance» не найден.", reply.Text)
	assert.NotContains(t, chatRequest(llm, 0).System, "- finance (")

	records, err := s.ListFinanceRecords(ctx, &store.FindFinanceRecord{TenantID: testScope.TenantID})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRespond_WithoutModel(t *testing.T) {
	ctx := context.Background()
	s := storetest.NewTestingStore(ctx, t)
	svc := newService(t, s, nil)

	reply, err := svc.Respond(ctx, &Input{Scope: testScope, Text: "абракадабра"})
	require.NoError(t, err)
	assert.Equal(t, []string{"unknown"}, reply.Intents)
	assert.Equal(t, "Извините, я не понял запрос. Попробуйте сформулировать иначе.", reply.Text)
}

func TestConverse_Handoff(t *testing.T) {
	ctx := context.Background()
	s := storetest.NewTestingStore(ctx, t)
	llm := &MockLLM{}
	llm.On("Chat", mock.Anything, mock.Anything).Return(&ai.ChatResponse{
		ToolCalls: []ai.ToolCall{{ID: "1", Name: "transfer_to_finance", Arguments: "{}"}},
	}, nil).Once()
	llm.On("Chat", mock.Anything, mock.Anything).Return(&ai.ChatResponse{
		ToolCalls: []ai.ToolCall{{ID: "2", Name: "add_transaction", Arguments: `{"type": "expense", "amount": 1500, "category": "кофе"}`}},
	}, nil).Once()
	svc := newService(t, s, llm)

	reply, err := svc.Converse(ctx, &Input{Scope: testScope, Text: "потратил 1500 на кофе"})
	require.NoError(t, err)
	assert.Equal(t, "💸 Расход записан: 1 500 ₸ (кофе)", reply.Text)
	assert.Equal(t, "finance_agent", reply.Agent)
	assert.Contains(t, reply.Statuses, "🔄 chief → finance_agent")

	coordinator := chatRequest(llm, 0)
	toolNames := make([]string, 0, len(coordinator.Tools))
	for _, spec := range coordinator.Tools {
		toolNames = append(toolNames, spec.Name)
	}
	assert.ElementsMatch(t, []string{
		"transfer_to_finance", "transfer_to_calendar", "transfer_to_tasks", "transfer_to_contacts", "transfer_to_knowledge",
		"execute_multi_task", "delegate", "search_and_save",
	}, toolNames)
	assert.Contains(t, coordinator.System, "- calendar_agent:")

	records, err := s.ListFinanceRecords(ctx, &store.FindFinanceRecord{TenantID: testScope.TenantID})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	messages, err := s.ListChatMessages(ctx, &store.FindChatMessage{TenantID: testScope.TenantID})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "finance_agent", messages[1].Intents)

	snap := svc.AgentMetrics()
	assert.Equal(t, int64(1), snap.Runs)
	assert.Equal(t, int64(1), snap.Handoffs)
}

func TestBuildRoster_SkipsMissingHandlers(t *testing.T) {
	ctx := context.Background()
	s := storetest.NewTestingStore(ctx, t)
	svc, err := NewService(Config{
		Store:    s,
		Handlers: []handler.Handler{handler.NewFinanceHandler(handler.Deps{Store: s})},
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	cfg := buildRoster(nil, svc.Registry(), 0)
	require.Len(t, cfg.Agents, 2)
	assert.Equal(t, CoordinatorName, cfg.Agents[0].Name())
	assert.Equal(t, "finance_agent", cfg.Agents[1].Name())
	assert.Equal(t, map[string]string{"transfer_to_finance": "finance_agent"}, cfg.Handoffs)
	assert.Empty(t, cfg.SearchAgent)

	var names []string
	for _, tl := range cfg.Agents[0].Tools() {
		names = append(names, tl.Name())
	}
	assert.Equal(t, []string{"transfer_to_finance", "execute_multi_task", "delegate"}, names)

	// Without a model every agent says so instead of failing.
	reply, err := svc.Converse(ctx, &Input{Scope: testScope, Text: "привет"})
	require.NoError(t, err)
	assert.Equal(t, "ИИ-модель не настроена.", reply.Text)
}
