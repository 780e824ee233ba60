package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/secretary/plugin/ai"
	"github.com/hrygo/secretary/plugin/ai/handler"
	"github.com/hrygo/secretary/plugin/ai/memory"
	"github.com/hrygo/secretary/plugin/ai/router"
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

// spyHandler records invocations and runs an optional body inside the handler's unit of work.
type spyHandler struct {
	id    string
	calls []tool.Args
	body  func(ctx context.Context, req *handler.Request) (*handler.Outcome, error)
}

func (s *spyHandler) ID() string { return s.id }
func (s *spyHandler) Info() handler.Info {
	return handler.Info{ID: s.id, Name: "Spy " + s.id, Icon: "🕵"}
}
func (*spyHandler) Keywords() []string         { return nil }
func (*spyHandler) Describe(string) string     { return "spy" }
func (*spyHandler) Tools() []*tool.Tool        { return nil }
func (s *spyHandler) Process(ctx context.Context, req *handler.Request) (*handler.Outcome, error) {
	s.calls = append(s.calls, req.Args)
	if s.body != nil {
		return s.body(ctx, req)
	}
	return &handler.Outcome{Success: true, Message: s.id + " done"}, nil
}

func newExecutor(t *testing.T, s *store.Store, llm ai.LLMService, handlers ...handler.Handler) (*Executor, *memory.Service) {
	t.Helper()
	registry, err := handler.NewRegistry(nil, handlers...)
	require.NoError(t, err)
	mem := memory.NewService(s, nil, 10)
	t.Cleanup(mem.Close)
	return New(Config{Store: s, Registry: registry, Memory: mem, History: mem, LLM: llm}), mem
}

func classified(intents ...router.ClassifiedIntent) *router.ClassificationResult {
	return &router.ClassificationResult{Intents: intents, Source: router.SourceLLM}
}

func TestExecute_ConfidenceGate(t *testing.T) {
	s := storetest.NewTestingStore(context.Background(), t)
	spy := &spyHandler{id: "finance"}
	recallSpy := &spyHandler{id: "schedule_meeting"}
	e, _ := newExecutor(t, s, nil, spy, recallSpy)

	res := e.Execute(context.Background(), &Request{
		Scope:   testScope,
		Message: "что-то",
		Classification: classified(
			router.ClassifiedIntent{Intent: "finance", Confidence: 0.29},
			router.ClassifiedIntent{Intent: "schedule_meeting", Confidence: 0.45},
		),
	})
	assert.Empty(t, spy.calls)
	assert.Empty(t, recallSpy.calls)
	assert.Empty(t, res.Executed)
	assert.Equal(t, notUnderstood("ru"), res.Reply)

	res = e.Execute(context.Background(), &Request{
		Scope:          testScope,
		Message:        "что-то",
		Classification: classified(router.ClassifiedIntent{Intent: "finance", Confidence: 0.3, Args: tool.Args{"amount": 5}}),
		MemoryContext:  "старый контекст",
	})
	require.Len(t, spy.calls, 1)
	assert.Equal(t, "finance done", res.Reply)
	assert.Equal(t, "что-то", spy.calls[0]["original_message"])
	assert.Equal(t, "старый контекст", spy.calls[0]["rag_context"])
	assert.Equal(t, 5, spy.calls[0]["amount"])
}

func TestExecute_BatchIsolation(t *testing.T) {
	ctx := context.Background()
	s := storetest.NewTestingStore(ctx, t)

	failing := &spyHandler{id: "finance", body: func(ctx context.Context, req *handler.Request) (*handler.Outcome, error) {
		_, err := req.Queries.CreateFinanceRecord(ctx, &store.FinanceRecord{
			UID: "partial", TenantID: req.Scope.TenantID, Type: store.FinanceTypeExpense, Amount: 1, Category: "x",
		})
		require.NoError(t, err)
		return nil, errors.New("boom")
	}}
	var seen int
	reader := &spyHandler{id: "task", body: func(ctx context.Context, req *handler.Request) (*handler.Outcome, error) {
		records, err := req.Queries.ListFinanceRecords(ctx, &store.FindFinanceRecord{TenantID: req.Scope.TenantID})
		if err != nil {
			return nil, err
		}
		seen = len(records)
		return &handler.Outcome{Success: true, Message: "task done"}, nil
	}}
	e, _ := newExecutor(t, s, nil, failing, reader)

	res := e.Execute(ctx, &Request{
		Scope:   testScope,
		Message: "два дела",
		Classification: classified(
			router.ClassifiedIntent{Intent: "finance", Confidence: 0.9},
			router.ClassifiedIntent{Intent: "task", Confidence: 0.9},
		),
	})
	assert.Equal(t, "⚠️ Не удалось выполнить: Spy finance\n\ntask done", res.Reply)
	assert.Equal(t, []string{"finance", "task"}, res.Executed)
	assert.Zero(t, seen)

	records, err := s.ListFinanceRecords(ctx, &store.FindFinanceRecord{TenantID: testScope.TenantID})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExecute_DeclinedOutcomeRollsBack(t *testing.T) {
	ctx := context.Background()
	s := storetest.NewTestingStore(ctx, t)

	declining := &spyHandler{id: "finance", body: func(ctx context.Context, req *handler.Request) (*handler.Outcome, error) {
		_, err := req.Queries.CreateFinanceRecord(ctx, &store.FinanceRecord{
			UID: "half", TenantID: req.Scope.TenantID, Type: store.FinanceTypeExpense, Amount: 1, Category: "x",
		})
		require.NoError(t, err)
		return &handler.Outcome{Success: false, Message: "Укажите сумму"}, nil
	}}
	e, _ := newExecutor(t, s, nil, declining)

	res := e.Execute(ctx, &Request{
		Scope:          testScope,
		Message:        "заплатил",
		Classification: classified(router.ClassifiedIntent{Intent: "finance", Confidence: 0.9}),
	})
	assert.Equal(t, "Укажите сумму", res.Reply)

	records, err := s.ListFinanceRecords(ctx, &store.FindFinanceRecord{TenantID: testScope.TenantID})
	require.NoError(t, err)
	assert.Empty(t, records)
}

// wrappingStore annotates every error returned from a unit of work.
type wrappingStore struct {
	*store.Store
}

func (w wrappingStore) RunInTx(ctx context.Context, fn func(q store.Queries) error) error {
	if err := w.Store.RunInTx(ctx, fn); err != nil {
		return fmt.Errorf("unit of work: %w", err)
	}
	return nil
}

func TestExecute_DeclinedOutcomeSurvivesWrappedErrors(t *testing.T) {
	ctx := context.Background()
	s := storetest.NewTestingStore(ctx, t)
	declining := &spyHandler{id: "finance", body: func(context.Context, *handler.Request) (*handler.Outcome, error) {
		return &handler.Outcome{Success: false, Message: "Укажите сумму"}, nil
	}}
	registry, err := handler.NewRegistry(nil, declining)
	require.NoError(t, err)
	e := New(Config{Store: wrappingStore{s}, Registry: registry})

	res := e.Execute(ctx, &Request{
		Scope:          testScope,
		Message:        "заплатил",
		Classification: classified(router.ClassifiedIntent{Intent: "finance", Confidence: 0.9}),
	})
	assert.Equal(t, "Укажите сумму", res.Reply)
}

func TestExecute_ReservedAndUnresolvedIntents(t *testing.T) {
	ctx := context.Background()
	s := storetest.NewTestingStore(ctx, t)
	disabled := &spyHandler{id: "task"}
	e, _ := newExecutor(t, s, nil, &spyHandler{id: "finance"}, disabled)

	res := e.Execute(ctx, &Request{
		Scope:   testScope,
		Message: "удали встречу и сделай что-нибудь",
		Classification: classified(
			router.ClassifiedIntent{Intent: router.IntentCancelMeeting, Confidence: 0.9},
			router.ClassifiedIntent{Intent: "birthdays", Confidence: 0.9},
			router.ClassifiedIntent{Intent: "task", Confidence: 0.9},
			router.ClassifiedIntent{Intent: "finance", Confidence: 0.9},
		),
		Enabled: []handler.Handler{&spyHandler{id: "finance"}},
	})
	parts := strings.Split(res.Reply, "\n\n")
	require.Len(t, parts, 4)
	assert.Equal(t, "К сожалению, я пока не умею удалять встречи через текст.", parts[0])
	assert.Equal(t, "⚠️ Модуль «birthdays» не найден.", parts[1])
	assert.Equal(t, "⚠️ Модуль «task» не найден.", parts[2])
	assert.Equal(t, "finance done", parts[3])
	assert.Empty(t, disabled.calls)
}

func TestExecute_Recall(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing remembered", func(t *testing.T) {
		s := storetest.NewTestingStore(ctx, t)
		e, _ := newExecutor(t, s, nil, &spyHandler{id: "finance"})
		res := e.Execute(ctx, &Request{
			Scope:          testScope,
			Message:        "о чем договорились",
			Classification: classified(router.ClassifiedIntent{Intent: router.IntentRecall, Confidence: 0.7}),
		})
		assert.Equal(t, "К сожалению, не нашёл информации по этому вопросу в памяти.", res.Reply)
	})

	t.Run("rephrased by the model", func(t *testing.T) {
		s := storetest.NewTestingStore(ctx, t)
		llm := &MockLLM{}
		llm.On("Chat", mock.Anything, mock.Anything).Return(&ai.ChatResponse{Text: " Договорились на пятницу. "}, nil).Once()
		e, _ := newExecutor(t, s, llm, &spyHandler{id: "finance"})

		res := e.Execute(ctx, &Request{
			Scope:          testScope,
			Message:        "о чем договорились",
			Classification: classified(router.ClassifiedIntent{Intent: router.IntentRecall, Confidence: 0.7}),
			MemoryContext:  "Пользователь: встреча в пятницу",
		})
		assert.Equal(t, "Договорились на пятницу.", res.Reply)
		req := llm.Calls[0].Arguments.Get(1).(*ai.ChatRequest)
		assert.Contains(t, req.Messages[0].Content, "встреча в пятницу")
	})

	t.Run("raw excerpt when the model fails", func(t *testing.T) {
		s := storetest.NewTestingStore(ctx, t)
		llm := &MockLLM{}
		llm.On("Chat", mock.Anything, mock.Anything).Return(nil, errors.New("timeout")).Once()
		e, _ := newExecutor(t, s, llm, &spyHandler{id: "finance"})

		res := e.Execute(ctx, &Request{
			Scope:          testScope,
			Message:        "о чем договорились",
			Classification: classified(router.ClassifiedIntent{Intent: router.IntentRecall, Confidence: 0.7}),
			MemoryContext:  "встреча в пятницу",
		})
		assert.Equal(t, "Вот что я нашёл:\n\nвстреча в пятницу", res.Reply)
	})
}

func TestExecute_PersistsExchange(t *testing.T) {
	ctx := context.Background()
	s := storetest.NewTestingStore(ctx, t)
	e, mem := newExecutor(t, s, nil, &spyHandler{id: "finance"})

	var statuses []string
	res := e.Execute(ctx, &Request{
		Scope:          testScope,
		Message:        "такси 2000",
		Classification: classified(router.ClassifiedIntent{Intent: "finance", Confidence: 0.8}),
		Notify: func(status string) {
			statuses = append(statuses, status)
			panic("ui gone")
		},
	})
	assert.Equal(t, "finance done", res.Reply)
	assert.Equal(t, []string{"🕵 Spy finance…"}, statuses)

	turns, err := mem.RecentTurns(ctx, testScope.TenantID, 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, ai.Message{Role: ai.RoleUser, Content: "такси 2000"}, turns[0])
	assert.Equal(t, ai.Message{Role: ai.RoleAssistant, Content: "finance done"}, turns[1])

	assert.Contains(t, mem.RetrieveContext(ctx, testScope.TenantID, "такси", 0), "finance done")
}

func TestPipeline_EndToEnd(t *testing.T) {
	ctx := context.Background()
	s := storetest.NewTestingStore(ctx, t)
	handlers := handler.Builtin(handler.Deps{Store: s, Location: testZone, Now: func() time.Time { return testNow }})

	const message = "Заплатил 50000 за такси, завтра встреча с Асхатом в 14:00"

	t.Run("two intents", func(t *testing.T) {
		llm := &MockLLM{}
		llm.On("Chat", mock.Anything, mock.Anything).Return(&ai.ChatResponse{Text: "```json\n" + `{
  "reasoning": "оплата и встреча",
  "intents": [
    {"intent": "finance", "confidence": 0.95, "data": {"type": "expense", "amount": 50000, "category": "такси"}},
    {"intent": "meeting", "confidence": 0.9, "data": {"action": "create", "title": "Встреча с Асхатом", "relative_date": "завтра", "time": "14:00", "attendees": ["Асхат"]}}
  ]
}` + "\n```"}, nil).Once()

		classifier := router.NewClassifier(llm, router.WithClock(testZone, func() time.Time { return testNow }))
		result := classifier.Classify(ctx, &router.ClassifyInput{Message: message, Handlers: handlers, Locale: "ru"})
		require.Equal(t, []string{"finance", "meeting"}, result.IntentIDs())

		e, _ := newExecutor(t, s, nil, handlers...)
		res := e.Execute(ctx, &Request{Scope: testScope, Message: message, Classification: result, Enabled: handlers})

		assert.Contains(t, res.Reply, "💸 Расход записан: 50 000 ₸ (такси)")
		assert.Contains(t, res.Reply, "📅 Встреча запланирована: Встреча с Асхатом, 16.10.2026 в 14:00")
		assert.Equal(t, []string{"finance", "meeting"}, res.Executed)
	})

	t.Run("malformed output and no keywords", func(t *testing.T) {
		llm := &MockLLM{}
		llm.On("Chat", mock.Anything, mock.Anything).Return(&ai.ChatResponse{Text: "I cannot help {"}, nil).Once()

		classifier := router.NewClassifier(llm)
		result := classifier.Classify(ctx, &router.ClassifyInput{Message: "абракадабра", Handlers: handlers, Locale: "ru"})
		require.Equal(t, []string{router.IntentUnknown}, result.IntentIDs())

		e, _ := newExecutor(t, s, nil, handlers...)
		res := e.Execute(ctx, &Request{Scope: testScope, Message: "абракадабра", Classification: result})
		assert.Equal(t, notUnderstood("ru"), res.Reply)
	})
}
