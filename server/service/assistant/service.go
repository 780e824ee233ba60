// Package assistant is the request-scoped facade over the assistant core. It owns the
// handler registry, the intent classifier, the multi-intent executor, the memory
// collaborators and the agent handoff runtime, and exposes two entry points:
//
//   - Respond runs the routing pipeline: classify one message, execute every intent.
//   - Converse runs the handoff runtime starting at the coordinator agent.
//
// All collaborators are built once and are immutable afterwards, so a Service is safe
// for concurrent use by many tenants.
package assistant

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/plugin/ai"
	"github.com/hrygo/secretary/plugin/ai/agent"
	"github.com/hrygo/secretary/plugin/ai/executor"
	"github.com/hrygo/secretary/plugin/ai/handler"
	"github.com/hrygo/secretary/plugin/ai/memory"
	"github.com/hrygo/secretary/plugin/ai/router"
	"github.com/hrygo/secretary/plugin/ai/tool"
	"github.com/hrygo/secretary/store"
)

const (
	// agentHistoryTurns is how many trailing turns the handoff runtime sees.
	agentHistoryTurns = 20

	// shortTermWindow is the per-tenant in-memory history window.
	shortTermWindow = 20
)

// Config holds the dependencies of a Service. LLM and Embedder are optional: without a
// model the classifier uses rules only and agents answer that the model is not configured.
type Config struct {
	Store    *store.Store
	LLM      ai.LLMService
	Embedder ai.EmbeddingService

	Location *time.Location
	Now      func() time.Time

	ConfidenceThreshold float64
	MaxHops             int
	ClassifierTimeout   time.Duration

	// Handlers replaces the built-in handler set when not nil.
	Handlers []handler.Handler
}

// Service is the assistant core bound to one store.
type Service struct {
	registry   *handler.Registry
	classifier *router.Classifier
	executor   *executor.Executor
	memory     *memory.Service
	runtime    *agent.Runtime
}

// Input is one user message.
type Input struct {
	Scope tool.Scope
	Text  string
	Blob  *ai.Blob
}

// Reply is the assistant answer with the progress updates collected along the way.
type Reply struct {
	Text string
	// Intents are the classified intent ids (routing pipeline only).
	Intents []string
	// Agent is the agent that produced the reply (handoff runtime only).
	Agent    string
	Statuses []string
}

func (r *Reply) notify(status string) {
	r.Statuses = append(r.Statuses, status)
}

// NewService wires the assistant core.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}

	handlers := cfg.Handlers
	if handlers == nil {
		handlers = handler.Builtin(handler.Deps{
			Store:    cfg.Store,
			LLM:      cfg.LLM,
			Location: cfg.Location,
			Now:      cfg.Now,
		})
	}
	registry, err := handler.NewRegistry(cfg.Store, handlers...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build handler registry")
	}

	opts := []router.Option{router.WithClock(cfg.Location, cfg.Now)}
	if cfg.ClassifierTimeout > 0 {
		opts = append(opts, router.WithTimeout(cfg.ClassifierTimeout))
	}

	mem := memory.NewService(cfg.Store, cfg.Embedder, shortTermWindow)

	runtime, err := agent.NewRuntime(buildRoster(cfg.LLM, registry, cfg.MaxHops))
	if err != nil {
		mem.Close()
		return nil, errors.Wrap(err, "failed to build agent runtime")
	}

	return &Service{
		registry:   registry,
		classifier: router.NewClassifier(cfg.LLM, opts...),
		executor: executor.New(executor.Config{
			Store:     cfg.Store,
			Registry:  registry,
			Memory:    mem,
			History:   mem,
			LLM:       cfg.LLM,
			Threshold: cfg.ConfidenceThreshold,
		}),
		memory:  mem,
		runtime: runtime,
	}, nil
}

// Close releases background resources.
func (s *Service) Close() {
	s.memory.Close()
}

// Registry exposes the handler catalog.
func (s *Service) Registry() *handler.Registry {
	return s.registry
}

// AgentMetrics returns a snapshot of the handoff runtime counters.
func (s *Service) AgentMetrics() agent.MetricsSnapshot {
	return s.runtime.Metrics().Snapshot()
}

// Respond runs the routing pipeline for one message. The only error is a failure to
// read the tenant's module settings; everything after that degrades into the reply text.
func (s *Service) Respond(ctx context.Context, in *Input) (*Reply, error) {
	start := time.Now()
	tenantID := in.Scope.TenantID

	enabled, err := s.registry.ListEnabled(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list enabled handlers")
	}

	memoryContext := s.memory.RetrieveContext(ctx, tenantID, in.Text, executor.MaxMemoryContextLength)
	history, err := s.memory.RecentTurns(ctx, tenantID, router.HistoryTurns)
	if err != nil {
		slog.Warn("failed to load recent turns", "tenant_id", tenantID, "error", err)
		history = nil
	}

	classification := s.classifier.Classify(ctx, &router.ClassifyInput{
		Message:       in.Text,
		Blob:          in.Blob,
		Handlers:      enabled,
		MemoryContext: memoryContext,
		History:       history,
		Locale:        in.Scope.Locale,
	})

	reply := &Reply{Intents: classification.IntentIDs()}
	result := s.executor.Execute(ctx, &executor.Request{
		Scope:          in.Scope,
		Message:        in.Text,
		Classification: classification,
		MemoryContext:  memoryContext,
		Enabled:        enabled,
		Notify:         reply.notify,
	})
	reply.Text = result.Reply

	slog.Info("message handled",
		"tenant_id", tenantID,
		"source", classification.Source,
		"intents", reply.Intents,
		"executed", result.Executed,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return reply, nil
}

// Converse runs the handoff runtime for one message and records the exchange.
func (s *Service) Converse(ctx context.Context, in *Input) (*Reply, error) {
	start := time.Now()
	tenantID := in.Scope.TenantID

	history, err := s.memory.RecentTurns(ctx, tenantID, agentHistoryTurns)
	if err != nil {
		slog.Warn("failed to load recent turns", "tenant_id", tenantID, "error", err)
		history = nil
	}

	reply := &Reply{}
	result := s.runtime.Run(ctx, &agent.RunInput{
		Message: in.Text,
		History: history,
		Scope:   in.Scope,
		Status:  reply.notify,
	})
	reply.Text = result.Reply
	reply.Agent = result.Agent

	s.record(ctx, in, result)
	slog.Info("conversation turn handled",
		"tenant_id", tenantID,
		"agent", result.Agent,
		"hops", result.Hops,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return reply, nil
}

// record persists the exchange. Failures are logged and never change the reply.
func (s *Service) record(ctx context.Context, in *Input, result *agent.Result) {
	tenantID, userID := in.Scope.TenantID, in.Scope.UserID
	if err := s.memory.Append(ctx, tenantID, userID, ai.RoleUser, in.Text); err != nil {
		slog.Warn("failed to record user turn", "tenant_id", tenantID, "error", err)
		return
	}
	if err := s.memory.Append(ctx, tenantID, userID, ai.RoleAssistant, result.Reply, result.Agent); err != nil {
		slog.Warn("failed to record assistant turn", "tenant_id", tenantID, "error", err)
		return
	}
	if err := s.memory.StoreExchange(ctx, tenantID, userID, in.Text, result.Reply); err != nil {
		slog.Warn("failed to store exchange", "tenant_id", tenantID, "error", err)
	}
}
