// Package executor dispatches classified intents to handlers and assembles the reply.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/plugin/ai"
	"github.com/hrygo/secretary/plugin/ai/handler"
	"github.com/hrygo/secretary/plugin/ai/memory"
	"github.com/hrygo/secretary/plugin/ai/router"
	"github.com/hrygo/secretary/plugin/ai/tool"
	"github.com/hrygo/secretary/store"
)

const (
	// DefaultConfidenceThreshold is the global confidence gate.
	DefaultConfidenceThreshold = 0.3

	// MaxMemoryContextLength bounds the memory excerpt passed to recall and handlers.
	MaxMemoryContextLength = 2000
)

// minConfidence raises the gate for intents whose false positives are costly.
var minConfidence = map[string]float64{
	router.IntentRecall:          0.5,
	router.IntentScheduleMeeting: 0.5,
}

// Config holds the collaborators of an Executor. Memory, History and LLM are optional.
type Config struct {
	Store     handler.TxRunner
	Registry  *handler.Registry
	Memory    memory.MemoryService
	History   memory.HistoryService
	LLM       ai.LLMService
	Threshold float64
}

// Executor runs every classified intent of one message in order, each in its own
// transactional unit, and joins the handler replies.
type Executor struct {
	store     handler.TxRunner
	registry  *handler.Registry
	memory    memory.MemoryService
	history   memory.HistoryService
	llm       ai.LLMService
	threshold float64
}

// New creates an Executor.
func New(cfg Config) *Executor {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &Executor{
		store:     cfg.Store,
		registry:  cfg.Registry,
		memory:    cfg.Memory,
		history:   cfg.History,
		llm:       cfg.LLM,
		threshold: threshold,
	}
}

// Request is one classified message ready for execution.
type Request struct {
	Scope          tool.Scope
	Message        string
	Classification *router.ClassificationResult
	// MemoryContext is the excerpt retrieved before classification; reused for recall and handlers.
	MemoryContext string
	// Enabled restricts dispatch to these handlers. Nil allows every registered handler.
	Enabled []handler.Handler
	// Notify receives coarse progress updates. Optional.
	Notify func(status string)
}

// Result is the combined reply and what produced it.
type Result struct {
	Reply string
	// Executed lists the intents that contributed a fragment, in order.
	Executed []string
}

// Execute never fails: partial failures become reply fragments.
func (e *Executor) Execute(ctx context.Context, req *Request) *Result {
	start := time.Now()
	result := &Result{}

	var fragments []string
	var intentIDs []string
	if req.Classification != nil {
		intentIDs = req.Classification.IntentIDs()
		for _, in := range req.Classification.Intents {
			fragment := e.executeIntent(ctx, req, in)
			if fragment == "" {
				continue
			}
			fragments = append(fragments, fragment)
			result.Executed = append(result.Executed, in.Intent)
		}
	}

	if len(fragments) == 0 {
		result.Reply = notUnderstood(req.Scope.Locale)
	} else {
		result.Reply = strings.Join(fragments, "\n\n")
	}

	e.persist(ctx, req, result.Reply, intentIDs)

	slog.Debug("intents executed",
		"tenant_id", req.Scope.TenantID,
		"intents", intentIDs,
		"executed", result.Executed,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return result
}

func (e *Executor) executeIntent(ctx context.Context, req *Request, in router.ClassifiedIntent) string {
	if in.Intent == "" || in.Intent == router.IntentUnknown {
		return ""
	}
	gate := max(e.threshold, minConfidence[in.Intent])
	if in.Confidence < gate {
		slog.Debug("intent skipped", "intent", in.Intent, "confidence", in.Confidence, "threshold", gate)
		return ""
	}

	switch in.Intent {
	case router.IntentCancelMeeting:
		return cancelNotSupported(req.Scope.Locale)
	case router.IntentRecall:
		notify(req, "🧠 Вспоминаю…")
		return e.recall(ctx, req, in.Args)
	}

	h, ok := e.resolve(req, in.Intent)
	if !ok {
		slog.Warn("intent resolved to no handler", "intent", in.Intent, "tenant_id", req.Scope.TenantID)
		return moduleNotFound(in.Intent, req.Scope.Locale)
	}

	info := h.Info()
	notify(req, fmt.Sprintf("%s %s…", info.Icon, info.Name))
	return e.dispatch(ctx, req, h, in.Args)
}

func (e *Executor) resolve(req *Request, id string) (handler.Handler, bool) {
	h, ok := e.registry.Resolve(id)
	if !ok || req.Enabled == nil {
		return h, ok
	}
	for _, enabled := range req.Enabled {
		if enabled.ID() == h.ID() {
			return h, true
		}
	}
	return nil, false
}

// dispatch runs one handler in a fresh unit of work. A returned error or an unsuccessful
// outcome rolls the unit back so later intents never observe its partial writes.
func (e *Executor) dispatch(ctx context.Context, req *Request, h handler.Handler, args tool.Args) string {
	args = args.Clone()
	args.SetDefault("original_message", req.Message)
	args.SetDefault("query", req.Message)
	if req.MemoryContext != "" {
		args.SetDefault("rag_context", req.MemoryContext)
	}

	var out *handler.Outcome
	err := e.store.RunInTx(ctx, func(q store.Queries) error {
		var err error
		out, err = h.Process(ctx, &handler.Request{Scope: req.Scope, Args: args, Queries: q})
		if err != nil {
			return err
		}
		if out == nil || !out.Success {
			return errUnsuccessful
		}
		return nil
	})

	switch {
	case err == nil:
		slog.Debug("handler succeeded", "handler", h.ID(), "tenant_id", req.Scope.TenantID)
		return out.Message
	case errors.Is(err, errUnsuccessful) && out != nil && out.Message != "":
		slog.Debug("handler declined", "handler", h.ID(), "message", out.Message)
		return out.Message
	default:
		slog.Warn("handler failed", "handler", h.ID(), "tenant_id", req.Scope.TenantID, "error", err)
		return executionFailed(h.Info().Name)
	}
}

var errUnsuccessful = errors.New("handler reported an unsuccessful outcome")

// persist stores the exchange in history and memory. Failures are logged only.
func (e *Executor) persist(ctx context.Context, req *Request, reply string, intentIDs []string) {
	scope := req.Scope
	if e.history != nil {
		if err := e.history.Append(ctx, scope.TenantID, scope.UserID, ai.RoleUser, req.Message); err != nil {
			slog.Warn("failed to save user turn", "tenant_id", scope.TenantID, "error", err)
		} else if err := e.history.Append(ctx, scope.TenantID, scope.UserID, ai.RoleAssistant, reply, intentIDs...); err != nil {
			slog.Warn("failed to save assistant turn", "tenant_id", scope.TenantID, "error", err)
		}
	}
	if e.memory != nil {
		if err := e.memory.StoreExchange(ctx, scope.TenantID, scope.UserID, req.Message, reply); err != nil {
			slog.Warn("failed to store exchange in memory", "tenant_id", scope.TenantID, "error", err)
		}
	}
}

// notify must never affect the outcome, so a panicking sink is contained.
func notify(req *Request, status string) {
	if req.Notify == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("status callback panicked", "panic", r)
		}
	}()
	req.Notify(status)
}
