package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/plugin/ai"
	"github.com/hrygo/secretary/plugin/ai/timeout"
	"github.com/hrygo/secretary/plugin/ai/tool"
)

const (
	// CallAgentPrefix names a tool call that invokes another agent's tool without a handoff:
	// "call_agent:<agent>:<tool>".
	CallAgentPrefix = "call_agent:"

	// HandoffMarker in a text reply hands the conversation to the agent named after it.
	HandoffMarker = "handoff:"

	// HopLimitMessage is returned when the hop budget is exhausted.
	HopLimitMessage = "System limit reached (too many agent hops)."
)

// Config describes the agent pool. It is copied on construction.
type Config struct {
	Agents []Agent
	// Coordinator is the agent every run starts with.
	Coordinator string
	// Handoffs maps a reserved tool name to the agent taking over.
	Handoffs map[string]string

	AgentAliases map[string]string
	ToolAliases  map[string]string

	// SearchAgent answers the lookup half of a search-and-save request.
	SearchAgent string
	// ContactsAgent and SaveContactTool store the contact found by the search.
	ContactsAgent   string
	SaveContactTool string

	MaxHops int
}

// Runtime runs the coordinator and follows handoffs, inter-agent calls and plans
// until some agent produces a final reply or the hop budget runs out.
type Runtime struct {
	resolver    *Resolver
	coordinator string
	handoffs    map[string]string
	search      string
	contacts    string
	saveContact string
	maxHops     int
	metrics     *Metrics
}

// NewRuntime validates the configuration: the coordinator and every handoff target must exist.
func NewRuntime(cfg Config) (*Runtime, error) {
	resolver, err := NewResolver(cfg.Agents, cfg.AgentAliases, cfg.ToolAliases)
	if err != nil {
		return nil, err
	}
	if _, err := resolver.Agent(cfg.Coordinator); err != nil {
		return nil, errors.Wrap(err, "coordinator")
	}

	handoffs := make(map[string]string, len(cfg.Handoffs))
	for toolName, target := range cfg.Handoffs {
		a, err := resolver.Agent(target)
		if err != nil {
			return nil, errors.Wrapf(err, "handoff %s", toolName)
		}
		handoffs[toolName] = a.Name()
	}

	maxHops := cfg.MaxHops
	if maxHops <= 0 {
		maxHops = timeout.MaxHops
	}
	saveTool := cfg.SaveContactTool
	if saveTool == "" {
		saveTool = "create_contact"
	}
	return &Runtime{
		resolver:    resolver,
		coordinator: cfg.Coordinator,
		handoffs:    handoffs,
		search:      cfg.SearchAgent,
		contacts:    cfg.ContactsAgent,
		saveContact: saveTool,
		maxHops:     maxHops,
		metrics:     NewMetrics(),
	}, nil
}

// Metrics exposes the runtime counters.
func (r *Runtime) Metrics() *Metrics {
	return r.metrics
}

// RunInput is one user message for the runtime.
type RunInput struct {
	Message string
	History []ai.Message
	Scope   tool.Scope
	Status  StatusFunc
}

// Result is the final reply and how it was reached.
type Result struct {
	Reply string
	// Agent is the agent that was active when the run ended.
	Agent string
	Hops  int
	// Err is ErrHopLimit when the budget ran out; the reply is still set.
	Err error
}

// Run never fails: every failure becomes the reply.
func (r *Runtime) Run(ctx context.Context, in *RunInput) *Result {
	start := time.Now()
	current := r.coordinator
	hops := 0
	var accumulated []string

	for hops < r.maxHops {
		a, _ := r.resolver.Agent(current)
		in.Status.emit("🤖 %s работает…", a.Name())

		resp, err := a.Run(ctx, &TurnInput{
			Message: in.Message,
			Context: buildContext(in.History, accumulated),
			Scope:   in.Scope,
		})
		if err != nil {
			slog.Warn("agent turn failed", "agent", a.Name(), "error", err)
			return r.done(current, hops, start, tool.Failure("Не удалось получить ответ, попробуйте позже").Text, nil)
		}

		if len(resp.ToolCalls) == 0 {
			if target, ok := r.textualHandoff(resp.Content); ok {
				slog.Debug("handoff (text)", "from", current, "to", target)
				in.Status.emit("🔄 %s → %s", current, target)
				current = target
				hops++
				r.metrics.RecordHandoff()
				continue
			}
			reply := resp.Content
			if len(accumulated) > 0 {
				reply += "\n\n" + strings.Join(accumulated, "\n")
			}
			return r.done(current, hops, start, reply, nil)
		}

		call := resp.ToolCalls[0]
		if target, ok := r.handoffs[call.Name]; ok {
			slog.Debug("handoff", "from", current, "to", target)
			in.Status.emit("🔄 %s → %s", current, target)
			current = target
			hops++
			r.metrics.RecordHandoff()
			continue
		}

		if agentName, toolName, ok := parseCallAgent(call.Name); ok {
			slog.Debug("inter-agent call", "from", current, "agent", agentName, "tool", toolName)
			in.Status.emit("📞 %s.%s…", agentName, toolName)
			result := r.resolver.Call(ctx, in.Scope, agentName, toolName, call.Args)
			accumulated = append(accumulated, toolName+": "+result)
			hops++
			continue
		}

		reply := r.invokeLocal(ctx, in, a, call)
		return r.done(current, hops, start, reply, nil)
	}

	slog.Warn("agent runtime stopped", "error", ErrHopLimit, "hops", hops, "agent", current)
	return r.done(current, hops, start, HopLimitMessage, ErrHopLimit)
}

func (r *Runtime) done(agentName string, hops int, start time.Time, reply string, err error) *Result {
	slog.Debug("agent run finished",
		"agent", agentName,
		"hops", hops,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	r.metrics.RecordRun(hops, errors.Is(err, ErrHopLimit))
	return &Result{Reply: reply, Agent: agentName, Hops: hops, Err: err}
}

// invokeLocal runs a tool of the current agent and dispatches on the result variant.
func (r *Runtime) invokeLocal(ctx context.Context, in *RunInput, a Agent, call ToolCall) string {
	t, err := r.resolver.FindTool(a, call.Name)
	if err != nil {
		return tool.Failure("Инструмент '%s' не найден у агента '%s'", call.Name, a.Name()).Text
	}
	in.Status.emit("🔧 %s…", t.Name())

	callStart := time.Now()
	res, err := t.Call(ctx, in.Scope, call.Args)
	r.metrics.RecordToolCall(t.Name(), err != nil || (res != nil && tool.IsFailure(res.String())), time.Since(callStart))
	if err != nil {
		classified := ClassifyError(t.Name(), err)
		slog.Warn("tool failed", "agent", a.Name(), "tool", t.Name(), "class", classified.Class.String(), "error", err)
		return classified.UserMessage
	}

	switch v := res.(type) {
	case tool.FollowUpCall:
		in.Status.emit("📞 %s.%s…", v.Agent, v.Tool)
		return r.resolver.Call(ctx, in.Scope, v.Agent, v.Tool, v.Args)
	case tool.SearchAndSave:
		return r.searchAndSave(ctx, in, v)
	case tool.RunPlan:
		return r.executePlan(ctx, in.Scope, v.Steps, in.Status)
	default:
		return res.String()
	}
}

// searchAndSave asks the search agent for a phone number and stores it as a contact.
func (r *Runtime) searchAndSave(ctx context.Context, in *RunInput, req tool.SearchAndSave) string {
	searcher, err := r.resolver.Agent(r.search)
	if err != nil {
		return tool.Failure("Агент поиска не настроен").Text
	}
	in.Status.emit("🔍 %s…", req.Query)

	found, err := r.answer(ctx, in.Scope, searcher, "Найди телефон "+req.Query)
	if err != nil {
		slog.Warn("search failed", "agent", searcher.Name(), "error", err)
		return tool.Failure("Поиск не удался").Text
	}

	phone := ExtractPhone(found)
	if phone == "" {
		return fmt.Sprintf("🔍 Результат поиска:\n%s\n\n%s", found, tool.Failure("Номер телефона не найден в результатах").Text)
	}

	in.Status.emit("💾 %s…", req.Name)
	saved := r.resolver.Call(ctx, in.Scope, r.contacts, r.saveContact, tool.Args{"name": req.Name, "phone": phone})
	return fmt.Sprintf("🔍 Найдено: %s\n\n%s", phone, saved)
}

// answer runs one turn of a and, if it asks for one of its own tools, returns that tool's text.
func (r *Runtime) answer(ctx context.Context, scope tool.Scope, a Agent, message string) (string, error) {
	resp, err := a.Run(ctx, &TurnInput{Message: message, Scope: scope})
	if err != nil {
		return "", err
	}
	if len(resp.ToolCalls) == 0 {
		return resp.Content, nil
	}
	call := resp.ToolCalls[0]
	t, err := r.resolver.FindTool(a, call.Name)
	if err != nil {
		return resp.Content, nil
	}
	res, err := t.Call(ctx, scope, call.Args)
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

func (r *Runtime) textualHandoff(content string) (string, bool) {
	_, after, ok := strings.Cut(content, HandoffMarker)
	if !ok {
		return "", false
	}
	fields := strings.Fields(after)
	if len(fields) == 0 {
		return "", false
	}
	a, err := r.resolver.Agent(strings.Trim(fields[0], ".,;!\"'`"))
	if err != nil {
		return "", false
	}
	return a.Name(), true
}

func parseCallAgent(name string) (agentName, toolName string, ok bool) {
	rest, found := strings.CutPrefix(name, CallAgentPrefix)
	if !found {
		return "", "", false
	}
	agentName, toolName, ok = strings.Cut(rest, ":")
	if !ok || agentName == "" || toolName == "" {
		return "", "", false
	}
	return agentName, toolName, true
}
