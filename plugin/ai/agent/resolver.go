package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/plugin/ai/tool"
)

// DefaultAgentAliases map short names used by the model to registered agents.
var DefaultAgentAliases = map[string]string{
	"calendar":  "calendar_agent",
	"tasks":     "tasks_agent",
	"finance":   "finance_agent",
	"contacts":  "contacts_agent",
	"knowledge": "knowledge_agent",
}

// DefaultToolAliases map names the model tends to invent to real tools.
var DefaultToolAliases = map[string]string{
	"getevents":    "get_today_meetings",
	"get_events":   "get_today_meetings",
	"getmeetings":  "get_today_meetings",
	"get_meetings": "get_today_meetings",
	"gettasks":     "get_all_tasks",
	"get_tasks":    "get_all_tasks",
	"getcontacts":  "get_all_contacts",
	"get_contacts": "get_all_contacts",
	"getbalance":   "get_balance",
}

// Resolver looks up an agent tool by (possibly aliased) names and invokes it.
// It is immutable after construction.
type Resolver struct {
	agents       map[string]Agent
	order        []string
	agentAliases map[string]string
	toolAliases  map[string]string
}

// NewResolver indexes agents by name. Duplicate names are rejected.
func NewResolver(agents []Agent, agentAliases, toolAliases map[string]string) (*Resolver, error) {
	r := &Resolver{
		agents:       make(map[string]Agent, len(agents)),
		agentAliases: make(map[string]string, len(agentAliases)),
		toolAliases:  make(map[string]string, len(toolAliases)),
	}
	for _, a := range agents {
		if _, dup := r.agents[a.Name()]; dup {
			return nil, errors.Errorf("duplicate agent %q", a.Name())
		}
		r.agents[a.Name()] = a
		r.order = append(r.order, a.Name())
	}
	for k, v := range agentAliases {
		r.agentAliases[strings.ToLower(k)] = v
	}
	for k, v := range toolAliases {
		r.toolAliases[strings.ToLower(k)] = v
	}
	return r, nil
}

// Agent returns the agent registered under name or one of its aliases.
func (r *Resolver) Agent(name string) (Agent, error) {
	if a, ok := r.agents[name]; ok {
		return a, nil
	}
	if target, ok := r.agentAliases[strings.ToLower(name)]; ok {
		if a, ok := r.agents[target]; ok {
			return a, nil
		}
	}
	return nil, errors.Wrap(ErrAgentNotFound, name)
}

// Agents lists agents in registration order.
func (r *Resolver) Agents() []Agent {
	list := make([]Agent, len(r.order))
	for i, name := range r.order {
		list[i] = r.agents[name]
	}
	return list
}

// FindTool finds a tool on agent, trying the tool alias table second.
func (r *Resolver) FindTool(agent Agent, name string) (*tool.Tool, error) {
	if t, ok := tool.Find(agent.Tools(), name); ok {
		return t, nil
	}
	if alias, ok := r.toolAliases[strings.ToLower(name)]; ok {
		if t, ok := tool.Find(agent.Tools(), alias); ok {
			return t, nil
		}
	}
	return nil, errors.Wrapf(ErrToolNotFound, "%s on %s", name, agent.Name())
}

// Invoke resolves and calls agentName's toolName.
func (r *Resolver) Invoke(ctx context.Context, scope tool.Scope, agentName, toolName string, args tool.Args) (tool.Result, error) {
	a, err := r.Agent(agentName)
	if err != nil {
		return nil, err
	}
	t, err := r.FindTool(a, toolName)
	if err != nil {
		return nil, err
	}
	return t.Call(ctx, scope, args)
}

// Call is Invoke with every failure rendered as user-visible text carrying the failure marker.
func (r *Resolver) Call(ctx context.Context, scope tool.Scope, agentName, toolName string, args tool.Args) string {
	res, err := r.Invoke(ctx, scope, agentName, toolName, args)
	switch {
	case err == nil:
		return res.String()
	case errors.Is(err, ErrAgentNotFound):
		return tool.Failure("Агент '%s' не найден", agentName).Text
	case errors.Is(err, ErrToolNotFound):
		return tool.Failure("Инструмент '%s' не найден у агента '%s'", toolName, agentName).Text
	default:
		classified := ClassifyError(toolName, err)
		slog.Warn("inter-agent tool call failed",
			"agent", agentName, "tool", toolName, "class", classified.Class.String(), "error", err)
		return classified.UserMessage
	}
}
