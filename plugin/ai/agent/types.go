// Package agent implements the handoff runtime: a coordinating agent that runs its own
// tools, hands the conversation to specialist agents or launches multi-step plans.
package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hrygo/secretary/plugin/ai/tool"
)

// Agent is a conversational participant with its own prompt and tool set.
type Agent interface {
	// Name identifies the agent in handoff tables and plan steps.
	Name() string

	// Role is a one-line description used in the coordinator prompt.
	Role() string

	// Instructions returns the system prompt for the given locale.
	Instructions(locale string) string

	Tools() []*tool.Tool

	// Run performs one turn. A response with tool calls is not a final reply.
	Run(ctx context.Context, in *TurnInput) (*Response, error)
}

// TurnInput is what an agent sees on one turn.
type TurnInput struct {
	Message string
	// Context is the assembled trailing history and inter-agent results.
	Context string
	Scope   tool.Scope
}

// ToolCall is a tool invocation requested by an agent.
type ToolCall struct {
	Name string
	Args tool.Args
}

// Response is the outcome of one agent turn.
type Response struct {
	Content   string
	ToolCalls []ToolCall
}

// AgentError represents an error from an agent turn.
type AgentError struct {
	AgentName string // Name of the agent that produced the error
	Operation string // Operation being performed when error occurred
	Err       error  // Underlying error
}

func (e *AgentError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("agent %s: %s failed: %v", e.AgentName, e.Operation, e.Err)
}

func (e *AgentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAgentError creates a new AgentError.
func NewAgentError(agentName, operation string, err error) *AgentError {
	return &AgentError{
		AgentName: agentName,
		Operation: operation,
		Err:       err,
	}
}

// StatusFunc receives coarse progress updates for UI feedback.
type StatusFunc func(status string)

// emit calls fn, containing any panic so that UI feedback never changes the outcome.
func (fn StatusFunc) emit(format string, a ...any) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("status callback panicked", "panic", r)
		}
	}()
	fn(fmt.Sprintf(format, a...))
}
