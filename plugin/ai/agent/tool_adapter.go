package agent

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/plugin/ai"
	"github.com/hrygo/secretary/plugin/ai/timeout"
	"github.com/hrygo/secretary/plugin/ai/tool"
)

// actionPattern catches a narrated tool call ("Thought: ... Action: transfer_to_calendar").
var actionPattern = regexp.MustCompile(`Action:\s*([\w_]+)`)

// AgentConfig holds configuration for creating a new LLMAgent.
type AgentConfig struct {
	// Name identifies this agent.
	Name string

	// Role is the one-line description shown to the coordinator.
	Role string

	// Prompts maps a locale to its system prompt. "ru" is the fallback.
	Prompts map[string]string

	// Timeout bounds one model call.
	Timeout time.Duration
}

// LLMAgent is an Agent backed by native model tool calling.
type LLMAgent struct {
	llm    ai.LLMService
	config AgentConfig
	tools  []*tool.Tool
}

// NewLLMAgent creates an agent. llm may be nil, in which case every turn answers
// that the model is not configured.
func NewLLMAgent(llm ai.LLMService, config AgentConfig, tools []*tool.Tool) *LLMAgent {
	if config.Timeout <= 0 {
		config.Timeout = timeout.AgentTurnTimeout
	}
	return &LLMAgent{
		llm:    llm,
		config: config,
		tools:  tools,
	}
}

func (a *LLMAgent) Name() string { return a.config.Name }

func (a *LLMAgent) Role() string { return a.config.Role }

func (a *LLMAgent) Instructions(locale string) string {
	if p, ok := a.config.Prompts[locale]; ok {
		return p
	}
	return a.config.Prompts["ru"]
}

func (a *LLMAgent) Tools() []*tool.Tool { return a.tools }

// Run performs one model call. When the call with tools fails it is retried once without them.
func (a *LLMAgent) Run(ctx context.Context, in *TurnInput) (*Response, error) {
	if a.llm == nil {
		return &Response{Content: "ИИ-модель не настроена."}, nil
	}

	userContent := in.Message
	if in.Context != "" {
		userContent = "Context:\n" + in.Context + "\n\nUser: " + in.Message
	}
	req := &ai.ChatRequest{
		System:   a.Instructions(in.Scope.Locale),
		Messages: []ai.Message{{Role: ai.RoleUser, Content: userContent}},
	}
	for _, t := range a.tools {
		req.Tools = append(req.Tools, t.Spec())
	}

	start := time.Now()
	resp, err := a.chat(ctx, req)
	if err != nil && len(req.Tools) > 0 {
		slog.Warn("agent call with tools failed, retrying without tools", "agent", a.Name(), "error", err)
		req.Tools = nil
		resp, err = a.chat(ctx, req)
	}
	if err != nil {
		return nil, NewAgentError(a.Name(), "chat", err)
	}

	slog.Debug("agent turn",
		"agent", a.Name(),
		"tool_calls", len(resp.ToolCalls),
		"prompt_tokens", resp.Usage.PromptTokens,
		"response_tokens", resp.Usage.ResponseTokens,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	if len(resp.ToolCalls) > 0 {
		out := &Response{Content: resp.Text}
		for _, tc := range resp.ToolCalls {
			args, err := tool.ParseArgs(tc.Arguments)
			if err != nil {
				slog.Warn("malformed tool arguments, calling with none", "agent", a.Name(), "tool", tc.Name, "error", err)
				args = tool.Args{}
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{Name: tc.Name, Args: args})
		}
		return out, nil
	}

	if m := actionPattern.FindStringSubmatch(resp.Text); m != nil {
		slog.Debug("text-based action detected", "agent", a.Name(), "tool", m[1])
		return &Response{Content: resp.Text, ToolCalls: []ToolCall{{Name: m[1], Args: tool.Args{}}}}, nil
	}
	return &Response{Content: strings.TrimSpace(resp.Text)}, nil
}

func (a *LLMAgent) chat(ctx context.Context, req *ai.ChatRequest) (*ai.ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	resp, err := a.llm.Chat(ctx, req)
	if err == nil && resp == nil {
		err = errEmptyResponse
	}
	return resp, err
}

var errEmptyResponse = errors.New("empty model response")
