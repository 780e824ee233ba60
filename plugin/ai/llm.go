package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// Blob is binary content sent alongside the user message, e.g. a photo of a receipt.
type Blob struct {
	MIMEType string
	Data     []byte
}

// ToolSpec describes a callable function offered to the model.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON schema
}

// ToolCall is a function call requested by the model. Arguments is raw JSON.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Usage reports token accounting for one call.
type Usage struct {
	PromptTokens   int
	ResponseTokens int
}

// ChatRequest is a stateless model call; the full instruction is rebuilt by the caller every time.
type ChatRequest struct {
	System   string
	Messages []Message
	// Blob is attached to the last user message.
	Blob        *Blob
	Tools       []ToolSpec
	Temperature float32 // zero uses the configured default
	MaxTokens   int     // zero uses the configured default
	JSONMode    bool
}

// ChatResponse is the model output.
type ChatResponse struct {
	Text      string
	ToolCalls []ToolCall
	Usage     Usage
}

// LLMService is the LLM service interface.
type LLMService interface {
	// Chat performs one synchronous completion.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

type llmService struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewLLMService creates a new LLMService. Every supported provider speaks the OpenAI wire format.
func NewLLMService(cfg *LLMConfig) (LLMService, error) {
	var clientConfig openai.ClientConfig

	switch cfg.Provider {
	case "openai", "deepseek", "siliconflow":
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
	case "ollama":
		clientConfig = openai.DefaultConfig("ollama")
		clientConfig.BaseURL = cfg.BaseURL + "/v1"
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	return &llmService{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (s *llmService) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	request := openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    convertMessages(req),
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	}
	if req.MaxTokens > 0 {
		request.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		request.Temperature = req.Temperature
	}
	if req.JSONMode {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	for _, tool := range req.Tools {
		request.Tools = append(request.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	resp, err := s.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, errors.Wrap(err, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty response")
	}

	msg := resp.Choices[0].Message
	out := &ChatResponse{
		Text: msg.Content,
		Usage: Usage{
			PromptTokens:   resp.Usage.PromptTokens,
			ResponseTokens: resp.Usage.CompletionTokens,
		},
	}
	for _, call := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}

	slog.Debug("llm call completed",
		"model", s.model,
		"prompt_tokens", out.Usage.PromptTokens,
		"response_tokens", out.Usage.ResponseTokens,
		"tool_calls", len(out.ToolCalls),
	)
	return out, nil
}

func convertMessages(req *ChatRequest) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}

	lastUser := -1
	for i, m := range req.Messages {
		if m.Role == RoleUser {
			lastUser = i
		}
	}

	for i, m := range req.Messages {
		if i == lastUser && req.Blob != nil && len(req.Blob.Data) > 0 {
			messages = append(messages, openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: m.Content},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURI(req.Blob),
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			})
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return messages
}

func dataURI(b *Blob) string {
	mime := b.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b.Data)
}
