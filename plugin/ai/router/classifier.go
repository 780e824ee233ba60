package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/internal/timezone"
	"github.com/hrygo/secretary/plugin/ai"
	"github.com/hrygo/secretary/plugin/ai/handler"
	"github.com/hrygo/secretary/plugin/ai/timeout"
)

// classificationTemperature is pinned low for reproducibility. Zero would fall back to the provider default.
const classificationTemperature = 0.1

var errEmptyResponse = errors.New("empty model response")

// Classifier combines the context assembler, one model call and the safe parser,
// falling back to the rule matcher. Classify never fails.
type Classifier struct {
	llm      ai.LLMService
	rules    *RuleMatcher
	timeout  time.Duration
	location *time.Location
	now      func() time.Time
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithTimeout bounds the model call.
func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) { c.timeout = d }
}

// WithClock sets the local time zone and clock used in the prompt.
func WithClock(loc *time.Location, now func() time.Time) Option {
	return func(c *Classifier) {
		if loc != nil {
			c.location = loc
		}
		if now != nil {
			c.now = now
		}
	}
}

// NewClassifier creates a classifier. llm may be nil, in which case only rules are used.
func NewClassifier(llm ai.LLMService, opts ...Option) *Classifier {
	c := &Classifier{
		llm:      llm,
		rules:    NewRuleMatcher(),
		timeout:  timeout.ClassificationTimeout,
		location: timezone.DefaultLocation(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClassifyInput is one classification request.
type ClassifyInput struct {
	Message       string
	Blob          *ai.Blob
	Handlers      []handler.Handler
	MemoryContext string
	History       []ai.Message
	Locale        string
}

// Classify returns at least one intent for the message.
func (c *Classifier) Classify(ctx context.Context, in *ClassifyInput) *ClassificationResult {
	start := time.Now()
	if c.llm == nil {
		return c.fallback(in, "model not configured", start)
	}

	system := BuildSystemPrompt(&PromptInput{
		Handlers:      in.Handlers,
		History:       in.History,
		MemoryContext: in.MemoryContext,
		Now:           c.now().In(c.location),
		Locale:        in.Locale,
	})

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.llm.Chat(callCtx, &ai.ChatRequest{
		System:      system,
		Messages:    []ai.Message{{Role: ai.RoleUser, Content: in.Message}},
		Blob:        in.Blob,
		Temperature: classificationTemperature,
		JSONMode:    true,
	})
	if err == nil && resp == nil {
		err = errEmptyResponse
	}
	if err != nil {
		slog.Warn("intent classification call failed", "error", err)
		return c.fallback(in, "model call failed", start)
	}

	result := Parse(resp.Text)
	if result == nil {
		slog.Warn("unparsable classification output", "output", truncate(resp.Text, timeout.MaxTruncateLength))
		return c.fallback(in, "model output unparsable", start)
	}

	if enabledIDs(in.Handlers)[IntentMessaging] && result.Intents[0].Intent != IntentMessaging {
		if forced, ok := c.rules.MatchMessaging(in.Message, 1.0); ok {
			slog.Debug("messaging rule overrides model classification", "model_intents", result.IntentIDs())
			result = &ClassificationResult{
				Reasoning: "messaging verb override",
				Intents:   []ClassifiedIntent{forced},
				Source:    SourceOverride,
			}
		}
	}

	slog.Debug("intent classified by LLM",
		"input", truncate(in.Message, 50),
		"intents", result.IntentIDs(),
		"source", result.Source,
		"prompt_tokens", resp.Usage.PromptTokens,
		"response_tokens", resp.Usage.ResponseTokens,
		"latency_ms", time.Since(start).Milliseconds())
	return result
}

func (c *Classifier) fallback(in *ClassifyInput, reason string, start time.Time) *ClassificationResult {
	result := c.rules.Match(in.Message, in.Handlers)
	slog.Debug("intent classified by rule matcher",
		"input", truncate(in.Message, 50),
		"reason", reason,
		"intents", result.IntentIDs(),
		"latency_ms", time.Since(start).Milliseconds())
	return result
}
