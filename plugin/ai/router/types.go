// Package router turns one user utterance into classified intents.
package router

import (
	"github.com/hrygo/secretary/plugin/ai/tool"
)

// Reserved intent identifiers handled outside the handler registry or referenced by rules.
const (
	IntentUnknown         = "unknown"
	IntentRecall          = "recall"
	IntentCancelMeeting   = "cancel_meeting"
	IntentScheduleMeeting = "schedule_meeting"
	IntentMessaging       = "messaging"
)

// Source records which layer produced a classification.
type Source string

const (
	SourceLLM      Source = "llm"
	SourceRules    Source = "rules"
	SourceOverride Source = "override"
)

// ClassifiedIntent is one action extracted from a message.
type ClassifiedIntent struct {
	Intent     string    `json:"intent"`
	Confidence float64   `json:"confidence"`
	Args       tool.Args `json:"data"`
}

// ClassificationResult is the ordered set of intents for one message.
type ClassificationResult struct {
	Reasoning string             `json:"reasoning"`
	Intents   []ClassifiedIntent `json:"intents"`
	Source    Source             `json:"-"`
}

// IntentIDs lists the intent identifiers in order.
func (r *ClassificationResult) IntentIDs() []string {
	ids := make([]string, len(r.Intents))
	for i, in := range r.Intents {
		ids[i] = in.Intent
	}
	return ids
}

func unknownResult(reasoning string) *ClassificationResult {
	return &ClassificationResult{
		Reasoning: reasoning,
		Intents:   []ClassifiedIntent{{Intent: IntentUnknown, Confidence: 0, Args: tool.Args{}}},
		Source:    SourceRules,
	}
}
