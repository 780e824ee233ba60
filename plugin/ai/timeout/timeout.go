// Package timeout defines centralized timeout constants and loop ceilings for AI operations.
package timeout

import "time"

const (
	// ClassificationTimeout bounds the single reasoning-model call of the intent classifier.
	ClassificationTimeout = 30 * time.Second

	// AgentTurnTimeout bounds one agent run inside the handoff runtime.
	AgentTurnTimeout = 60 * time.Second

	// ToolExecutionTimeout is the timeout for individual tool execution.
	ToolExecutionTimeout = 30 * time.Second

	// EmbeddingTimeout is the timeout for embedding generation.
	EmbeddingTimeout = 15 * time.Second

	// RecallRephraseTimeout bounds the optional rephrasing of recalled memory.
	RecallRephraseTimeout = 20 * time.Second

	// MaxHops is the default ceiling of agent transitions per request.
	MaxHops = 10

	// MaxPlanAttempts is the number of attempts per plan step.
	MaxPlanAttempts = 2

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	MaxTruncateLength = 200
)
