package agent

import "errors"

var (
	// ErrAgentNotFound indicates that no agent (or alias) carries the requested name.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrToolNotFound indicates the requested tool does not exist on the agent.
	ErrToolNotFound = errors.New("tool not found")

	// ErrHopLimit indicates the runtime stopped after exhausting its hop budget.
	ErrHopLimit = errors.New("hop limit reached")

	// ErrUnknownStepFormat indicates a plan step in none of the accepted shapes.
	ErrUnknownStepFormat = errors.New("unknown step format")
)
