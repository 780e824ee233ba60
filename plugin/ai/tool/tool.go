// Package tool defines the callable unit shared by handlers and agents.
package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/secretary/plugin/ai"
	"github.com/hrygo/secretary/plugin/ai/timeout"
)

// ErrMissingParameters is returned by Call when a required parameter is absent or empty.
var ErrMissingParameters = errors.New("missing required parameters")

// Scope identifies on whose behalf a tool runs.
type Scope struct {
	TenantID string
	UserID   string
	Locale   string
}

// Func is the callable behind a Tool. Arguments are already coerced.
type Func func(ctx context.Context, scope Scope, args Args) (Result, error)

// Tool is a tagged descriptor: name, description, parameter schema and callable.
type Tool struct {
	name        string
	description string
	properties  map[string]any
	required    []string
	fn          Func
	timeout     time.Duration
}

// Option configures a Tool.
type Option func(*Tool)

// WithTimeout sets a timeout for tool execution.
func WithTimeout(d time.Duration) Option {
	return func(t *Tool) {
		t.timeout = d
	}
}

// WithParam declares a parameter. typ is a JSON schema type: string, integer, number, array, object.
func WithParam(name, typ, description string, required bool) Option {
	return func(t *Tool) {
		t.properties[name] = map[string]any{"type": typ, "description": description}
		if required {
			t.required = append(t.required, name)
		}
	}
}

// New creates a Tool.
func New(name, description string, fn Func, opts ...Option) *Tool {
	t := &Tool{
		name:        name,
		description: description,
		properties:  map[string]any{},
		fn:          fn,
		timeout:     timeout.ToolExecutionTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tool) Name() string {
	return t.name
}

func (t *Tool) Description() string {
	return t.description
}

// Parameters returns the JSON schema of the arguments.
func (t *Tool) Parameters() map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": t.properties,
	}
	if len(t.required) > 0 {
		schema["required"] = t.required
	}
	return schema
}

// Spec converts the descriptor into a model-facing function definition.
func (t *Tool) Spec() ai.ToolSpec {
	return ai.ToolSpec{Name: t.name, Description: t.description, Parameters: t.Parameters()}
}

// Call coerces numeric parameters, checks required ones and runs the callable under the tool timeout.
func (t *Tool) Call(ctx context.Context, scope Scope, args Args) (Result, error) {
	args = t.coerce(args)
	var missing []string
	for _, name := range t.required {
		if v, ok := args[name]; !ok || v == nil || v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingParameters, strings.Join(missing, ", "))
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return t.fn(ctx, scope, args)
}

// coerce converts only the parameters declared as number or integer; free text stays as sent.
func (t *Tool) coerce(args Args) Args {
	out := args.Clone()
	for name, v := range out {
		prop, _ := t.properties[name].(map[string]any)
		switch prop["type"] {
		case "number", "integer":
			out[name] = CoerceValue(v)
		}
	}
	return out
}

// Find returns the tool with the given name.
func Find(tools []*Tool, name string) (*Tool, bool) {
	for _, t := range tools {
		if t.name == name {
			return t, true
		}
	}
	return nil, false
}
