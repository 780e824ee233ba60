// Package handler holds the business handlers the intent router dispatches to.
package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/internal/timezone"
	"github.com/hrygo/secretary/plugin/ai"
	"github.com/hrygo/secretary/plugin/ai/tool"
	"github.com/hrygo/secretary/store"
)

// Info describes a handler to users and to the model.
type Info struct {
	ID          string
	Name        string
	Description string
	Icon        string
}

// Outcome is the result of one handler invocation.
type Outcome struct {
	Success bool
	Message string
	Data    map[string]any
}

// Request carries one classified intent to a handler. Queries is the transactional
// unit opened for this invocation; handlers must not write anywhere else.
type Request struct {
	Scope   tool.Scope
	Args    tool.Args
	Queries store.Queries
}

// Handler is a stateless business capability.
type Handler interface {
	ID() string
	Info() Info
	// Keywords are lowercase substrings used by the deterministic fallback classifier.
	Keywords() []string
	// Describe returns the prompt fragment explaining when to pick this handler and which data to extract.
	Describe(locale string) string
	// Tools are the same capabilities exposed to tool-calling agents.
	Tools() []*tool.Tool
	Process(ctx context.Context, req *Request) (*Outcome, error)
}

// TxRunner runs a function in its own transactional unit.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(q store.Queries) error) error
}

// Deps are the collaborators shared by the built-in handlers.
type Deps struct {
	Store    TxRunner
	LLM      ai.LLMService // optional
	Location *time.Location
	Now      func() time.Time
}

func (d Deps) now() time.Time {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	loc := d.Location
	if loc == nil {
		loc = timezone.DefaultLocation()
	}
	return now().In(loc)
}

// Builtin returns every built-in handler in catalog order.
func Builtin(deps Deps) []Handler {
	return []Handler{
		NewFinanceHandler(deps),
		NewMeetingHandler(deps),
		NewTaskHandler(deps),
		NewContactsHandler(deps),
		NewMessagingHandler(deps),
		NewNegotiationHandler(deps),
		NewGeneralHandler(deps),
	}
}

func success(format string, a ...any) *Outcome {
	return &Outcome{Success: true, Message: fmt.Sprintf(format, a...)}
}

func reject(format string, a ...any) *Outcome {
	return &Outcome{Success: false, Message: fmt.Sprintf(format, a...)}
}

// outcomeResult turns a handler outcome into a tool result.
func outcomeResult(o *Outcome) tool.Result {
	if !o.Success {
		return tool.Failure("%s", o.Message)
	}
	return tool.PlainReply{Text: o.Message}
}

// viaTool runs process in its own transaction so a handler can back its tools.
func viaTool(deps Deps, process func(ctx context.Context, req *Request) (*Outcome, error), preset tool.Args) tool.Func {
	return func(ctx context.Context, scope tool.Scope, args tool.Args) (tool.Result, error) {
		merged := args.Clone()
		for k, v := range preset {
			merged[k] = v
		}
		var out *Outcome
		err := deps.Store.RunInTx(ctx, func(q store.Queries) error {
			var err error
			out, err = process(ctx, &Request{Scope: scope, Args: merged, Queries: q})
			if err != nil {
				return err
			}
			if !out.Success {
				return errRejected
			}
			return nil
		})
		if err != nil && !errors.Is(err, errRejected) {
			return nil, err
		}
		return outcomeResult(out), nil
	}
}

var errRejected = errors.New("handler rejected the request")

func formatAmount(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	if v != float64(int64(v)) {
		s = fmt.Sprintf("%.2f", v)
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if neg {
		out = "-" + out
	}
	if hasFrac {
		out += "," + frac
	}
	return out
}
