package tool

import (
	"fmt"
	"strings"
)

// FailurePrefix marks a result text as a failure. Plan steps are retried on it.
const FailurePrefix = "❌"

// Result is the closed set of tool outcomes the handoff runtime dispatches on.
type Result interface {
	fmt.Stringer
	isResult()
}

// PlainReply is final text.
type PlainReply struct {
	Text string
}

// FollowUpCall asks the runtime to invoke one more tool and return its result.
type FollowUpCall struct {
	Agent string
	Tool  string
	Args  Args
}

// SearchAndSave asks the runtime to look up a phone number and store it as a contact.
type SearchAndSave struct {
	Query string
	Name  string
}

// RunPlan hands a list of steps to the plan executor. Each step is a Step,
// a map decoded from JSON, or a string in one of the textual step formats.
type RunPlan struct {
	Steps []any
}

func (PlainReply) isResult()    {}
func (FollowUpCall) isResult()  {}
func (SearchAndSave) isResult() {}
func (RunPlan) isResult()       {}

func (r PlainReply) String() string {
	return r.Text
}

func (r FollowUpCall) String() string {
	return fmt.Sprintf("follow-up %s.%s", r.Agent, r.Tool)
}

func (r SearchAndSave) String() string {
	return fmt.Sprintf("search and save %q as %q", r.Query, r.Name)
}

func (r RunPlan) String() string {
	return fmt.Sprintf("plan of %d steps", len(r.Steps))
}

// Reply builds a PlainReply.
func Reply(format string, a ...any) PlainReply {
	return PlainReply{Text: fmt.Sprintf(format, a...)}
}

// Failure builds a PlainReply carrying the failure marker.
func Failure(format string, a ...any) PlainReply {
	return PlainReply{Text: FailurePrefix + " " + fmt.Sprintf(format, a...)}
}

// IsFailure reports whether text carries the failure marker.
func IsFailure(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), FailurePrefix)
}

// Step is a structured plan step.
type Step struct {
	Agent  string `json:"agent"`
	Tool   string `json:"tool"`
	Params Args   `json:"params"`
}
