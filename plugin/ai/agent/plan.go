package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/plugin/ai/timeout"
	"github.com/hrygo/secretary/plugin/ai/tool"
)

var (
	// agent.tool(key=value, ...)
	callStepPattern = regexp.MustCompile(`^(\w+)\.(\w+)\((.*)\)$`)
	callArgPattern  = regexp.MustCompile(`(\w+)=["']?([^,"']+)["']?`)
	placeholderKey  = regexp.MustCompile(`\{\{(\w+)\}\}`)
)

// ParseStep accepts a tool.Step, a decoded JSON object, a JSON string, the
// agent.tool(key=value) call form or the agent:tool:key=value,... colon form.
func ParseStep(raw any) (tool.Step, error) {
	switch s := raw.(type) {
	case tool.Step:
		return checkStep(s, raw)
	case *tool.Step:
		if s == nil {
			break
		}
		return checkStep(*s, raw)
	case map[string]any:
		return checkStep(stepFromMap(s), raw)
	case tool.Args:
		return checkStep(stepFromMap(s), raw)
	case string:
		return parseStepString(strings.TrimSpace(s))
	}
	return tool.Step{}, errors.Wrapf(ErrUnknownStepFormat, "%v", raw)
}

func checkStep(step tool.Step, raw any) (tool.Step, error) {
	if step.Agent == "" || step.Tool == "" {
		return tool.Step{}, errors.Wrapf(ErrUnknownStepFormat, "%v", raw)
	}
	if step.Params == nil {
		step.Params = tool.Args{}
	}
	return step, nil
}

func stepFromMap(m map[string]any) tool.Step {
	step := tool.Step{Params: tool.Args{}}
	step.Agent, _ = m["agent"].(string)
	step.Tool, _ = m["tool"].(string)
	if params, ok := m["params"].(map[string]any); ok {
		step.Params = tool.Args(params)
	} else if params, ok := m["params"].(tool.Args); ok {
		step.Params = params
	}
	return step
}

func parseStepString(s string) (tool.Step, error) {
	if strings.HasPrefix(s, "{") {
		var m map[string]any
		if err := json.Unmarshal([]byte(s), &m); err == nil {
			if step, err := checkStep(stepFromMap(m), s); err == nil {
				return step, nil
			}
		}
	}

	if m := callStepPattern.FindStringSubmatch(s); m != nil {
		params := tool.Args{}
		for _, kv := range callArgPattern.FindAllStringSubmatch(m[3], -1) {
			params[kv[1]] = strings.TrimSpace(kv[2])
		}
		return tool.Step{Agent: m[1], Tool: m[2], Params: params}, nil
	}

	if parts := strings.SplitN(s, ":", 3); len(parts) >= 2 && parts[0] != "" && parts[1] != "" {
		params := tool.Args{}
		if len(parts) == 3 {
			for _, pair := range strings.Split(parts[2], ",") {
				if k, v, ok := strings.Cut(pair, "="); ok {
					params[strings.TrimSpace(k)] = strings.TrimSpace(v)
				}
			}
		}
		return tool.Step{Agent: strings.TrimSpace(parts[0]), Tool: strings.TrimSpace(parts[1]), Params: params}, nil
	}

	return tool.Step{}, errors.Wrapf(ErrUnknownStepFormat, "%s", s)
}

// injectContext substitutes {{key}} placeholders in string params with earlier results
// and fills an empty phone param from context.
func injectContext(params tool.Args, values map[string]string) tool.Args {
	out := params.Clone()
	for k, v := range out {
		s, ok := v.(string)
		if !ok {
			continue
		}
		out[k] = placeholderKey.ReplaceAllStringFunc(s, func(ph string) string {
			if val, ok := values[ph[2:len(ph)-2]]; ok {
				return val
			}
			return ph
		})
	}
	if phone, ok := values["phone"]; ok && out.String("phone") == "" {
		if _, present := out["phone"]; present {
			out["phone"] = phone
		}
	}
	return out
}

// executePlan runs every step in order. Failures are reported and never stop the plan.
func (r *Runtime) executePlan(ctx context.Context, scope tool.Scope, steps []any, status StatusFunc) string {
	if len(steps) == 0 {
		return tool.Failure("Не указаны шаги для выполнения").Text
	}

	values := map[string]string{}
	lines := make([]string, 0, len(steps))
	for i, raw := range steps {
		n := i + 1
		status.emit("📋 Шаг %d/%d…", n, len(steps))

		var result string
		for attempt := 1; attempt <= timeout.MaxPlanAttempts; attempt++ {
			result = r.executeStep(ctx, scope, raw, values, attempt > 1)
			if !tool.IsFailure(result) {
				break
			}
			slog.Warn("plan step failed", "step", n, "attempt", attempt, "result", truncateString(result, timeout.MaxTruncateLength))
		}

		values[fmt.Sprintf("step_%d_result", n)] = result
		if phone := ExtractPhone(result); phone != "" {
			values["phone"] = phone
		}

		failed := tool.IsFailure(result)
		r.metrics.RecordPlanStep(failed)
		mark := "✅"
		if failed {
			mark = "⚠️"
		}
		lines = append(lines, fmt.Sprintf("%s Шаг %d: %s", mark, n, result))
	}
	return strings.Join(lines, "\n\n")
}

// executeStep runs one step. A retry normalizes the parameters first.
func (r *Runtime) executeStep(ctx context.Context, scope tool.Scope, raw any, values map[string]string, retry bool) string {
	step, err := ParseStep(raw)
	if err != nil {
		return tool.Failure("Неизвестный формат шага: %v", raw).Text
	}
	params := injectContext(step.Params, values)
	if retry {
		params = recoverParams(params)
	}
	params = params.Coerced()
	slog.Debug("plan step", "agent", step.Agent, "tool", step.Tool)
	return r.resolver.Call(ctx, scope, step.Agent, step.Tool, params)
}
