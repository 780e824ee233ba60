package tool

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Args holds tool or intent arguments.
type Args map[string]any

// ParseArgs decodes a JSON object. Empty input yields empty Args.
func ParseArgs(raw string) (Args, error) {
	args := Args{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	return args, nil
}

// Clone returns a shallow copy.
func (a Args) Clone() Args {
	out := make(Args, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// SetDefault sets key only when it is absent or empty.
func (a Args) SetDefault(key string, value any) {
	if v, ok := a[key]; !ok || v == nil || v == "" {
		a[key] = value
	}
}

// String renders the value under key as text.
func (a Args) String(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// Float reads a numeric value, accepting numbers and numeric strings.
func (a Args) Float(key string) (float64, bool) {
	switch x := a[key].(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(x), " ", ""), 64)
		return f, err == nil
	}
	return 0, false
}

// Int reads an integral value.
func (a Args) Int(key string) (int64, bool) {
	f, ok := a.Float(key)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// Coerced returns a copy in which numeric-looking strings became int64 or float64.
// Plan steps are coerced wholesale; Tool.Call coerces declared numeric parameters only.
func (a Args) Coerced() Args {
	out := make(Args, len(a))
	for k, v := range a {
		out[k] = CoerceValue(v)
	}
	return out
}

// CoerceValue converts an all-digit string to int64 and a digits.digits string to float64.
// Strings with a leading zero, a sign or any other character are left untouched so that
// phone numbers and identifiers survive.
func CoerceValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return v
	}

	intPart, fracPart, hasDot := strings.Cut(s, ".")
	if !isDigits(intPart) || (len(intPart) > 1 && intPart[0] == '0' && !hasDot) {
		return v
	}
	if !hasDot {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return v
		}
		return n
	}
	if !isDigits(fracPart) {
		return v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return v
	}
	return f
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
