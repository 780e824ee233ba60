package agent

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/hrygo/secretary/plugin/ai/tool"
)

// ErrorClass represents the category of a tool error.
type ErrorClass int

const (
	// ErrorClassTransient indicates a temporary error such as a network timeout.
	ErrorClassTransient ErrorClass = iota

	// ErrorClassPermanent indicates a non-retryable error.
	// Examples: validation failures, missing parameters
	ErrorClassPermanent

	// ErrorClassConflict indicates a uniqueness violation, e.g. a contact with the same phone.
	ErrorClassConflict
)

// String returns the string representation of ErrorClass.
func (e ErrorClass) String() string {
	switch e {
	case ErrorClassTransient:
		return "transient"
	case ErrorClassPermanent:
		return "permanent"
	case ErrorClassConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an error with its classification and the text shown to the user.
type ClassifiedError struct {
	Class    ErrorClass
	Original error
	// UserMessage carries the failure marker so that plan steps retry on it.
	UserMessage string
}

func (c *ClassifiedError) Error() string {
	if c.Original == nil {
		return fmt.Sprintf("classified error: class=%s", c.Class)
	}
	return fmt.Sprintf("%s: %v", c.Class, c.Original)
}

func (c *ClassifiedError) Unwrap() error {
	return c.Original
}

// ClassifyError analyzes an error raised while invoking toolName.
func ClassifyError(toolName string, err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	if errors.Is(err, tool.ErrMissingParameters) {
		detail := err.Error()
		if _, after, ok := strings.Cut(detail, ": "); ok {
			detail = after
		}
		return &ClassifiedError{
			Class:       ErrorClassPermanent,
			Original:    err,
			UserMessage: tool.Failure("Неверные параметры для %s: %s", toolName, detail).Text,
		}
	}

	errMsg := strings.ToLower(err.Error())

	// sqlite: "UNIQUE constraint failed", postgres: "violates unique constraint"
	if strings.Contains(errMsg, "unique constraint") {
		return &ClassifiedError{
			Class:       ErrorClassConflict,
			Original:    err,
			UserMessage: tool.Failure("Такая запись уже существует").Text,
		}
	}
	// sqlite: "NOT NULL constraint failed", postgres: "violates not-null constraint"
	if strings.Contains(errMsg, "not null") || strings.Contains(errMsg, "not-null") {
		return &ClassifiedError{
			Class:       ErrorClassPermanent,
			Original:    err,
			UserMessage: tool.Failure("Не заполнены обязательные поля").Text,
		}
	}

	if isNetworkError(err) || isTimeoutError(err) {
		return &ClassifiedError{
			Class:       ErrorClassTransient,
			Original:    err,
			UserMessage: tool.Failure("Сервис временно недоступен, попробуйте позже").Text,
		}
	}

	detail := []rune(err.Error())
	if len(detail) > 100 {
		detail = detail[:100]
	}
	return &ClassifiedError{
		Class:       ErrorClassPermanent,
		Original:    err,
		UserMessage: tool.Failure("Ошибка: %s", string(detail)).Text,
	}
}

// isNetworkError checks if an error is network-related (transient).
func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	networkPatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"network is unreachable",
		"no such host",
		"dial tcp",
	}
	for _, pattern := range networkPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

// isTimeoutError checks if an error is timeout-related (transient).
func isTimeoutError(err error) bool {
	errMsg := strings.ToLower(err.Error())
	timeoutPatterns := []string{
		"timeout",
		"deadline exceeded",
		"operation timed out",
	}
	for _, pattern := range timeoutPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
