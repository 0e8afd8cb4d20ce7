// Package recovery classifies failures into a small taxonomy and drives the
// user-confirmed retry loop shared by every network operation.
package recovery

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// ErrorKind is the category an error falls into after classification
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNetwork
	KindAuthentication
	KindValidation
	KindRemoteAPI
	KindGenerationService
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "NETWORK"
	case KindAuthentication:
		return "AUTHENTICATION"
	case KindValidation:
		return "VALIDATION"
	case KindRemoteAPI:
		return "REMOTE_API"
	case KindGenerationService:
		return "GENERATION_SERVICE"
	default:
		return "UNKNOWN"
	}
}

// AppError is a classified failure. Kind is fixed when the error is built.
type AppError struct {
	Kind       ErrorKind
	Message    string
	Retryable  bool
	StatusCode int // 0 when no status code is known
	Err        error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError builds a non-retryable validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Kind:      KindValidation,
		Message:   message,
		Retryable: false,
	}
}

// statusCoder is implemented by transport errors that know their HTTP status
type statusCoder interface {
	StatusCode() int
}

var statusCodeRegex = regexp.MustCompile(`\b([45]\d{2})\b`)

var (
	networkPatterns = []string{
		"connection refused", "econnrefused",
		"no such host", "enotfound", "host not found",
		"timeout", "timed out", "etimedout",
	}
	authPatterns = []string{
		"401", "unauthorized", "invalid api key", "invalid x-api-key",
	}
	remoteAPIPatterns = []string{
		"400", "403", "404",
	}
	generationPatterns = []string{
		"anthropic", "claude", "openai", "generation service",
	}
)

// Classify maps an arbitrary error onto the taxonomy. An error that is
// already classified is returned unchanged. Classify(nil) returns nil.
//
// Precedence (first match wins): network, authentication, tracker API,
// generation service, unknown.
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	message := err.Error()
	lower := strings.ToLower(message)
	status := statusCodeOf(err, lower)

	switch {
	case errors.Is(err, context.DeadlineExceeded) || containsAny(lower, networkPatterns):
		return &AppError{Kind: KindNetwork, Message: message, Retryable: false, StatusCode: status, Err: err}
	case status == 401 || containsAny(lower, authPatterns):
		return &AppError{Kind: KindAuthentication, Message: message, Retryable: false, StatusCode: status, Err: err}
	case status == 400 || status == 403 || status == 404 || containsAny(lower, remoteAPIPatterns):
		return &AppError{Kind: KindRemoteAPI, Message: message, Retryable: true, StatusCode: status, Err: err}
	case containsAny(lower, generationPatterns):
		return &AppError{Kind: KindGenerationService, Message: message, Retryable: true, StatusCode: status, Err: err}
	default:
		return &AppError{Kind: KindUnknown, Message: message, Retryable: true, StatusCode: status, Err: err}
	}
}

// statusCodeOf prefers a status carried by the error chain and falls back
// to the first 4xx/5xx number in the message
func statusCodeOf(err error, lower string) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	if m := statusCodeRegex.FindStringSubmatch(lower); m != nil {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil {
			return code
		}
	}
	return 0
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// Hints returns remediation suggestions shown alongside the error message
func Hints(e *AppError) []string {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case KindNetwork:
		return []string{
			"Check your network connection",
			"Verify the gateway URL in your configuration",
			"The gateway may be down; try again later",
		}
	case KindAuthentication:
		return []string{
			"Verify ANTHROPIC_API_KEY is set and valid",
			"Verify the gateway token in your configuration",
		}
	case KindValidation:
		return []string{"Check the values you entered and try again"}
	case KindRemoteAPI:
		return []string{
			"Check that the project key exists and you have access to it",
			"The query may reference fields the tracker does not know",
		}
	case KindGenerationService:
		return []string{
			"The language model service may be overloaded or rate limited",
			"Waiting a few seconds before retrying usually helps",
		}
	default:
		return []string{"An unexpected error occurred; retrying may help"}
	}
}
