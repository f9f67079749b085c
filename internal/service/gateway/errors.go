package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/genai"
)

var (
	ErrRateLimited        = errors.New("model service rate limited the request")
	ErrServiceUnavailable = errors.New("model service unavailable")
	ErrInvalidResponse    = errors.New("model service returned an invalid response")
	ErrTimeout            = errors.New("model service timed out")
)

// Error is a classified gateway failure. Kind is one of the sentinel errors
// above and is matched by errors.Is.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Retryable reports whether the same request may succeed later.
func (e *Error) Retryable() bool {
	return e.Kind == ErrTimeout || e.Kind == ErrRateLimited
}

// IsRetryable reports whether err is a retryable gateway failure.
func IsRetryable(err error) bool {
	var gwErr *Error
	return errors.As(err, &gwErr) && gwErr.Retryable()
}

// statusPattern also matches the "Error 429, Message: ..." text of genai.
var statusPattern = regexp.MustCompile(`(?i)(?:status(?:\s*code)?|error)[\s:=]*(\d{3})\b`)

// providerStatuses are the status names Google APIs report.
var providerStatuses = []struct {
	name string
	kind error
}{
	{"RESOURCE_EXHAUSTED", ErrRateLimited},
	{"DEADLINE_EXCEEDED", ErrTimeout},
	{"UNAVAILABLE", ErrServiceUnavailable},
	{"INTERNAL", ErrServiceUnavailable},
	{"INVALID_ARGUMENT", ErrInvalidResponse},
}

// Classify maps a provider error to a *Error.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: ErrTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: ErrTimeout, Err: err}
	}

	if kind := apiErrorKind(err); kind != nil {
		return &Error{Kind: kind, Err: err}
	}

	msg := err.Error()
	if m := statusPattern.FindStringSubmatch(msg); m != nil {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil {
			if kind := kindForStatus(code); kind != nil {
				return &Error{Kind: kind, Err: err}
			}
		}
	}

	for _, status := range providerStatuses {
		if strings.Contains(msg, status.name) {
			return &Error{Kind: status.kind, Err: err}
		}
	}

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "rate limit"), strings.Contains(lower, "too many requests"):
		return &Error{Kind: ErrRateLimited, Err: err}
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "timed out"):
		return &Error{Kind: ErrTimeout, Err: err}
	}
	return &Error{Kind: ErrServiceUnavailable, Err: err}
}

// apiErrorKind classifies errors returned by the genai client.
func apiErrorKind(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *genai.APIError
		if !errors.As(err, &ptr) || ptr == nil {
			return nil
		}
		apiErr = *ptr
	}
	if kind := kindForStatus(apiErr.Code); kind != nil {
		return kind
	}
	for _, status := range providerStatuses {
		if status.name == apiErr.Status {
			return status.kind
		}
	}
	return nil
}

func kindForStatus(code int) error {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		return ErrTimeout
	case code >= 500:
		return ErrServiceUnavailable
	case code >= 400:
		return ErrInvalidResponse
	}
	return nil
}
