package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// FallbackMessage is shown when the backend error envelope carries nothing usable.
const FallbackMessage = "Something went wrong"

var (
	// ErrSessionExpired means the refresh-and-retry path failed. Tokens have
	// been cleared and the user must log in again.
	ErrSessionExpired = errors.New("session expired")

	// ErrNotConfigured is returned when no API base URL is set.
	ErrNotConfigured = errors.New("backend base url not configured")
)

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	StatusText string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.StatusText, e.Message)
}

type envelope struct {
	Detail  json.RawMessage            `json:"detail"`
	Errors  map[string]json.RawMessage `json:"errors"`
	Message json.RawMessage            `json:"message"`
}

// ParseError builds an APIError from a response status and body.
func ParseError(status int, body []byte) *APIError {
	return &APIError{
		StatusCode: status,
		StatusText: http.StatusText(status),
		Message:    ResolveMessage(body),
	}
}

// ResolveMessage picks the user-facing message from an error body: detail,
// then the first field error, then message, then FallbackMessage.
func ResolveMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return FallbackMessage
	}
	if s := firstString(env.Detail); s != "" {
		return s
	}
	if len(env.Errors) > 0 {
		keys := make([]string, 0, len(env.Errors))
		for k := range env.Errors {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s := firstString(env.Errors[k]); s != "" {
				return s
			}
		}
	}
	if s := firstString(env.Message); s != "" {
		return s
	}
	return FallbackMessage
}

// firstString accepts either a JSON string or an array whose first string
// element is used.
func firstString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			if s := firstString(item); s != "" {
				return s
			}
		}
	}
	return ""
}

// Message returns the text to show a user for err.
func Message(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, ErrSessionExpired):
		return "Your session has expired. Please log in again."
	}
	return FallbackMessage
}

// Status returns the HTTP status code to report for err.
func Status(err error) int {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.StatusCode
	case errors.Is(err, ErrSessionExpired):
		return http.StatusUnauthorized
	}
	return http.StatusBadGateway
}
