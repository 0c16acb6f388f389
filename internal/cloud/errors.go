package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Exported variables.
var (
	ErrNotLoggedIn   = errors.New("not logged in")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrReplyPending  = errors.New("reply still pending")
	ErrInvalidServer = errors.New("invalid server URL")
)

// APIError describes a failed API call. StatusCode is 0 when the request
// never got a response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Detail     string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}

	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}

	return msg
}

// Unwrap exposes ErrUnauthorized for 401 responses and the transport error otherwise.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	return e.Err
}

// ErrorReason returns the text shown to the user for a failed call: the
// server's own message when it sent one, otherwise the HTTP status text or
// the transport error.
func ErrorReason(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.Canceled) {
		return "operation cancelled"
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	if apiErr.Detail != "" {
		return apiErr.Detail
	}

	if apiErr.StatusCode != 0 {
		return http.StatusText(apiErr.StatusCode)
	}

	if apiErr.Err != nil {
		return apiErr.Err.Error()
	}

	return apiErr.Error()
}

// parseDetail extracts a readable message from an error body. It knows
// {"detail": ...}, {"message": ...} and field-error maps such as
// {"name": ["This field is required."]}.
func parseDetail(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}

	for _, key := range []string{"detail", "message", "non_field_errors"} {
		if msg := flatten(payload[key]); msg != "" {
			return msg
		}
	}

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		if msg := flatten(payload[key]); msg != "" {
			parts = append(parts, key+": "+msg)
		}
	}

	return strings.Join(parts, "; ")
}

func flatten(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := flatten(item); s != "" {
				parts = append(parts, s)
			}
		}

		return strings.Join(parts, " ")
	default:
		return ""
	}
}
