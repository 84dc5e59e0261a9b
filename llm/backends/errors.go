package backends

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/llmgate/llmgate/types"
)

// ReadErrorMessage extracts a human-readable message from an error response
// body. Providers wrap messages in an error envelope; anything else is
// returned as trimmed raw text.
func ReadErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}

	var envelope errorEnvelope
	if json.Unmarshal(data, &envelope) == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return strings.TrimSpace(string(data))
}

// MapHTTPError classifies a non-2xx status into the failure taxonomy.
// A 400 that names the structured-output machinery means the backend cannot
// honor the request shape at all and the orchestrator should advance.
func MapHTTPError(backend string, status int, message string) *types.Error {
	if message == "" {
		message = http.StatusText(status)
	}
	msg := fmt.Sprintf("%s returned HTTP %d: %s", backend, status, message)

	var err *types.Error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		err = types.NewError(types.ErrAuthentication, msg)
	case status == http.StatusTooManyRequests:
		err = types.NewError(types.ErrRateLimited, msg).WithRetryable(true)
	case status == http.StatusRequestTimeout:
		err = types.NewError(types.ErrTimeout, msg).WithRetryable(true)
	case status == http.StatusBadRequest && mentionsSchemaMachinery(message):
		err = types.NewError(types.ErrBackendIncompatible, msg)
	case status >= 400 && status < 500:
		err = types.NewError(types.ErrInvalidRequest, msg)
	case status >= 500:
		err = types.NewError(types.ErrUpstream, msg).WithRetryable(true)
	default:
		err = types.NewError(types.ErrUpstream, msg)
	}
	return err.WithHTTPStatus(status).WithBackend(backend)
}

func mentionsSchemaMachinery(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "response_format") ||
		strings.Contains(lower, "json_schema") ||
		strings.Contains(lower, "schema")
}
