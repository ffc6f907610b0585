package errors

import (
	"fmt"
	"strings"
)

// Kind classifies proxy errors for handler-side decisions (retry, disable,
// dialect envelope selection).
type Kind string

const (
	KindInvalidRequest     Kind = "invalid_request"
	KindAuthRequired       Kind = "auth_required"
	KindNoAvailableAccount Kind = "no_available_account"
	// KindPermissionDenied covers the upstream "The caller does not" 403,
	// treated as context overflow rather than a dead token.
	KindPermissionDenied Kind = "permission_denied"
	KindTokenInvalid     Kind = "token_invalid"
	KindRateLimit        Kind = "rate_limit"
	KindUpstream         Kind = "upstream_error"
	KindRefreshFailed    Kind = "refresh_failed"
	KindTransport        Kind = "transport_error"
)

// APIError is the standardized error carried between upstream calls and
// dialect handlers.
type APIError struct {
	Kind       Kind
	HTTPStatus int
	Message    string
	// UpstreamBody preserves the raw upstream error payload when helpful.
	UpstreamBody []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status=%d): %s", e.Kind, e.HTTPStatus, e.Message)
}

// New creates an APIError with the given classification.
func New(kind Kind, status int, message string) *APIError {
	return &APIError{Kind: kind, HTTPStatus: status, Message: message}
}

// Newf formats the message.
func Newf(kind Kind, status int, format string, args ...interface{}) *APIError {
	return New(kind, status, fmt.Sprintf(format, args...))
}

// FromUpstreamStatus classifies an upstream non-2xx response.
func FromUpstreamStatus(status int, body []byte) *APIError {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = fmt.Sprintf("upstream returned status %d", status)
	}
	e := &APIError{HTTPStatus: status, Message: msg, UpstreamBody: body}
	switch {
	case status == 403 && strings.Contains(msg, "The caller does not"):
		e.Kind = KindPermissionDenied
	case status == 403 || status == 401:
		e.Kind = KindTokenInvalid
	case status == 429:
		e.Kind = KindRateLimit
	case status == 400:
		e.Kind = KindInvalidRequest
	default:
		e.Kind = KindUpstream
	}
	return e
}

// AsAPIError unwraps err into an APIError, wrapping foreign errors as
// transport failures.
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*APIError); ok {
		return ae
	}
	return &APIError{Kind: KindTransport, HTTPStatus: 502, Message: err.Error()}
}
