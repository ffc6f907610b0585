package errors

import "net/http"

// OpenAIEnvelope renders the OpenAI error body: {error:{message,type,code}}.
func OpenAIEnvelope(e *APIError) map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"message": e.Message,
			"type":    openAIType(e),
			"code":    e.HTTPStatus,
		},
	}
}

// GeminiEnvelope renders the Gemini error body: {error:{code,message,status}}.
func GeminiEnvelope(e *APIError) map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"code":    e.HTTPStatus,
			"message": e.Message,
			"status":  geminiStatus(e.HTTPStatus),
		},
	}
}

// ClaudeEnvelope renders the Anthropic error body:
// {type:"error", error:{type,message}}.
func ClaudeEnvelope(e *APIError) map[string]interface{} {
	return map[string]interface{}{
		"type": "error",
		"error": map[string]interface{}{
			"type":    claudeType(e),
			"message": e.Message,
		},
	}
}

func openAIType(e *APIError) string {
	switch e.Kind {
	case KindInvalidRequest:
		return "invalid_request_error"
	case KindAuthRequired, KindTokenInvalid:
		return "authentication_error"
	case KindRateLimit:
		return "rate_limit_error"
	case KindNoAvailableAccount:
		return "service_unavailable_error"
	default:
		return "api_error"
	}
}

func claudeType(e *APIError) string {
	switch e.Kind {
	case KindAuthRequired, KindTokenInvalid:
		return "authentication_error"
	case KindRateLimit:
		return "rate_limit_error"
	case KindInvalidRequest:
		return "invalid_request_error"
	default:
		return "api_error"
	}
}

func geminiStatus(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "INVALID_ARGUMENT"
	case http.StatusUnauthorized:
		return "UNAUTHENTICATED"
	case http.StatusForbidden:
		return "PERMISSION_DENIED"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusTooManyRequests:
		return "RESOURCE_EXHAUSTED"
	case http.StatusServiceUnavailable:
		return "UNAVAILABLE"
	case http.StatusGatewayTimeout:
		return "DEADLINE_EXCEEDED"
	default:
		if code >= 500 {
			return "INTERNAL"
		}
		return "UNKNOWN"
	}
}
