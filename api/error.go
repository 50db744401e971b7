package api

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies a marketplace failure for user display. Kinds are
// part of the wire contract; unknown values decode as KindGeneric.
type ErrorKind string

const (
	KindInsufficientBalance ErrorKind = "insufficient_balance"
	KindTimeout             ErrorKind = "timeout"
	KindUnavailable         ErrorKind = "unavailable"
	KindNetwork             ErrorKind = "network"
	KindAuth                ErrorKind = "auth"
	KindQuota               ErrorKind = "quota"
	KindGeneric             ErrorKind = "generic"
)

// Error encodes an error as a JSON-serializable struct.
type Error struct {
	// HTTP status code, such as 404
	Code int `json:"code"`

	// Machine-readable classification of the failure.
	Kind ErrorKind `json:"kind,omitempty"`

	// The text of the error, which should follow the guidelines found at:
	// https://github.com/golang/go/wiki/CodeReviewComments#error-strings
	Message string `json:"message"`

	// (optional) An identifier for this error for tracing purposes
	ErrorID string `json:"error_id,omitempty"`
}

// Error implements the standard error interface.
func (e Error) Error() string {
	return e.Message
}

// Format implements the fmt.Formatter interface.
func (e Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v', 's':
		fmt.Fprint(s, e.messageWithErrorID())
	case 'q':
		fmt.Fprintf(s, "%q", e.messageWithErrorID())
	}
}

func (e Error) messageWithErrorID() string {
	if len(e.ErrorID) > 0 {
		return fmt.Sprintf("%s (error_id %s)", e.Message, e.ErrorID)
	}
	return e.Message
}

// ResolveKind returns the error's classification, deriving one from the
// HTTP status code and message when the server didn't send a kind field.
func (e Error) ResolveKind() ErrorKind {
	if e.Kind != "" {
		return e.Kind
	}
	if kind := kindFromStatus(e.Code); kind != KindGeneric {
		return kind
	}
	return InferKind(e.Message)
}

// UserMessage returns a short display string for an error kind. Generic
// errors fall back to a truncated copy of the message itself.
func (e Error) UserMessage() string {
	switch e.ResolveKind() {
	case KindInsufficientBalance:
		return "insufficient balance"
	case KindTimeout:
		return "connection timed out"
	case KindUnavailable:
		return "machine no longer available"
	case KindNetwork:
		return "network error"
	case KindAuth:
		return "authentication failed"
	case KindQuota:
		return "instance limit exceeded"
	default:
		return truncate(e.Message, 30)
	}
}

func kindFromStatus(code int) ErrorKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusPaymentRequired:
		return KindInsufficientBalance
	case http.StatusNotFound, http.StatusGone, http.StatusConflict:
		return KindUnavailable
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimeout
	case http.StatusTooManyRequests:
		return KindQuota
	default:
		return KindGeneric
	}
}

// InferKind classifies a bare error message by substring matching. This is a
// fallback for backends that don't populate the kind field; prefer
// ResolveKind on a decoded api.Error.
func InferKind(message string) ErrorKind {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "insufficient") || strings.Contains(msg, "balance"):
		return KindInsufficientBalance
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return KindTimeout
	case strings.Contains(msg, "unavailable") || strings.Contains(msg, "no longer"):
		return KindUnavailable
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "forbidden") || strings.Contains(msg, "token"):
		return KindAuth
	case strings.Contains(msg, "quota") || strings.Contains(msg, "limit"):
		return KindQuota
	case strings.Contains(msg, "network") || strings.Contains(msg, "connection refused"):
		return KindNetwork
	default:
		return KindGeneric
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
