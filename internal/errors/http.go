package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// backendErrorBody is the error envelope returned by the Pastibot API.
// message is either a string or a list of validation messages.
type backendErrorBody struct {
	Message json.RawMessage `json:"message"`
	Error   string          `json:"error"`
}

// FromResponse maps a non-2xx backend response to an AppError.
// It handles:
// - 401 → Unauthorized
// - 404 → NotFound
// - 409 → Conflict
// - 408, 429 and 5xx → Transient
// - any other 4xx → Credential
func FromResponse(status int, body []byte) *AppError {
	msg := backendMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}

	var code ErrorCode
	switch {
	case status == http.StatusUnauthorized:
		code = ErrCodeUnauthorized
	case status == http.StatusNotFound:
		code = ErrCodeNotFound
	case status == http.StatusConflict:
		code = ErrCodeConflict
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		code = ErrCodeTransient
	default:
		code = ErrCodeCredential
	}

	return &AppError{
		Code:    code,
		Message: msg,
		Status:  status,
	}
}

// FromTransport maps an error returned by the HTTP transport to an AppError.
func FromTransport(err error) *AppError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeCanceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTimeout, "request timed out")
	default:
		return Wrap(err, ErrCodeTransient, "backend unreachable")
	}
}

func backendMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var eb backendErrorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if len(eb.Message) > 0 {
		var s string
		if err := json.Unmarshal(eb.Message, &s); err == nil && s != "" {
			return s
		}
		var list []string
		if err := json.Unmarshal(eb.Message, &list); err == nil && len(list) > 0 {
			return strings.Join(list, "; ")
		}
	}
	return eb.Error
}
