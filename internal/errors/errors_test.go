package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeCredential,
				Message: "invalid credentials",
			},
			want: "invalid credentials",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeTransient,
				Message: "backend unreachable",
				Cause:   errors.New("connection refused"),
			},
			want: "backend unreachable: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &AppError{
		Code:    ErrCodeInternal,
		Message: "wrapped error",
		Cause:   cause,
	}

	if unwrapped := err.Unwrap(); !errors.Is(unwrapped, cause) {
		t.Errorf("AppError.Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code ErrorCode
		msg  string
	}{
		{name: "unauthorized", err: Unauthorized("token expired"), code: ErrCodeUnauthorized, msg: "token expired"},
		{name: "credential", err: Credential("bad password"), code: ErrCodeCredential, msg: "bad password"},
		{name: "credentialf", err: Credentialf("provider %s rejected", "google"), code: ErrCodeCredential, msg: "provider google rejected"},
		{name: "transient", err: Transient("try later"), code: ErrCodeTransient, msg: "try later"},
		{name: "validation", err: Validation("bad input"), code: ErrCodeValidation, msg: "bad input"},
		{name: "validationf", err: Validationf("age %d invalid", -1), code: ErrCodeValidation, msg: "age -1 invalid"},
		{name: "not found", err: NotFound("missing"), code: ErrCodeNotFound, msg: "missing"},
		{name: "conflict", err: Conflict("exists"), code: ErrCodeConflict, msg: "exists"},
		{name: "internal", err: Internal("boom"), code: ErrCodeInternal, msg: "boom"},
		{name: "internalf", err: Internalf("boom %d", 2), code: ErrCodeInternal, msg: "boom 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
			}
			if tt.err.Message != tt.msg {
				t.Errorf("Message = %q, want %q", tt.err.Message, tt.msg)
			}
		})
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("emergencyPhone", "emergency phone is required")
	if err.Code != ErrCodeValidation {
		t.Errorf("ValidationField().Code = %v, want %v", err.Code, ErrCodeValidation)
	}
	if err.Field != "emergencyPhone" {
		t.Errorf("ValidationField().Field = %v, want emergencyPhone", err.Field)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(cause, ErrCodeTransient, "backend unreachable")

	if err.Code != ErrCodeTransient {
		t.Errorf("Wrap().Code = %v, want %v", err.Code, ErrCodeTransient)
	}
	if !errors.Is(err, cause) {
		t.Error("Wrap() should preserve cause for errors.Is")
	}

	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if got := Wrapf(cause, ErrCodeInternal, "step %d", 3).Message; got != "step 3" {
		t.Errorf("Wrapf().Message = %q, want %q", got, "step 3")
	}
}

func TestIsHelpers(t *testing.T) {
	wrapped := fmt.Errorf("fetch profile: %w", Unauthorized("expired"))

	if !IsUnauthorized(wrapped) {
		t.Error("IsUnauthorized should see through fmt.Errorf wrapping")
	}
	if IsCredential(wrapped) || IsTransient(wrapped) || IsValidation(wrapped) {
		t.Error("only IsUnauthorized should match")
	}
	if !IsCredential(Credential("x")) || !IsTransient(Transient("x")) || !IsValidation(Validation("x")) {
		t.Error("helpers should match their own codes")
	}
	if !IsNotFound(NotFound("x")) || !IsConflict(Conflict("x")) || !IsInternal(Internal("x")) {
		t.Error("helpers should match their own codes")
	}
	if IsUnauthorized(errors.New("plain")) || IsUnauthorized(nil) {
		t.Error("plain and nil errors are never AppErrors")
	}
}

func TestGetCodeAndField(t *testing.T) {
	if got := GetCode(ValidationField("age", "bad")); got != ErrCodeValidation {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeValidation)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %v, want empty", got)
	}
	if got := GetField(fmt.Errorf("wrap: %w", ValidationField("age", "bad"))); got != "age" {
		t.Errorf("GetField() = %v, want age", got)
	}
	if got := GetField(Internal("x")); got != "" {
		t.Errorf("GetField() = %v, want empty", got)
	}
}

func TestMessage(t *testing.T) {
	if got := Message(fmt.Errorf("login: %w", Credential("Credenciales incorrectas"))); got != "Credenciales incorrectas" {
		t.Errorf("Message() = %q", got)
	}
	if got := Message(errors.New("plain")); got != "plain" {
		t.Errorf("Message(plain) = %q", got)
	}
	if got := Message(nil); got != "" {
		t.Errorf("Message(nil) = %q", got)
	}
}

func TestFromResponse(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    ErrorCode
		message string
	}{
		{name: "401 with string message", status: 401, body: `{"message":"Unauthorized","statusCode":401}`, code: ErrCodeUnauthorized, message: "Unauthorized"},
		{name: "400 with list message", status: 400, body: `{"message":["email must be an email","password too short"]}`, code: ErrCodeCredential, message: "email must be an email; password too short"},
		{name: "403 falls back to error field", status: 403, body: `{"error":"Forbidden"}`, code: ErrCodeCredential, message: "Forbidden"},
		{name: "404", status: 404, body: ``, code: ErrCodeNotFound, message: "Not Found"},
		{name: "409", status: 409, body: `{"message":"email already registered"}`, code: ErrCodeConflict, message: "email already registered"},
		{name: "429 is transient", status: 429, body: `not json`, code: ErrCodeTransient, message: "Too Many Requests"},
		{name: "503 is transient", status: 503, body: `{"message":"maintenance"}`, code: ErrCodeTransient, message: "maintenance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromResponse(tt.status, []byte(tt.body))
			if err.Code != tt.code {
				t.Errorf("Code = %v, want %v", err.Code, tt.code)
			}
			if err.Message != tt.message {
				t.Errorf("Message = %q, want %q", err.Message, tt.message)
			}
			if err.Status != tt.status {
				t.Errorf("Status = %d, want %d", err.Status, tt.status)
			}
		})
	}
}

func TestFromTransport(t *testing.T) {
	if FromTransport(nil) != nil {
		t.Error("FromTransport(nil) should be nil")
	}
	if !IsCanceled(FromTransport(fmt.Errorf("get: %w", context.Canceled))) {
		t.Error("context.Canceled should map to canceled")
	}
	if !IsTimeout(FromTransport(context.DeadlineExceeded)) {
		t.Error("context.DeadlineExceeded should map to timeout")
	}
	if !IsTransient(FromTransport(errors.New("connection reset"))) {
		t.Error("other transport errors should map to transient")
	}
}
