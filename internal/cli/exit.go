package cli

import (
	"errors"
	"fmt"

	apperrors "github.com/pastibot/companion/internal/errors"
)

// Process exit codes.
const (
	ExitFailure      = 1
	ExitInvalidInput = 2
	ExitUnauthorized = 3
)

// ExitError is an error that carries a specific process exit code.
// Cobra's RunE returns this to signal the desired exit code to main.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// exitError creates a new ExitError with the given code and formatted message.
func exitError(code int, format string, args ...any) *ExitError {
	return &ExitError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// fromAppError maps a client error to an exit code and a user-facing message.
func fromAppError(op string, err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	msg := apperrors.Message(err)
	switch {
	case apperrors.IsValidation(err):
		if field := apperrors.GetField(err); field != "" {
			return exitError(ExitInvalidInput, "%s: %s (%s)", op, msg, field)
		}
		return exitError(ExitInvalidInput, "%s: %s", op, msg)
	case apperrors.IsUnauthorized(err), apperrors.IsCredential(err):
		return exitError(ExitUnauthorized, "%s: %s", op, msg)
	default:
		return exitError(ExitFailure, "%s: %s", op, msg)
	}
}
