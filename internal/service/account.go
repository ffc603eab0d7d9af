package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	domainauth "github.com/pastibot/companion/internal/domain/auth"
	apperrors "github.com/pastibot/companion/internal/errors"
	"github.com/pastibot/companion/internal/ports"
)

const minPasswordLength = 8

// ValidateRegistration checks a sign-up form and returns it trimmed.
// Caregiver accounts are provisioned by an administrator and cannot self-register.
func ValidateRegistration(in domainauth.RegisterInput) (domainauth.RegisterInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.CaregiverCode = strings.TrimSpace(in.CaregiverCode)

	switch {
	case in.Role == domainauth.RoleCaregiver:
		return in, apperrors.ValidationField("role", "caregiver registration is disabled")
	case in.Role != domainauth.RolePatient:
		return in, apperrors.ValidationField("role", "role is required")
	case in.Name == "" || in.Email == "" || in.Password == "" || in.Confirm == "":
		return in, apperrors.Validation("all fields are required")
	case in.CaregiverCode == "":
		return in, apperrors.ValidationField("caregiverCode", "caregiver code is required to link your account")
	case strings.ContainsFunc(in.Name, unicode.IsDigit):
		return in, apperrors.ValidationField("name", "name must not contain numbers")
	case !strings.Contains(in.Email, "@") || !strings.Contains(in.Email, "."):
		return in, apperrors.ValidationField("email", "email address is not valid")
	}
	if err := validateNewPassword(in.Password, in.Confirm); err != nil {
		return in, err
	}
	return in, nil
}

// ValidateRoleSelection checks a role choice. Patients must supply their caregiver's code.
func ValidateRoleSelection(role domainauth.Role, caregiverCode string) (domainauth.Role, string, error) {
	caregiverCode = strings.TrimSpace(caregiverCode)
	switch role {
	case domainauth.RoleCaregiver:
		return role, "", nil
	case domainauth.RolePatient:
		if caregiverCode == "" {
			return role, "", apperrors.ValidationField("caregiverCode", "caregiver code is required for patients")
		}
		return role, caregiverCode, nil
	default:
		return role, "", apperrors.ValidationField("role", "choose caregiver or patient")
	}
}

func validateNewPassword(password, confirm string) error {
	if len([]rune(password)) < minPasswordLength {
		return apperrors.ValidationField("password", "password must be at least 8 characters")
	}
	if password != confirm {
		return apperrors.ValidationField("confirm", "passwords do not match")
	}
	return nil
}

// profileRefresher is the slice of Session AccountService needs.
type profileRefresher interface {
	RefreshProfile(ctx context.Context) error
}

// AccountServiceOptions groups dependencies for AccountService.
type AccountServiceOptions struct {
	Backend ports.AccountBackend // Required
	Session profileRefresher     // Optional: refreshed after profile changes
	Logger  *slog.Logger
}

// AccountService covers password recovery, patient onboarding and caregiver linking.
type AccountService struct {
	backend ports.AccountBackend
	session profileRefresher
	logger  *slog.Logger
}

// NewAccountService constructs an AccountService.
func NewAccountService(opts AccountServiceOptions) *AccountService {
	if opts.Backend == nil {
		panic("AccountBackend is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{backend: opts.Backend, session: opts.Session, logger: logger}
}

// ForgotPassword asks the backend to email a reset link.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return apperrors.ValidationField("email", "email address is not valid")
	}
	return s.backend.ForgotPassword(ctx, email)
}

// ResetPassword sets a new password with the token from the reset email.
func (s *AccountService) ResetPassword(ctx context.Context, resetToken, password, confirm string) error {
	if strings.TrimSpace(resetToken) == "" {
		return apperrors.ValidationField("token", "reset token is missing")
	}
	if err := validateNewPassword(password, confirm); err != nil {
		return err
	}
	return s.backend.ResetPassword(ctx, strings.TrimSpace(resetToken), password)
}

// CompleteProfile stores the patient's onboarding fields and refreshes the session
// so the route guard sees the completed profile.
func (s *AccountService) CompleteProfile(ctx context.Context, in domainauth.ProfileUpdate) error {
	in.EmergencyPhone = strings.TrimSpace(in.EmergencyPhone)
	in.Condition = strings.TrimSpace(in.Condition)
	if in.Age <= 0 {
		return apperrors.ValidationField("age", "age must be a positive number")
	}
	if in.EmergencyPhone == "" {
		return apperrors.ValidationField("emergencyPhone", "emergency phone is required")
	}
	if err := s.backend.UpdatePatientProfile(ctx, in); err != nil {
		return err
	}
	if s.session == nil {
		return nil
	}
	if err := s.session.RefreshProfile(ctx); err != nil {
		s.logger.WarnContext(ctx, "profile saved but refresh failed", "error", err)
		return err
	}
	return nil
}

// LinkCaregiver attaches the signed-in patient to a caregiver by sharing code,
// then refreshes the session so the linked profile is visible.
func (s *AccountService) LinkCaregiver(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return apperrors.ValidationField("code", "caregiver code is required")
	}
	if err := s.backend.LinkCaregiver(ctx, code); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "patient linked to caregiver")
	if s.session == nil {
		return nil
	}
	return s.session.RefreshProfile(ctx)
}
