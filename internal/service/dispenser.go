package service

import (
	"context"
	"log/slog"

	domainauth "github.com/pastibot/companion/internal/domain/auth"
	"github.com/pastibot/companion/internal/domain/robot"
	apperrors "github.com/pastibot/companion/internal/errors"
	"github.com/pastibot/companion/internal/ports"
)

// DefaultHistoryDays is the window the patient home screen shows.
const DefaultHistoryDays = 1

// sessionView is the slice of Session DispenserService needs.
type sessionView interface {
	Snapshot() domainauth.Session
}

// DispenserServiceOptions groups dependencies for DispenserService.
type DispenserServiceOptions struct {
	Backend ports.DispenserBackend // Required
	Session sessionView            // Required
	Logger  *slog.Logger
}

// DispenserService sends dispense orders on behalf of the signed-in user.
// Caregivers order doses for their patients; patients release their own.
type DispenserService struct {
	backend ports.DispenserBackend
	session sessionView
	logger  *slog.Logger
}

// NewDispenserService constructs a DispenserService.
func NewDispenserService(opts DispenserServiceOptions) *DispenserService {
	switch {
	case opts.Backend == nil:
		panic("DispenserBackend is required")
	case opts.Session == nil:
		panic("Session is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DispenserService{backend: opts.Backend, session: opts.Session, logger: logger}
}

// Dispense releases one dose of medicineID, routed by the caller's role.
func (s *DispenserService) Dispense(ctx context.Context, medicineID int64) (robot.DispenseResult, error) {
	if medicineID <= 0 {
		return robot.DispenseResult{}, apperrors.ValidationField("medicineId", "medicine id must be positive")
	}
	role, err := s.role()
	if err != nil {
		return robot.DispenseResult{}, err
	}

	var res robot.DispenseResult
	switch role {
	case domainauth.RoleCaregiver:
		res, err = s.backend.Dispense(ctx, medicineID)
	case domainauth.RolePatient:
		res, err = s.backend.DispenseMine(ctx, medicineID)
	default:
		return robot.DispenseResult{}, apperrors.Validation("choose a role before dispensing")
	}
	if err != nil {
		return robot.DispenseResult{}, err
	}
	s.logger.InfoContext(ctx, "dispense order sent",
		"role", role,
		"medicine_id", medicineID,
		"log_id", res.LogID,
	)
	return res, nil
}

// History lists the patient's dispensations of the last days. Zero means
// DefaultHistoryDays.
func (s *DispenserService) History(ctx context.Context, days int) ([]robot.Dispensation, error) {
	switch {
	case days < 0:
		return nil, apperrors.ValidationField("days", "days must not be negative")
	case days == 0:
		days = DefaultHistoryDays
	}
	role, err := s.role()
	if err != nil {
		return nil, err
	}
	if role != domainauth.RolePatient {
		return nil, apperrors.Validation("intake history is available to patients only")
	}
	return s.backend.History(ctx, days)
}

func (s *DispenserService) role() (domainauth.Role, error) {
	snap := s.session.Snapshot()
	if snap.IsAnonymous() {
		return "", apperrors.Unauthorized("not signed in")
	}
	if snap.User == nil {
		return "", apperrors.Transient("profile not loaded")
	}
	return snap.User.Role, nil
}
