package backend

import (
	"context"
	"net/http"
	"strconv"

	domainauth "github.com/pastibot/companion/internal/domain/auth"
	"github.com/pastibot/companion/internal/domain/robot"
	apperrors "github.com/pastibot/companion/internal/errors"
	"github.com/pastibot/companion/internal/ports"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Role          string `json:"role"`
	Gender        string `json:"gender,omitempty"`
	CaregiverCode string `json:"caregiverCode,omitempty"`
}

type federatedLoginRequest struct {
	ProofToken string `json:"idToken"`
}

type federatedRegisterRequest struct {
	ProofToken    string `json:"idToken"`
	Name          string `json:"name,omitempty"`
	Role          string `json:"role"`
	Gender        string `json:"gender,omitempty"`
	CaregiverCode string `json:"caregiverCode,omitempty"`
}

type setRoleRequest struct {
	Role          string `json:"role"`
	CaregiverCode string `json:"caregiverCode,omitempty"`
}

type setRoleResponse struct {
	AccessToken string `json:"accessToken"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type linkCaregiverRequest struct {
	Code string `json:"code"`
}

type dispenseRequest struct {
	MedicineID int64 `json:"medicineId"`
	Amount     int   `json:"amount,omitempty"`
}

type updateProfileRequest struct {
	Age            int    `json:"age"`
	Condition      string `json:"condition,omitempty"`
	EmergencyPhone string `json:"emergencyPhone"`
}

// Login exchanges email/password for a backend token.
func (c *Client) Login(ctx context.Context, email, password string) (*domainauth.AuthResponse, error) {
	return c.exchange(ctx, "/auth/login", loginRequest{Email: email, Password: password})
}

// Register creates an account and returns its token.
func (c *Client) Register(ctx context.Context, in domainauth.RegisterInput) (*domainauth.AuthResponse, error) {
	return c.exchange(ctx, "/auth/register", registerRequest{
		Name:          in.Name,
		Email:         in.Email,
		Password:      in.Password,
		Role:          in.Role.Wire(),
		Gender:        in.Gender,
		CaregiverCode: in.CaregiverCode,
	})
}

// FederatedLogin exchanges an identity-provider proof for a backend token.
func (c *Client) FederatedLogin(ctx context.Context, proofToken string) (*domainauth.AuthResponse, error) {
	return c.exchange(ctx, "/auth/federated-login", federatedLoginRequest{ProofToken: proofToken})
}

// FederatedRegister creates an account backed by an identity-provider proof.
func (c *Client) FederatedRegister(
	ctx context.Context,
	in ports.FederatedRegisterInput,
) (*domainauth.AuthResponse, error) {
	return c.exchange(ctx, "/auth/federated-register", federatedRegisterRequest{
		ProofToken:    in.ProofToken,
		Name:          in.Name,
		Role:          in.Role.Wire(),
		Gender:        in.Gender,
		CaregiverCode: in.CaregiverCode,
	})
}

func (c *Client) exchange(ctx context.Context, path string, body any) (*domainauth.AuthResponse, error) {
	var out domainauth.AuthResponse
	if err := c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body, Out: &out, Anonymous: true}); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, apperrors.Credentialf("%s returned no access token", path)
	}
	return &out, nil
}

// Profile fetches the user behind the active bearer token.
func (c *Client) Profile(ctx context.Context) (*domainauth.UserRecord, error) {
	var out domainauth.UserRecord
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/auth/profile", Out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetRole assigns the caller's role.
func (c *Client) SetRole(
	ctx context.Context,
	role domainauth.Role,
	caregiverCode string,
) (*ports.SetRoleResult, error) {
	var out setRoleResponse
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/auth/set-role",
		Body:   setRoleRequest{Role: role.Wire(), CaregiverCode: caregiverCode},
		Out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &ports.SetRoleResult{AccessToken: out.AccessToken}, nil
}

// ForgotPassword requests a reset email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.Do(ctx, Request{
		Method:    http.MethodPost,
		Path:      "/auth/forgot-password",
		Body:      forgotPasswordRequest{Email: email},
		Anonymous: true,
	})
}

// ResetPassword sets a new password using the token from the reset email.
func (c *Client) ResetPassword(ctx context.Context, resetToken, password string) error {
	return c.Do(ctx, Request{
		Method:    http.MethodPost,
		Path:      "/auth/reset-password",
		Body:      resetPasswordRequest{Token: resetToken, Password: password},
		Anonymous: true,
	})
}

// UpdatePatientProfile stores the patient's onboarding fields.
func (c *Client) UpdatePatientProfile(ctx context.Context, in domainauth.ProfileUpdate) error {
	return c.Do(ctx, Request{
		Method: http.MethodPatch,
		Path:   "/patients/update-my-profile",
		Body: updateProfileRequest{
			Age:            in.Age,
			Condition:      in.Condition,
			EmergencyPhone: in.EmergencyPhone,
		},
	})
}

// LinkCaregiver attaches the calling patient to a caregiver by sharing code.
func (c *Client) LinkCaregiver(ctx context.Context, code string) error {
	return c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/patients/link",
		Body:   linkCaregiverRequest{Code: code},
	})
}

// Dispense sends a caregiver dispense order for one dose of medicineID.
func (c *Client) Dispense(ctx context.Context, medicineID int64) (robot.DispenseResult, error) {
	var out robot.DispenseResult
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/robot/dispense",
		Body:   dispenseRequest{MedicineID: medicineID, Amount: 1},
		Out:    &out,
	})
	return out, err
}

// DispenseMine releases a dose of medicineID for the calling patient.
func (c *Client) DispenseMine(ctx context.Context, medicineID int64) (robot.DispenseResult, error) {
	var out robot.DispenseResult
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/my/dispense",
		Body:   dispenseRequest{MedicineID: medicineID},
		Out:    &out,
	})
	return out, err
}

// History lists the calling patient's dispensations of the last days.
func (c *Client) History(ctx context.Context, days int) ([]robot.Dispensation, error) {
	var out []robot.Dispensation
	err := c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   "/my/history?days=" + strconv.Itoa(days),
		Out:    &out,
	})
	return out, err
}

// RobotStatus fetches the current dispenser status.
func (c *Client) RobotStatus(ctx context.Context) (robot.StatusPayload, error) {
	var out robot.StatusPayload
	err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/robot/status", Out: &out})
	return out, err
}
