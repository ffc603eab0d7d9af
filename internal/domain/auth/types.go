package auth

// Package auth contains domain-level types for authentication, sessions and routing.
// It is pure and free of framework/adapter concerns.

import (
	"encoding/json"
	"strings"
	"time"
)

// Role represents the application role of a user.
// The zero value is RoleUnset: the user has not picked a role yet.
type Role string

const (
	RoleUnset     Role = ""
	RoleCaregiver Role = "CAREGIVER"
	RolePatient   Role = "PATIENT"
)

// ParseRole normalises a backend role value. The API speaks Spanish
// (CUIDADOR/PACIENTE); English spellings are accepted too.
// Unknown values are preserved so the route guard can reject them.
func ParseRole(raw string) Role {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "":
		return RoleUnset
	case "CUIDADOR", "CAREGIVER":
		return RoleCaregiver
	case "PACIENTE", "PATIENT":
		return RolePatient
	default:
		return Role(raw)
	}
}

// Wire returns the value the backend expects for this role.
func (r Role) Wire() string {
	switch r {
	case RoleCaregiver:
		return "CUIDADOR"
	case RolePatient:
		return "PACIENTE"
	default:
		return string(r)
	}
}

// IsKnown reports whether r is one of the defined roles.
func (r Role) IsKnown() bool {
	return r == RoleUnset || r == RoleCaregiver || r == RolePatient
}

// UnmarshalJSON accepts strings and null.
func (r *Role) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = RoleUnset
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = ParseRole(s)
	return nil
}

// PatientProfile holds the onboarding data of a PATIENT user.
type PatientProfile struct {
	Age             *int   `json:"age,omitempty"`
	Condition       string `json:"condition,omitempty"`
	EmergencyPhone  string `json:"emergencyPhone,omitempty"`
	CaregiverLinkID *int64 `json:"caregiverId,omitempty"`
}

// IsOnboarded reports whether the profile carries the minimum fields a patient
// needs before using the app: a positive age and an emergency phone.
func (p *PatientProfile) IsOnboarded() bool {
	if p == nil {
		return false
	}
	hasAge := p.Age != nil && *p.Age > 0
	hasPhone := strings.TrimSpace(p.EmergencyPhone) != ""
	return hasAge && hasPhone
}

// UserRecord is the server-side user as returned by the profile endpoint.
// The client never mutates it except by replacing it with a fresh fetch.
type UserRecord struct {
	ID                  int64           `json:"id"`
	Name                string          `json:"name"`
	Email               string          `json:"email"`
	Role                Role            `json:"role"`
	PhotoURL            string          `json:"photoUrl,omitempty"`
	Bio                 string          `json:"bio,omitempty"`
	Gender              string          `json:"gender,omitempty"`
	PatientProfile      *PatientProfile `json:"patientProfile,omitempty"`
	FederatedIdentityID string          `json:"federatedIdentityId,omitempty"`
	SharingCode         string          `json:"sharingCode,omitempty"`
}

// Clone returns a deep copy so callers can't mutate session state through a snapshot.
func (u *UserRecord) Clone() *UserRecord {
	if u == nil {
		return nil
	}
	c := *u
	if u.PatientProfile != nil {
		p := *u.PatientProfile
		if p.Age != nil {
			age := *p.Age
			p.Age = &age
		}
		if p.CaregiverLinkID != nil {
			id := *p.CaregiverLinkID
			p.CaregiverLinkID = &id
		}
		c.PatientProfile = &p
	}
	return &c
}

// AuthResponse is the payload returned by every token-issuing backend endpoint.
type AuthResponse struct {
	AccessToken string      `json:"accessToken"`
	User        *UserRecord `json:"user"`
}

// StartupPhase tracks which flow currently owns write access to the session at startup.
type StartupPhase string

const (
	// PhaseUnstarted is the phase before Start is called.
	PhaseUnstarted StartupPhase = "unstarted"
	// PhaseRestoring means the persisted token is being restored; observer events are parked.
	PhaseRestoring StartupPhase = "restoring"
	// PhaseObservingOnly means nothing was restored and the identity observer may populate the session.
	PhaseObservingOnly StartupPhase = "observing_only"
	// PhaseSettled means startup is over; observer events only apply to anonymous sessions.
	PhaseSettled StartupPhase = "settled"
)

// Session is a point-in-time view of the client session.
// Token is empty for an anonymous session.
type Session struct {
	Token   string
	User    *UserRecord
	Loading bool
	Phase   StartupPhase
}

// IsAnonymous returns true when no bearer token is held.
func (s Session) IsAnonymous() bool { return s.Token == "" }

// FederatedIdentity is the proof of identity produced by an identity provider.
// ProofToken is what the backend verifies during the federated token exchange.
type FederatedIdentity struct {
	Provider   string
	Subject    string
	Email      string
	Name       string
	ProofToken string
	ExpiresAt  time.Time
}

// NativeCredential is what a platform sign-in bridge hands back before it is
// exchanged with the identity provider for a federated session.
type NativeCredential struct {
	Provider    string
	IDToken     string
	AccessToken string
}

// RegisterInput carries the fields of a new account.
// Confirm is checked locally and never sent to the backend.
type RegisterInput struct {
	Name          string
	Email         string
	Password      string
	Confirm       string
	Role          Role
	Gender        string
	CaregiverCode string
}

// ProfileUpdate carries the onboarding fields a patient completes after sign-up.
type ProfileUpdate struct {
	Age            int
	Condition      string
	EmergencyPhone string
}
