package auth

// ScreenID identifies the top-level screen a user should be looking at.
type ScreenID string

const (
	ScreenLoading         ScreenID = "LOADING"
	ScreenSignIn          ScreenID = "SIGN_IN"
	ScreenSelectRole      ScreenID = "SELECT_ROLE"
	ScreenCaregiverHome   ScreenID = "CAREGIVER_HOME"
	ScreenPatientHome     ScreenID = "PATIENT_HOME"
	ScreenCompleteProfile ScreenID = "COMPLETE_PROFILE"
)

var screenPaths = map[ScreenID]string{
	ScreenLoading:         "/splash",
	ScreenSignIn:          "/login",
	ScreenSelectRole:      "/selectrole",
	ScreenCaregiverHome:   "/care/home",
	ScreenPatientHome:     "/patient/home",
	ScreenCompleteProfile: "/complete-profile",
}

// Path returns the app route for the screen.
func (s ScreenID) Path() string {
	if p, ok := screenPaths[s]; ok {
		return p
	}
	return screenPaths[ScreenSignIn]
}

// ResolveDestination maps a user to the single screen they should land on.
// It is pure: no I/O, no hidden state, safe to call on every render.
func ResolveDestination(user *UserRecord) ScreenID {
	if user == nil {
		return ScreenSignIn
	}

	switch user.Role {
	case RoleUnset:
		return ScreenSelectRole
	case RoleCaregiver:
		return ScreenCaregiverHome
	case RolePatient:
		if user.PatientProfile.IsOnboarded() {
			return ScreenPatientHome
		}
		return ScreenCompleteProfile
	default:
		return ScreenSignIn
	}
}
