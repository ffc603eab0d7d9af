package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	domainauth "github.com/pastibot/companion/internal/domain/auth"
	apperrors "github.com/pastibot/companion/internal/errors"
	"github.com/pastibot/companion/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL + "/api"})
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)

	_, err = NewClient(Config{BaseURL: "ftp://example.com"})
	require.Error(t, err)

	c, err := NewClient(Config{BaseURL: "https://api.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", c.BaseURL().String())
}

func TestClient_Login(t *testing.T) {
	var gotAuth, gotRequestID string
	var gotBody loginRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"accessToken": "tok-1",
			"user":        map[string]any{"id": 3, "email": "ana@example.com", "role": "PACIENTE"},
		})
	}))
	c.SetBearerToken("stale")

	resp, err := c.Login(context.Background(), "ana@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", resp.AccessToken)
	assert.Equal(t, domainauth.RolePatient, resp.User.Role)
	assert.Empty(t, gotAuth, "credential exchanges are sent without the bearer header")
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, loginRequest{Email: "ana@example.com", Password: "secret123"}, gotBody)
}

func TestClient_LoginRejected(t *testing.T) {
	var hookCalls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]any{"message": "Credenciales inválidas"})
	}))
	c.SetBearerToken("live-session")
	c.OnUnauthorized(func(context.Context, string) { hookCalls.Add(1) })

	_, err := c.Login(context.Background(), "ana@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Equal(t, "Credenciales inválidas", apperrors.Message(err))
	assert.Zero(t, hookCalls.Load(), "a rejected password must not end the active session")
}

func TestClient_MissingAccessToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"user": map[string]any{"id": 1}})
	}))

	_, err := c.FederatedLogin(context.Background(), "proof")
	require.Error(t, err)
	assert.True(t, apperrors.IsCredential(err))
}

func TestClient_ProfileUsesBearer(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-9", r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"id":    9,
			"name":  "Luis",
			"role":  nil,
			"email": "luis@example.com",
		})
	}))
	c.SetBearerToken("tok-9")

	user, err := c.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9), user.ID)
	assert.Equal(t, domainauth.RoleUnset, user.Role)
}

func TestClient_UnauthorizedHook(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	var mu sync.Mutex
	var tokens []string
	c.OnUnauthorized(func(_ context.Context, token string) {
		mu.Lock()
		tokens = append(tokens, token)
		mu.Unlock()
	})

	// Anonymous caller: nothing to sign out.
	_, err := c.Profile(context.Background())
	require.Error(t, err)

	c.SetBearerToken("tok-a")
	_, err = c.Profile(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"tok-a"}, tokens)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"server error is transient", http.StatusServiceUnavailable, apperrors.IsTransient},
		{"conflict", http.StatusConflict, apperrors.IsConflict},
		{"bad request is credential", http.StatusBadRequest, apperrors.IsCredential},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(t, w, tt.status, map[string]any{"message": []string{"a", "b"}})
			}))
			_, err := c.Register(context.Background(), domainauth.RegisterInput{Role: domainauth.RolePatient})
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
			assert.Equal(t, "a; b", apperrors.Message(err))
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(Config{BaseURL: url})
	require.NoError(t, err)
	_, err = c.Profile(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
}

func TestClient_SetRoleAndProfileUpdate(t *testing.T) {
	var roleBody setRoleRequest
	var profileBody updateProfileRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/set-role":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&roleBody))
			writeJSON(t, w, http.StatusOK, map[string]any{"accessToken": "tok-role"})
		case "/api/patients/update-my-profile":
			assert.Equal(t, http.MethodPatch, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&profileBody))
			w.WriteHeader(http.StatusNoContent)
		default:
			assert.Failf(t, "unexpected path", "%s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	c.SetBearerToken("tok")

	res, err := c.SetRole(context.Background(), domainauth.RolePatient, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, &ports.SetRoleResult{AccessToken: "tok-role"}, res)
	assert.Equal(t, setRoleRequest{Role: "PACIENTE", CaregiverCode: "ABC123"}, roleBody)

	err = c.UpdatePatientProfile(context.Background(), domainauth.ProfileUpdate{Age: 70, EmergencyPhone: "555"})
	require.NoError(t, err)
	assert.Equal(t, 70, profileBody.Age)
	assert.Equal(t, "555", profileBody.EmergencyPhone)
}

func TestClient_RobotStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/robot/status", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]any{"status": "ONLINE"})
	}))

	st, err := c.RobotStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ONLINE", st.Status)
}

func TestClient_DispenseHistoryAndLink(t *testing.T) {
	var (
		mu         sync.Mutex
		caregiver  dispenseRequest
		patient    dispenseRequest
		link       linkCaregiverRequest
		historyURL string
	)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.Method + " " + r.URL.Path {
		case "POST /api/robot/dispense":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&caregiver))
			writeJSON(t, w, http.StatusCreated, map[string]any{"ok": true, "taskId": 12})
		case "POST /api/my/dispense":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patient))
			writeJSON(t, w, http.StatusCreated, map[string]any{"logId": 99})
		case "GET /api/my/history":
			historyURL = r.URL.RequestURI()
			writeJSON(t, w, http.StatusOK, []map[string]any{{
				"id":          5,
				"status":      "TAKEN",
				"dispensedAt": "2026-10-19T08:30:00Z",
				"medicine":    map[string]string{"name": "Paracetamol"},
			}})
		case "POST /api/patients/link":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&link))
			writeJSON(t, w, http.StatusCreated, map[string]bool{"ok": true})
		default:
			assert.Failf(t, "unexpected request", "%s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	c.SetBearerToken("tok")
	ctx := context.Background()

	res, err := c.Dispense(ctx, 3)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, int64(12), res.TaskID)

	res, err = c.DispenseMine(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(99), res.LogID)

	history, err := c.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Paracetamol", history[0].Medicine.Name)
	assert.Equal(t, 8, history[0].DispensedAt.Hour())

	require.NoError(t, c.LinkCaregiver(ctx, "CARE-1"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, dispenseRequest{MedicineID: 3, Amount: 1}, caregiver)
	assert.Equal(t, dispenseRequest{MedicineID: 3}, patient)
	assert.Equal(t, "/api/my/history?days=1", historyURL)
	assert.Equal(t, linkCaregiverRequest{Code: "CARE-1"}, link)
}
