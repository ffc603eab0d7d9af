package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pastibot/companion/internal/adapters/backend"
	"github.com/pastibot/companion/internal/adapters/memory"
	domainauth "github.com/pastibot/companion/internal/domain/auth"
	mockauth "github.com/pastibot/companion/internal/mocks/auth"
	"github.com/pastibot/companion/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct-horse"

// fakeAPI is an in-memory Pastibot backend.
type fakeAPI struct {
	t   *testing.T
	srv *httptest.Server

	mu             sync.Mutex
	users          map[string]*domainauth.UserRecord // by email
	tokens         map[string]string                 // token -> email
	federatedEmail string
	nextToken      int
	nextID         int64
	profileStatus  int           // forced status for /auth/profile when non-zero
	profileGate    chan struct{} // profile requests block until closed when set
	profileEntered chan struct{} // signalled once per profile request when set
	profileAuth    []string
	calls          map[string]int
	resetTokens    map[string]string
	proofs         []string // idTokens posted to federated-login
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{
		t:              t,
		users:          make(map[string]*domainauth.UserRecord),
		tokens:         make(map[string]string),
		calls:          make(map[string]int),
		resetTokens:    make(map[string]string),
		federatedEmail: "social@example.com",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", api.login)
	mux.HandleFunc("POST /api/auth/register", api.register)
	mux.HandleFunc("POST /api/auth/federated-login", api.federatedLogin)
	mux.HandleFunc("GET /api/auth/profile", api.profile)
	mux.HandleFunc("POST /api/auth/set-role", api.setRole)
	mux.HandleFunc("POST /api/auth/forgot-password", api.forgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password", api.resetPassword)
	mux.HandleFunc("PATCH /api/patients/update-my-profile", api.updateProfile)
	api.srv = httptest.NewServer(mux)
	t.Cleanup(api.srv.Close)
	return api
}

func (a *fakeAPI) baseURL() string { return a.srv.URL + "/api" }

func (a *fakeAPI) addUser(u domainauth.UserRecord) *domainauth.UserRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	u.ID = a.nextID
	a.users[u.Email] = &u
	return &u
}

// issue mints a token for email. Callers hold a.mu.
func (a *fakeAPI) issue(email string) string {
	a.nextToken++
	tok := fmt.Sprintf("tok-%d", a.nextToken)
	a.tokens[tok] = email
	return tok
}

// issueToken mints a token outside a request, e.g. to seed a store.
func (a *fakeAPI) issueToken(email string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.issue(email)
}

func (a *fakeAPI) revoke(tok string) {
	a.mu.Lock()
	delete(a.tokens, tok)
	a.mu.Unlock()
}

func (a *fakeAPI) callCount(name string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[name]
}

func (a *fakeAPI) federatedProofs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.proofs...)
}

func (a *fakeAPI) profileAuthHeaders() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.profileAuth...)
}

func (a *fakeAPI) setProfileStatus(status int) {
	a.mu.Lock()
	a.profileStatus = status
	a.mu.Unlock()
}

func (a *fakeAPI) user(email string) domainauth.UserRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	u := a.users[email]
	require.NotNil(a.t, u, "unknown user %s", email)
	return *u.Clone()
}

func (a *fakeAPI) reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	assert.NoError(a.t, json.NewEncoder(w).Encode(v))
}

func (a *fakeAPI) fail(w http.ResponseWriter, status int, msg string) {
	a.reply(w, status, map[string]any{"message": msg, "statusCode": status})
}

func (a *fakeAPI) decode(r *http.Request, v any) {
	assert.NoError(a.t, json.NewDecoder(r.Body).Decode(v))
}

func (a *fakeAPI) bearerUser(r *http.Request) *domainauth.UserRecord {
	tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return nil
	}
	email, ok := a.tokens[tok]
	if !ok {
		return nil
	}
	return a.users[email]
}

func (a *fakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var body struct{ Email, Password string }
	a.decode(r, &body)
	a.mu.Lock()
	a.calls["login"]++
	u, ok := a.users[body.Email]
	if !ok || body.Password != testPassword {
		a.mu.Unlock()
		a.fail(w, http.StatusUnauthorized, "Credenciales inválidas")
		return
	}
	tok := a.issue(u.Email)
	resp := map[string]any{"accessToken": tok, "user": u.Clone()}
	a.mu.Unlock()
	a.reply(w, http.StatusCreated, resp)
}

func (a *fakeAPI) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name, Email, Password, Role string
		CaregiverCode               string
	}
	a.decode(r, &body)
	a.mu.Lock()
	a.calls["register"]++
	if _, exists := a.users[body.Email]; exists {
		a.mu.Unlock()
		a.fail(w, http.StatusConflict, "El email ya está registrado")
		return
	}
	a.nextID++
	u := &domainauth.UserRecord{ID: a.nextID, Name: body.Name, Email: body.Email, Role: domainauth.ParseRole(body.Role)}
	a.users[u.Email] = u
	tok := a.issue(u.Email)
	resp := map[string]any{"accessToken": tok, "user": u.Clone()}
	a.mu.Unlock()
	a.reply(w, http.StatusCreated, resp)
}

func (a *fakeAPI) federatedLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDToken string `json:"idToken"`
	}
	a.decode(r, &body)
	a.mu.Lock()
	a.calls["federated-login"]++
	a.proofs = append(a.proofs, body.IDToken)
	if body.IDToken == "" {
		a.mu.Unlock()
		a.fail(w, http.StatusBadRequest, "idToken is required")
		return
	}
	u, ok := a.users[a.federatedEmail]
	if !ok {
		a.nextID++
		u = &domainauth.UserRecord{ID: a.nextID, Name: "Social User", Email: a.federatedEmail}
		a.users[u.Email] = u
	}
	tok := a.issue(u.Email)
	resp := map[string]any{"accessToken": tok, "user": u.Clone()}
	a.mu.Unlock()
	a.reply(w, http.StatusOK, resp)
}

func (a *fakeAPI) profile(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.calls["profile"]++
	a.profileAuth = append(a.profileAuth, r.Header.Get("Authorization"))
	gate, entered, forced := a.profileGate, a.profileEntered, a.profileStatus
	a.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if forced != 0 {
		a.fail(w, forced, "forced failure")
		return
	}

	a.mu.Lock()
	u := a.bearerUser(r)
	if u == nil {
		a.mu.Unlock()
		a.fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	out := u.Clone()
	a.mu.Unlock()
	a.reply(w, http.StatusOK, out)
}

func (a *fakeAPI) setRole(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role          string `json:"role"`
		CaregiverCode string `json:"caregiverCode"`
	}
	a.decode(r, &body)
	a.mu.Lock()
	a.calls["set-role"]++
	u := a.bearerUser(r)
	if u == nil {
		a.mu.Unlock()
		a.fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	u.Role = domainauth.ParseRole(body.Role)
	tok := a.issue(u.Email)
	a.mu.Unlock()
	a.reply(w, http.StatusOK, map[string]any{"accessToken": tok})
}

func (a *fakeAPI) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var body struct{ Email string }
	a.decode(r, &body)
	a.mu.Lock()
	a.calls["forgot-password"]++
	a.resetTokens["reset-"+body.Email] = body.Email
	a.mu.Unlock()
	a.reply(w, http.StatusOK, map[string]any{"message": "ok"})
}

func (a *fakeAPI) resetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct{ Token, Password string }
	a.decode(r, &body)
	a.mu.Lock()
	a.calls["reset-password"]++
	_, ok := a.resetTokens[body.Token]
	a.mu.Unlock()
	if !ok {
		a.fail(w, http.StatusBadRequest, "Token inválido o expirado")
		return
	}
	a.reply(w, http.StatusOK, map[string]any{"message": "ok"})
}

func (a *fakeAPI) updateProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Age            int    `json:"age"`
		Condition      string `json:"condition"`
		EmergencyPhone string `json:"emergencyPhone"`
	}
	a.decode(r, &body)
	a.mu.Lock()
	a.calls["update-profile"]++
	u := a.bearerUser(r)
	if u == nil {
		a.mu.Unlock()
		a.fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	age := body.Age
	u.PatientProfile = &domainauth.PatientProfile{Age: &age, Condition: body.Condition, EmergencyPhone: body.EmergencyPhone}
	a.mu.Unlock()
	a.reply(w, http.StatusOK, map[string]any{"ok": true})
}

// harness wires a Session the way bootstrap does, against fakeAPI.
type harness struct {
	api      *fakeAPI
	client   *backend.Client
	store    ports.TokenStore
	idp      *mockauth.MockIdentityProvider
	nav      *mockauth.RecordingNavigator
	recorder *countingRecorder
	session  *Session
}

type harnessOptions struct {
	store    ports.TokenStore
	config   SessionConfig
	exchange ExchangeConfig
	noIdP    bool

	// identity replaces the mock identity provider when set.
	identity  ports.IdentityProvider
	redirects ports.RedirectFlow
}

func newHarness(t *testing.T, api *fakeAPI, opts harnessOptions) *harness {
	t.Helper()
	client, err := backend.NewClient(backend.Config{BaseURL: api.baseURL(), Timeout: 5 * time.Second})
	require.NoError(t, err)

	h := &harness{
		api:      api,
		client:   client,
		store:    opts.store,
		idp:      mockauth.NewMockIdentityProvider(),
		nav:      &mockauth.RecordingNavigator{},
		recorder: &countingRecorder{},
	}
	if h.store == nil {
		h.store = memory.NewTokenStore()
	}
	tel := Telemetry{Metrics: h.recorder}

	var identity ports.IdentityProvider = h.idp
	switch {
	case opts.noIdP:
		identity = nil
	case opts.identity != nil:
		identity = opts.identity
	}
	exchange := NewCredentialExchange(CredentialExchangeOptions{
		Deps:      ExchangeDeps{Backend: client, Identity: identity},
		Config:    opts.exchange,
		Telemetry: tel,
	})
	cfg := opts.config
	if cfg.ProfileGraceDelay == 0 {
		cfg.ProfileGraceDelay = -1
	}
	h.session = NewSession(SessionOptions{
		Deps: SessionDeps{
			Backend:     client,
			Credentials: client,
			Store:       h.store,
			Exchange:    exchange,
			Identity:    identity,
			Redirects:   opts.redirects,
			Navigator:   h.nav,
		},
		Config:    cfg,
		Telemetry: tel,
	})
	client.OnUnauthorized(h.session.HandleUnauthorized)
	t.Cleanup(h.session.Close)
	return h
}

func (h *harness) storedToken(t *testing.T) string {
	t.Helper()
	tok, err := h.store.Load(context.Background())
	require.NoError(t, err)
	return tok
}

// countingRecorder is a metrics.Recorder that counts calls.
type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) bump(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[key]++
}

func (r *countingRecorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

func (r *countingRecorder) RecordSignIn(method, result string, _ error, _ time.Duration) {
	r.bump("signin/" + method + "/" + result)
}
func (r *countingRecorder) RecordRestore(result string, _ error) { r.bump("restore/" + result) }
func (r *countingRecorder) RecordLogout(reason string)           { r.bump("logout/" + reason) }
func (r *countingRecorder) RecordRobotEvent(event string)        { r.bump("robot/" + event) }

// holdProfiles makes profile requests block. entered receives once per request;
// release lets them all through.
func (a *fakeAPI) holdProfiles() (entered <-chan struct{}, release func()) {
	in := make(chan struct{}, 8)
	gate := make(chan struct{})
	a.mu.Lock()
	a.profileEntered = in
	a.profileGate = gate
	a.mu.Unlock()
	var once sync.Once
	return in, func() { once.Do(func() { close(gate) }) }
}
