package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/pastibot/companion/internal/domain/auth"
	apperrors "github.com/pastibot/companion/internal/errors"
	"github.com/pastibot/companion/internal/observability/metrics"
	"github.com/pastibot/companion/internal/ports"
	"golang.org/x/sync/singleflight"
)

// ReauthPolicy decides what happens to a restored token that is known to be expired.
type ReauthPolicy string

const (
	// ReauthLazy sends the restored token anyway and lets the backend reject it.
	ReauthLazy ReauthPolicy = "lazy"
	// ReauthEager treats a JWT whose exp has passed as rejected without a network call.
	ReauthEager ReauthPolicy = "eager"
)

// DefaultProfileGraceDelay is how long a transient profile failure keeps the
// session in the loading state before giving up.
const DefaultProfileGraceDelay = 500 * time.Millisecond

// ErrAlreadyStarted is returned by Start when called twice.
var ErrAlreadyStarted = errors.New("session already started")

// SessionDeps groups the collaborators of Session.
type SessionDeps struct {
	Backend     ports.AuthBackend      // Required
	Credentials ports.CredentialHolder // Required: owner of the shared Authorization header
	Store       ports.TokenStore       // Required
	Exchange    *CredentialExchange    // Required
	Identity    ports.IdentityProvider // Optional: federated sign-out and observer
	Redirects   ports.RedirectFlow     // Optional: two-step sign-in completed by a deep link
	Navigator   ports.Navigator        // Optional: forced redirect on authorization errors
}

// SessionConfig tunes session behaviour.
type SessionConfig struct {
	ProfileGraceDelay time.Duration // default DefaultProfileGraceDelay; negative disables
	ReauthPolicy      ReauthPolicy  // default ReauthLazy
	Now               func() time.Time
}

// SessionOptions groups dependencies for Session.
type SessionOptions struct {
	Deps      SessionDeps
	Config    SessionConfig
	Telemetry Telemetry
}

// Session is the single source of truth for who is signed in.
// It owns the persisted token and the shared Authorization header; nothing else writes them.
type Session struct {
	backend   ports.AuthBackend
	creds     ports.CredentialHolder
	store     ports.TokenStore
	exchange  *CredentialExchange
	identity  ports.IdentityProvider
	redirects ports.RedirectFlow
	navigator ports.Navigator
	cfg       SessionConfig
	logger    *slog.Logger
	metrics   metrics.Recorder

	// tokenMu serialises token changes across the store, the header and memory.
	tokenMu sync.Mutex

	mu         sync.Mutex
	token      string
	user       *domainauth.UserRecord
	loading    bool
	phase      domainauth.StartupPhase
	generation uint64
	parked     *domainauth.FederatedIdentity
	observeErr error // outcome of the last observed sign-in
	observeCtx context.Context
	unobserve  func()
	subs       map[int]func(domainauth.Session)
	nextSubID  int

	logoutGroup singleflight.Group
}

// NewSession constructs a Session. The session starts in the loading state until
// Start or Restore completes.
func NewSession(opts SessionOptions) *Session {
	switch {
	case opts.Deps.Backend == nil:
		panic("AuthBackend is required")
	case opts.Deps.Credentials == nil:
		panic("CredentialHolder is required")
	case opts.Deps.Store == nil:
		panic("TokenStore is required")
	case opts.Deps.Exchange == nil:
		panic("CredentialExchange is required")
	}

	cfg := opts.Config
	if cfg.ProfileGraceDelay == 0 {
		cfg.ProfileGraceDelay = DefaultProfileGraceDelay
	}
	if cfg.ReauthPolicy == "" {
		cfg.ReauthPolicy = ReauthLazy
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	tel := opts.Telemetry.withDefaults()

	return &Session{
		backend:   opts.Deps.Backend,
		creds:     opts.Deps.Credentials,
		store:     opts.Deps.Store,
		exchange:  opts.Deps.Exchange,
		identity:  opts.Deps.Identity,
		redirects: opts.Deps.Redirects,
		navigator: opts.Deps.Navigator,
		cfg:       cfg,
		logger:    tel.Logger,
		metrics:   tel.Metrics,
		loading:   true,
		phase:     domainauth.PhaseUnstarted,
		subs:      make(map[int]func(domainauth.Session)),
	}
}

// Snapshot returns a copy of the current session.
func (s *Session) Snapshot() domainauth.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domainauth.Session {
	return domainauth.Session{
		Token:   s.token,
		User:    s.user.Clone(),
		Loading: s.loading,
		Phase:   s.phase,
	}
}

// Destination returns the screen the user should see right now.
func (s *Session) Destination() domainauth.ScreenID {
	snap := s.Snapshot()
	if snap.Loading {
		return domainauth.ScreenLoading
	}
	return domainauth.ResolveDestination(snap.User)
}

// Subscribe registers fn to receive a snapshot after every change.
// fn runs on the goroutine that made the change and must not block.
func (s *Session) Subscribe(fn func(domainauth.Session)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Session) notify() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	fns := make([]func(domainauth.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// Start runs the startup sequence: restore the persisted session, then, if
// nothing was restored, adopt a federated identity the provider already holds.
// Identity events that arrive while restoring are parked and dropped if the
// restore produced a session.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != domainauth.PhaseUnstarted {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.phase = domainauth.PhaseRestoring
	s.observeCtx = context.WithoutCancel(ctx)
	s.mu.Unlock()

	if s.identity != nil {
		unobserve := s.identity.Subscribe(s.onIdentity)
		s.mu.Lock()
		s.unobserve = unobserve
		s.mu.Unlock()
	}

	restoreErr := s.Restore(ctx)

	s.mu.Lock()
	parked := s.parked
	s.parked = nil
	if s.token != "" {
		s.phase = domainauth.PhaseSettled
		s.mu.Unlock()
		if parked != nil {
			s.logger.DebugContext(ctx, "dropping identity event, session restored from storage")
		}
		s.notify()
		return restoreErr
	}
	s.phase = domainauth.PhaseObservingOnly
	s.mu.Unlock()
	s.notify()

	observeErr := s.observeOnce(ctx, parked)

	s.mu.Lock()
	s.phase = domainauth.PhaseSettled
	late := s.parked
	s.parked = nil
	anonymous := s.token == ""
	s.mu.Unlock()
	s.notify()

	if late != nil && anonymous {
		observeErr = errors.Join(observeErr, s.syncIdentity(ctx, *late))
	}
	return errors.Join(restoreErr, observeErr)
}

// observeOnce is the single-shot startup read of the identity provider.
func (s *Session) observeOnce(ctx context.Context, parked *domainauth.FederatedIdentity) error {
	id := parked
	if id == nil && s.identity != nil {
		current, err := s.identity.Current(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "read federated session failed", "error", err)
			return fmt.Errorf("read federated session: %w", err)
		}
		id = current
	}
	if id == nil {
		return nil
	}
	return s.syncIdentity(ctx, *id)
}

// onIdentity receives sign-ins completed outside a direct call.
func (s *Session) onIdentity(id domainauth.FederatedIdentity) {
	s.mu.Lock()
	switch s.phase {
	case domainauth.PhaseUnstarted, domainauth.PhaseRestoring, domainauth.PhaseObservingOnly:
		s.parked = &id
		s.mu.Unlock()
		return
	}
	anonymous := s.token == ""
	ctx := s.observeCtx
	s.mu.Unlock()

	if !anonymous {
		s.logger.DebugContext(ctx, "ignoring identity event, session already active")
		return
	}
	err := s.syncIdentity(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "federated sign-in from observer failed", "error", err)
	}
	s.mu.Lock()
	s.observeErr = err
	s.mu.Unlock()
}

func (s *Session) syncIdentity(ctx context.Context, id domainauth.FederatedIdentity) error {
	out, err := s.exchange.SyncIdentity(ctx, id)
	if err != nil {
		return err
	}
	return s.establish(ctx, out.BackendToken, out.User)
}

// Close detaches the identity observer.
func (s *Session) Close() {
	s.mu.Lock()
	unobserve := s.unobserve
	s.unobserve = nil
	s.mu.Unlock()
	if unobserve != nil {
		unobserve()
	}
}

// Restore reads the persisted token and, if present, validates it with a profile fetch.
func (s *Session) Restore(ctx context.Context) error {
	token, err := s.store.Load(ctx)
	if err != nil {
		s.setLoading(false)
		s.metrics.RecordRestore(metrics.ResultError, err)
		return fmt.Errorf("load persisted token: %w", err)
	}
	if token == "" {
		s.setLoading(false)
		s.metrics.RecordRestore(metrics.ResultNoop, nil)
		return nil
	}

	s.tokenMu.Lock()
	s.creds.SetBearerToken(token)
	s.mu.Lock()
	s.generation++
	s.token = token
	s.loading = true
	s.mu.Unlock()
	s.tokenMu.Unlock()
	s.notify()

	if s.cfg.ReauthPolicy == ReauthEager && domainauth.TokenExpired(token, s.cfg.Now()) {
		s.logger.InfoContext(ctx, "persisted token expired, signing out")
		s.HandleUnauthorized(ctx, token)
		s.metrics.RecordRestore(metrics.ResultError, apperrors.Unauthorized("persisted token expired"))
		return nil
	}

	err = s.FetchProfile(ctx)
	switch {
	case err == nil:
		s.metrics.RecordRestore(metrics.ResultSuccess, nil)
		return nil
	case apperrors.IsUnauthorized(err):
		// The session is anonymous again; that is a normal restore outcome.
		s.metrics.RecordRestore(metrics.ResultError, err)
		return nil
	default:
		s.metrics.RecordRestore(metrics.ResultError, err)
		return err
	}
}

// FetchProfile loads the user behind the active token.
// An authorization failure logs out. Any other failure keeps the token and
// clears the loading flag after the grace delay.
func (s *Session) FetchProfile(ctx context.Context) error {
	s.mu.Lock()
	token := s.token
	gen := s.generation
	if token == "" {
		s.loading = false
		s.mu.Unlock()
		s.notify()
		return apperrors.Unauthorized("no active session")
	}
	s.loading = true
	s.mu.Unlock()
	s.notify()

	user, err := s.backend.Profile(ctx)
	if err == nil {
		s.mu.Lock()
		if s.generation != gen {
			s.mu.Unlock()
			s.logger.DebugContext(ctx, "discarding profile for a replaced session")
			return nil
		}
		s.user = user
		s.loading = false
		s.mu.Unlock()
		s.notify()
		return nil
	}

	if apperrors.IsUnauthorized(err) {
		s.HandleUnauthorized(ctx, token)
		return err
	}

	s.logger.WarnContext(ctx, "profile fetch failed, keeping session", "error", err)
	if delay := s.cfg.ProfileGraceDelay; delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}
	s.mu.Lock()
	same := s.generation == gen
	if same {
		s.loading = false
	}
	s.mu.Unlock()
	if same {
		s.notify()
	}
	return err
}

// RefreshProfile re-fetches the user and replaces it in place.
func (s *Session) RefreshProfile(ctx context.Context) error {
	return s.FetchProfile(ctx)
}

// Login signs in with email and password and returns the backend payload.
// On failure the session is left untouched.
func (s *Session) Login(ctx context.Context, email, password string) (*domainauth.AuthResponse, error) {
	out, err := s.exchange.Password(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.establish(ctx, out.BackendToken, out.User); err != nil {
		return nil, err
	}
	return out.Response, nil
}

// Register validates in, creates the account and signs it in.
func (s *Session) Register(ctx context.Context, in domainauth.RegisterInput) (*domainauth.AuthResponse, error) {
	in, err := ValidateRegistration(in)
	if err != nil {
		return nil, err
	}
	out, err := s.exchange.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.establish(ctx, out.BackendToken, out.User); err != nil {
		return nil, err
	}
	return out.Response, nil
}

// LoginWithFederatedProvider signs in through a social provider.
func (s *Session) LoginWithFederatedProvider(ctx context.Context, provider string) (*domainauth.AuthResponse, error) {
	out, err := s.exchange.Federated(ctx, provider)
	if err != nil {
		return nil, err
	}
	if err := s.establish(ctx, out.BackendToken, out.User); err != nil {
		return nil, err
	}
	return out.Response, nil
}

// AdoptToken signs in with a token handed over out of band (deep link return).
func (s *Session) AdoptToken(ctx context.Context, token string) error {
	if token == "" {
		return apperrors.ValidationField("token", "token is required")
	}
	return s.establish(ctx, token, nil)
}

// SelectRole assigns the user's role. Patients must name their caregiver.
func (s *Session) SelectRole(ctx context.Context, role domainauth.Role, caregiverCode string) error {
	role, caregiverCode, err := ValidateRoleSelection(role, caregiverCode)
	if err != nil {
		return err
	}
	res, err := s.backend.SetRole(ctx, role, caregiverCode)
	if err != nil {
		return err
	}
	if res != nil && res.AccessToken != "" {
		if err := s.replaceToken(ctx, res.AccessToken); err != nil {
			return err
		}
	}
	return s.FetchProfile(ctx)
}

// establish makes token the active credential. The durable store is written
// before the header, and the header before memory, so no request can observe
// a token that would not survive a restart.
func (s *Session) establish(ctx context.Context, token string, user *domainauth.UserRecord) error {
	s.tokenMu.Lock()
	if err := s.store.Save(ctx, token); err != nil {
		s.tokenMu.Unlock()
		return fmt.Errorf("persist token: %w", err)
	}
	s.creds.SetBearerToken(token)
	s.mu.Lock()
	s.generation++
	s.token = token
	s.user = user.Clone()
	s.loading = user == nil
	s.mu.Unlock()
	s.tokenMu.Unlock()
	s.notify()

	if user == nil {
		return s.FetchProfile(ctx)
	}
	return nil
}

// replaceToken swaps the token and keeps the current user until the next fetch.
func (s *Session) replaceToken(ctx context.Context, token string) error {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()
	if err := s.store.Save(ctx, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	s.creds.SetBearerToken(token)
	s.mu.Lock()
	s.generation++
	s.token = token
	s.mu.Unlock()
	return nil
}

// Logout ends the session. The federated session is terminated first and awaited;
// local state is cleared even when that or the store fails. A logout that overlaps
// the teardown triggered by a 401 for the same token joins it.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if token == "" {
		return s.logout(ctx, metrics.LogoutUser)
	}
	_, err, _ := s.logoutGroup.Do(token, func() (any, error) {
		return nil, s.logout(ctx, metrics.LogoutUser)
	})
	return err
}

func (s *Session) logout(ctx context.Context, reason string) error {
	// Invalidate in-flight profile fetches before awaiting anything.
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()

	var errs []error
	if s.identity != nil {
		if err := s.identity.SignOut(ctx); err != nil {
			errs = append(errs, fmt.Errorf("federated sign-out: %w", err))
		}
	}

	s.tokenMu.Lock()
	if err := s.store.Delete(ctx); err != nil {
		errs = append(errs, fmt.Errorf("delete persisted token: %w", err))
	}
	s.creds.SetBearerToken("")
	s.mu.Lock()
	s.generation++
	s.token = ""
	s.user = nil
	s.loading = false
	s.mu.Unlock()
	s.tokenMu.Unlock()
	s.notify()

	s.metrics.RecordLogout(reason)
	s.logger.InfoContext(ctx, "signed out", "reason", reason)
	return errors.Join(errs...)
}

// HandleUnauthorized is the global 401 interceptor. tokenUsed is the credential the
// rejected request carried. Only a rejection of the current token signs out, and
// concurrent rejections of the same token sign out and navigate exactly once.
func (s *Session) HandleUnauthorized(ctx context.Context, tokenUsed string) {
	if tokenUsed == "" || !s.isCurrent(tokenUsed) {
		return
	}
	ctx = context.WithoutCancel(ctx)
	_, _, _ = s.logoutGroup.Do(tokenUsed, func() (any, error) {
		if !s.isCurrent(tokenUsed) {
			return nil, nil
		}
		if err := s.logout(ctx, metrics.LogoutUnauthorized); err != nil {
			s.logger.WarnContext(ctx, "logout after authorization failure", "error", err)
		}
		if s.navigator != nil {
			s.navigator.Navigate(ctx, domainauth.ScreenSignIn)
		}
		return nil, nil
	})
}

func (s *Session) isCurrent(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != "" && s.token == token
}

func (s *Session) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
	s.notify()
}
