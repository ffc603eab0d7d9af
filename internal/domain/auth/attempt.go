package auth

import (
	"errors"
	"fmt"
	"sync"
)

// AttemptState is the state of a single sign-in attempt.
type AttemptState string

const (
	AttemptIdle             AttemptState = "IDLE"
	AttemptInProgress       AttemptState = "IN_PROGRESS"
	AttemptIdentityObtained AttemptState = "IDENTITY_OBTAINED"
	AttemptSyncing          AttemptState = "SYNCING"
	AttemptDone             AttemptState = "DONE"
	AttemptFailed           AttemptState = "FAILED"
)

// Terminal reports whether no further transitions are allowed.
func (s AttemptState) Terminal() bool {
	return s == AttemptDone || s == AttemptFailed
}

// SignInMethod names the mechanism used by an attempt.
type SignInMethod string

const (
	MethodPassword        SignInMethod = "password"
	MethodRegister        SignInMethod = "register"
	MethodFederatedWeb    SignInMethod = "federated_web"
	MethodFederatedNative SignInMethod = "federated_native"
	MethodObserver        SignInMethod = "federated_observer"
)

// ErrAttemptFinished is returned when a terminal attempt is asked to move again.
// Callers start a new attempt to retry.
var ErrAttemptFinished = errors.New("sign-in attempt already finished")

var allowedTransitions = map[AttemptState][]AttemptState{
	AttemptIdle:             {AttemptInProgress},
	AttemptInProgress:       {AttemptIdentityObtained, AttemptSyncing, AttemptFailed},
	AttemptIdentityObtained: {AttemptSyncing, AttemptFailed},
	AttemptSyncing:          {AttemptDone, AttemptFailed},
}

// Attempt tracks one invocation of a credential exchange.
// It is safe for concurrent use.
type Attempt struct {
	Method SignInMethod

	mu      sync.Mutex
	state   AttemptState
	history []AttemptState
	err     error
}

// NewAttempt returns an attempt in the IDLE state.
func NewAttempt(method SignInMethod) *Attempt {
	return &Attempt{
		Method:  method,
		state:   AttemptIdle,
		history: []AttemptState{AttemptIdle},
	}
}

// State returns the current state.
func (a *Attempt) State() AttemptState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// History returns every state the attempt went through, in order.
func (a *Attempt) History() []AttemptState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]AttemptState(nil), a.history...)
}

// Err returns the failure recorded by Fail, if any.
func (a *Attempt) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Start moves IDLE → IN_PROGRESS.
func (a *Attempt) Start() error { return a.transition(AttemptInProgress) }

// IdentityObtained records that the federated mechanism produced a proof token.
func (a *Attempt) IdentityObtained() error { return a.transition(AttemptIdentityObtained) }

// Syncing records that the proof is being exchanged with the backend.
func (a *Attempt) Syncing() error { return a.transition(AttemptSyncing) }

// Done records backend success.
func (a *Attempt) Done() error { return a.transition(AttemptDone) }

// Fail records err and moves to FAILED.
func (a *Attempt) Fail(err error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.moveLocked(AttemptFailed); err != nil {
		return err
	}
	a.err = err
	return nil
}

func (a *Attempt) transition(next AttemptState) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.moveLocked(next)
}

func (a *Attempt) moveLocked(next AttemptState) error {
	if a.state.Terminal() {
		return ErrAttemptFinished
	}
	for _, allowed := range allowedTransitions[a.state] {
		if allowed == next {
			a.state = next
			a.history = append(a.history, next)
			return nil
		}
	}
	return fmt.Errorf("invalid sign-in transition %s -> %s", a.state, next)
}
