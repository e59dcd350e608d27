// Package loginflow drives the login and expired-password-reset forms as an
// explicit state machine: Idle → Submitting → Succeeded | Failed(reason) |
// PasswordExpired(username) → back to Idle after a successful reset.
package loginflow

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rapscallion45/tradernet/internal/api"
	"github.com/rapscallion45/tradernet/internal/domain/identity"
	"github.com/rapscallion45/tradernet/internal/domain/notification"
	"github.com/rapscallion45/tradernet/internal/metrics"
	"github.com/rapscallion45/tradernet/internal/session"
)

// Kind enumerates the states of the flow.
type Kind int

const (
	KindIdle Kind = iota
	KindSubmitting
	KindSucceeded
	KindFailed
	KindPasswordExpired
)

func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindSubmitting:
		return "submitting"
	case KindSucceeded:
		return "succeeded"
	case KindFailed:
		return "failed"
	case KindPasswordExpired:
		return "password_expired"
	}
	return "invalid"
}

// State is the tagged flow state. Reason is set for KindFailed; Username is
// set for KindPasswordExpired so the reset form can be pre-filled.
type State struct {
	Kind     Kind
	Reason   api.Status
	Username string
}

// Flow state errors.
var (
	ErrSubmitInFlight   = errors.New("login submission already in flight")
	ErrNotResettable    = errors.New("no expired password to reset")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// Authenticator is the auth collaborator contract the flow drives.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (api.LoginResult, error)
	Logout(ctx context.Context) (string, error)
	ResetPassword(ctx context.Context, username, currentPassword, newPassword string) error
}

// Router provides navigation after a successful login.
type Router interface {
	NavigateToApp()
}

// Toaster shows feedback notifications; the dispatcher satisfies it.
type Toaster interface {
	Toast(ctx context.Context, n notification.Notification)
}

// IdentitySink receives the identity after a successful login, e.g. the
// trusted identity cache.
type IdentitySink interface {
	Store(id identity.Identity) error
	Clear() error
}

// Flow is the login/reset state machine. All transitions go through Submit,
// SubmitReset and Logout; State and Feedback expose what the form layer
// should render.
type Flow struct {
	auth     Authenticator
	sessions *session.Store
	router   Router
	toasts   Toaster
	sink     IdentitySink
	settings PasswordSettings
	log      zerolog.Logger

	mu    sync.Mutex
	state State
	// Credentials retained while a reset is pending: the reset call
	// re-authenticates with the expired password, and the username
	// pre-fills the form.
	pendingUsername string
	pendingPassword string
}

// Option configures a Flow.
type Option func(*Flow)

// WithRouter sets the post-login navigation target.
func WithRouter(r Router) Option {
	return func(f *Flow) { f.router = r }
}

// WithToaster wires reset-outcome notifications.
func WithToaster(t Toaster) Option {
	return func(f *Flow) { f.toasts = t }
}

// WithIdentitySink persists the identity on success (trusted-cache opt-in).
func WithIdentitySink(s IdentitySink) Option {
	return func(f *Flow) { f.sink = s }
}

// WithPasswordSettings overrides the reset password policy.
func WithPasswordSettings(s PasswordSettings) Option {
	return func(f *Flow) { f.settings = s }
}

// WithLogger sets the flow logger.
func WithLogger(log zerolog.Logger) Option {
	return func(f *Flow) { f.log = log.With().Str("component", "loginflow").Logger() }
}

// New builds a flow in the Idle state.
func New(auth Authenticator, sessions *session.Store, opts ...Option) *Flow {
	f := &Flow{
		auth:     auth,
		sessions: sessions,
		settings: DefaultPasswordSettings(),
		log:      zerolog.Nop(),
		state:    State{Kind: KindIdle},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns the current flow state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Feedback returns the inline message for the current state, if any.
func (f *Flow) Feedback() (Feedback, bool) {
	switch s := f.State(); s.Kind {
	case KindFailed:
		return FeedbackFor(s.Reason), true
	case KindPasswordExpired:
		return FeedbackFor(api.StatusAccountPasswordExpired), true
	}
	return Feedback{}, false
}

// Submit runs one login attempt. Valid from Idle and Failed (retry); a
// submission already in flight is rejected. Transport failures land in
// Failed(Unknown); domain outcomes follow the collaborator's status.
func (f *Flow) Submit(ctx context.Context, username, password string) (State, error) {
	f.mu.Lock()
	switch f.state.Kind {
	case KindSubmitting:
		state := f.state
		f.mu.Unlock()
		return state, ErrSubmitInFlight
	case KindIdle, KindFailed:
	default:
		state := f.state
		f.mu.Unlock()
		return state, errors.New("login not available in state " + state.Kind.String())
	}

	if username == "" || password == "" {
		// Caught before any network call, like the form's required check.
		f.state = State{Kind: KindFailed, Reason: api.StatusInvalidRequest}
		state := f.state
		f.mu.Unlock()
		return state, nil
	}
	f.state = State{Kind: KindSubmitting}
	f.mu.Unlock()

	result, err := f.auth.Login(ctx, username, password)
	if err != nil {
		f.log.Warn().Err(err).Msg("login transport failure")
		return f.transition(State{Kind: KindFailed, Reason: api.StatusUnknown}), nil
	}

	metrics.RecordLogin(string(result.Status))
	switch result.Status {
	case api.StatusSuccess:
		id := result.User
		if id.IsZero() {
			id = identity.Identity{Username: username}
		}
		f.sessions.Set(id)
		if f.sink != nil {
			if err := f.sink.Store(id); err != nil {
				f.log.Warn().Err(err).Msg("identity cache write failed")
			}
		}
		if f.router != nil {
			f.router.NavigateToApp()
		}
		return f.transition(State{Kind: KindSucceeded}), nil

	case api.StatusAccountPasswordExpired:
		f.mu.Lock()
		f.pendingUsername = username
		f.pendingPassword = password
		f.state = State{Kind: KindPasswordExpired, Username: username}
		state := f.state
		f.mu.Unlock()
		return state, nil

	case api.StatusIncorrectCredentials, api.StatusUserNotFound,
		api.StatusInvalidRequest, api.StatusUnknown:
		return f.transition(State{Kind: KindFailed, Reason: result.Status}), nil
	}
	return f.transition(State{Kind: KindFailed, Reason: api.StatusUnknown}), nil
}

// SubmitReset submits the new/confirm password pair from the reset form.
// Mismatch and policy violations are caught locally and issue no network
// call; a successful reset returns the flow to Idle so the user logs in
// again with the new password.
func (f *Flow) SubmitReset(ctx context.Context, newPassword, confirmPassword string) (State, error) {
	f.mu.Lock()
	if f.state.Kind != KindPasswordExpired {
		state := f.state
		f.mu.Unlock()
		return state, ErrNotResettable
	}
	username := f.pendingUsername
	currentPassword := f.pendingPassword
	state := f.state
	f.mu.Unlock()

	if newPassword != confirmPassword {
		return state, ErrPasswordMismatch
	}
	if err := ValidatePassword(newPassword, f.settings); err != nil {
		return state, err
	}

	if err := f.auth.ResetPassword(ctx, username, currentPassword, newPassword); err != nil {
		f.log.Warn().Err(err).Str("username", username).Msg("password reset failed")
		f.toast(ctx, notification.Notification{
			ID:      "password-change",
			Title:   "Password change failed",
			Message: []string{"Please try again or contact an administrator."},
			Variant: notification.VariantError,
		})
		return state, err
	}

	f.toast(ctx, notification.Notification{
		ID:      "password-change",
		Title:   "Password changed successfully",
		Message: []string{"You can now log in with your new password."},
		Variant: notification.VariantSuccess,
	})

	f.mu.Lock()
	f.pendingUsername = ""
	f.pendingPassword = ""
	f.state = State{Kind: KindIdle}
	state = f.state
	f.mu.Unlock()
	return state, nil
}

// Logout ends the session. The local session clears regardless of what the
// collaborator answers; only transport failures are reported, after the
// clear has already happened.
func (f *Flow) Logout(ctx context.Context) error {
	_, err := f.auth.Logout(ctx)

	f.sessions.Clear()
	if f.sink != nil {
		if cerr := f.sink.Clear(); cerr != nil {
			f.log.Warn().Err(cerr).Msg("identity cache clear failed")
		}
	}
	f.transition(State{Kind: KindIdle})

	if err != nil {
		f.log.Warn().Err(err).Msg("logout request failed; session cleared locally")
		return err
	}
	return nil
}

func (f *Flow) transition(next State) State {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = next
	return next
}

func (f *Flow) toast(ctx context.Context, n notification.Notification) {
	if f.toasts == nil {
		return
	}
	n.Timestamp = notification.Now()
	f.toasts.Toast(ctx, n)
}
