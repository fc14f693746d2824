package mega

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/openmega/megawait/internal/bridge"
	"github.com/openmega/megawait/internal/native"
)

// State is the session lifecycle state.
type State int

// Lifecycle states. Transitions are strictly forward except that a failed
// Open reverts Authenticating to Unauthenticated.
const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
	StateClosing
	StateClosed
)

var stateNames = [...]string{
	StateUnauthenticated: "unauthenticated",
	StateAuthenticating:  "authenticating",
	StateAuthenticated:   "authenticated",
	StateClosing:         "closing",
	StateClosed:          "closed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}

	return "state(?)"
}

// defaultLogoutTimeout bounds how long Close waits for the native logout
// callback. Native shutdown callbacks are not always guaranteed to arrive.
const defaultLogoutTimeout = 10 * time.Second

// Credentials parameterize a session. TOTP is the optional two-factor code;
// leaving it empty on an account that requires one fails Open with
// ErrAuthentication.
type Credentials struct {
	Email    string
	Password string
	TOTP     string
}

// Session owns one native client handle for one login lifecycle. It is safe
// for concurrent use: any number of goroutines may run operations against an
// open session, and each receives exactly its own result.
//
// The zero value is not usable; create with New and always Close — Close
// releases the native handle on every path, including after a failed Open.
type Session struct {
	api    native.API
	reg    *bridge.Registry
	logger *slog.Logger

	logoutTimeout time.Duration
	opTimeout     time.Duration

	mu    sync.Mutex
	state State
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithLogoutTimeout bounds how long Close waits for the native logout.
func WithLogoutTimeout(d time.Duration) Option {
	return func(s *Session) { s.logoutTimeout = d }
}

// WithOperationTimeout applies a deadline to every facade operation that
// does not already carry a shorter one. Zero (the default) means no
// timeout. The race happens entirely at this layer; the native SDK is
// never asked to enforce it.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *Session) { s.opTimeout = d }
}

// New wraps a freshly acquired native client handle in an unauthenticated
// session. The session takes ownership of the handle; it is released by
// Close and by nothing else.
func New(api native.API, opts ...Option) *Session {
	s := &Session{
		api:           api,
		reg:           bridge.NewRegistry(),
		logger:        slog.Default(),
		logoutTimeout: defaultLogoutTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Outstanding returns the number of operations submitted but not yet
// resolved.
func (s *Session) Outstanding() int {
	return s.reg.Len()
}

// Open authenticates the session. It drives the native login through the
// same listener bridge as every other operation. Calling Open on a session
// that is already open or closed fails fast with ErrAlreadyOpen or
// ErrSessionClosed; it never silently no-ops.
func (s *Session) Open(ctx context.Context, creds Credentials) error {
	const op = "login"

	if creds.Email == "" || creds.Password == "" {
		return &OpError{Op: op, Err: ErrInvalidArgument, Message: "email and password are required"}
	}

	s.mu.Lock()
	switch s.state {
	case StateUnauthenticated:
		s.state = StateAuthenticating
	case StateClosing, StateClosed:
		s.mu.Unlock()

		return &OpError{Op: op, Err: ErrSessionClosed}
	default:
		s.mu.Unlock()

		return &OpError{Op: op, Err: ErrAlreadyOpen}
	}

	w := s.reg.NewWaiter()
	handle := s.api.Login(creds.Email, creds.Password, creds.TOTP, w)
	s.mu.Unlock()

	s.logger.Debug("login submitted",
		slog.String("email", creds.Email),
		slog.String("correlation_id", w.ID()),
	)

	err := s.settle(ctx, op, w, handle)
	s.mu.Lock()
	if err != nil {
		// Close may have raced in; only revert our own transition.
		if s.state == StateAuthenticating {
			s.state = StateUnauthenticated
		}
		s.mu.Unlock()

		return err
	}

	if s.state != StateAuthenticating {
		// Close raced in while the login was in flight; the session is
		// already torn down.
		s.mu.Unlock()

		return &OpError{Op: op, Err: ErrSessionClosed}
	}

	s.state = StateAuthenticated
	s.mu.Unlock()

	s.logger.Info("session open", slog.String("email", creds.Email))

	return nil
}

// Close tears the session down: it stops accepting submissions, requests
// the native logout (bounded by the logout timeout), resolves every still
// outstanding operation with ErrSessionClosed, and releases the native
// handle. It returns only once no operation is left pending. Closing an
// already closing or closed session fails fast with ErrSessionClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosing || s.state == StateClosed {
		s.mu.Unlock()

		return &OpError{Op: "close", Err: ErrSessionClosed}
	}

	wasOpen := s.state == StateAuthenticated
	s.state = StateClosing

	var w *bridge.Waiter
	var handle uint64
	if wasOpen {
		w = s.reg.NewWaiter()
		handle = s.api.Logout(w)
	}
	s.mu.Unlock()

	if wasOpen {
		ctx, cancel := context.WithTimeout(context.Background(), s.logoutTimeout)
		if err := s.settle(ctx, "logout", w, handle); err != nil {
			// Shutdown proceeds regardless; the handle is released below.
			s.logger.Warn("native logout did not complete cleanly", slog.String("error", err.Error()))
		}
		cancel()
	}

	if n := s.reg.CloseAll(); n > 0 {
		s.logger.Warn("session closed with operations outstanding", slog.Int("resolved", n))
	}

	s.api.Release()

	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()

	s.logger.Info("session closed")

	return nil
}

// WithSession runs fn against an opened session and closes it on every exit
// path: normal return, error, panic, or an Open that failed after the
// native handle was acquired. The handle passed in is released exactly once
// by the time WithSession returns.
func WithSession(ctx context.Context, api native.API, creds Credentials, fn func(*Session) error, opts ...Option) (err error) {
	s := New(api, opts...)

	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err = s.Open(ctx, creds); err != nil {
		return err
	}

	return fn(s)
}
