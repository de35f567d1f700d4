package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/raphaelgruber/compere-go/internal/client"
	"github.com/raphaelgruber/compere-go/internal/models"
	"github.com/raphaelgruber/compere-go/internal/session"
)

// AuthService is the subset of the auth API the store needs.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*models.Token, error)
	CurrentUser(ctx context.Context) (*models.User, error)
}

// AuthState is the auth store's lifecycle state.
type AuthState int

// Auth states.
const (
	Anonymous AuthState = iota
	Authenticating
	Authenticated
	AuthError
)

func (s AuthState) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case AuthError:
		return "error"
	default:
		return "unknown"
	}
}

// Auth owns the login lifecycle on top of a session.
//
// anonymous -> authenticating -> authenticated | error. A successful login
// persists the token and immediately fetches the profile; if that fetch
// fails the store logs out. Logout is synchronous.
type Auth struct {
	status

	api     AuthService
	session *session.Session
	logger  *slog.Logger

	mu    sync.RWMutex
	user  *models.User
	state AuthState
}

// NewAuth creates an auth store over sess. A session that already holds a
// token starts authenticated; call Start to validate it against the server.
func NewAuth(api AuthService, sess *session.Session, logger *slog.Logger) *Auth {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &Auth{api: api, session: sess, logger: logger}
	if sess.Authenticated() {
		a.state = Authenticated
	}
	return a
}

// Start fetches the profile in the background when a token is present.
// The returned channel is closed once that fetch finishes, or immediately
// when there is nothing to fetch. Callers may ignore it.
func (a *Auth) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if !a.session.Authenticated() {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		a.FetchCurrentUser(ctx)
	}()
	return done
}

// =============================================================================
// STATE
// =============================================================================

// State returns the lifecycle state. A token cleared behind the store's back
// (a 401 on any call) reads as anonymous.
func (a *Auth) State() AuthState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.state == Authenticated && !a.session.Authenticated() {
		return Anonymous
	}
	return a.state
}

// IsAuthenticated reports whether a token is present.
func (a *Auth) IsAuthenticated() bool {
	return a.session.Authenticated()
}

// Token returns the session token.
func (a *Auth) Token() string {
	return a.session.Token()
}

// User returns the loaded profile, or nil.
func (a *Auth) User() *models.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

// ExpiresAt returns the token's expiry claim; ok is false when the token is
// absent, opaque or carries no expiry.
func (a *Auth) ExpiresAt() (time.Time, bool) {
	claims, err := a.session.Claims()
	if err != nil || claims.ExpiresAt.IsZero() {
		return time.Time{}, false
	}
	return claims.ExpiresAt, true
}

// Expired reports whether the token carries an expiry that has already passed.
func (a *Auth) Expired() bool {
	claims, err := a.session.Claims()
	return err == nil && claims.Expired(time.Now())
}

func (a *Auth) setState(state AuthState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = state
}

// =============================================================================
// ACTIONS
// =============================================================================

// Login exchanges credentials for a token, persists it and loads the profile.
// A failed profile fetch logs out but does not turn the login into a failure.
func (a *Auth) Login(ctx context.Context, username, password string) Result[Empty] {
	a.setState(Authenticating)
	a.begin()
	defer a.end()

	token, err := a.api.Login(ctx, username, password)
	if err != nil {
		a.setState(AuthError)
		return fail[Empty](a.failWith(err, "Login failed"))
	}

	if err := a.session.SetToken(token.AccessToken); err != nil {
		a.logger.Error("failed to persist session token", "error", err)
		a.setState(AuthError)
		return fail[Empty](a.failWith(err, "Login failed"))
	}
	a.setState(Authenticated)
	a.logger.Info("logged in", "username", username)

	a.FetchCurrentUser(ctx)

	return ok(Empty{})
}

// Logout clears the token, profile and error.
func (a *Auth) Logout() {
	if err := a.session.Clear(); err != nil {
		a.logger.Warn("failed to clear session token", "error", err)
	}
	a.mu.Lock()
	a.user = nil
	a.state = Anonymous
	a.mu.Unlock()
	a.ClearError()
}

// FetchCurrentUser loads the profile for the current token. Without a token
// it does nothing; on failure the token is assumed invalid and the store logs out.
func (a *Auth) FetchCurrentUser(ctx context.Context) Result[*models.User] {
	if !a.session.Authenticated() {
		return fail[*models.User]("Not authenticated")
	}

	a.begin()
	defer a.end()

	user, err := a.api.CurrentUser(ctx)
	if err != nil {
		msg := client.Message(err, "Failed to fetch user")
		a.logger.Warn("profile fetch failed, logging out", "error", msg)
		a.Logout()
		return fail[*models.User](msg)
	}

	cached := *user
	a.mu.Lock()
	a.user = &cached
	a.state = Authenticated
	a.mu.Unlock()

	return ok(user)
}
