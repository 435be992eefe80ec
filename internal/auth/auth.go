// Package auth checks dashboard credentials against the users collection
// and keeps the resulting sessions in memory.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"elevadorpro/internal/core"
	"elevadorpro/internal/logging"
	"elevadorpro/pkg/domain"
)

var (
	// ErrMissingCredentials is returned when email or password is blank.
	ErrMissingCredentials = errors.New("preencha e-mail e senha")
	// ErrInvalidCredentials is returned when no user matches.
	ErrInvalidCredentials = errors.New("usuário não encontrado, verifique e-mail e senha")
	// ErrForbidden is returned when the session role may not use a resource.
	ErrForbidden = errors.New("acesso não permitido para este perfil")
)

// Landing pages per role.
const (
	HomeDashboard = "/dashboard"
	HomeElevators = "/elevadores"
)

// DefaultTTL bounds a session's lifetime.
const DefaultTTL = 12 * time.Hour

// Session is an authenticated user. User never carries the password.
type Session struct {
	Token     string      `json:"token"`
	User      domain.User `json:"user"`
	Home      string      `json:"home"`
	CreatedAt time.Time   `json:"createdAt"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// HomeFor returns where a role lands after login.
func HomeFor(role string) string {
	if role == domain.RoleFuncionario {
		return HomeElevators
	}
	return HomeDashboard
}

// Authenticator issues and resolves sessions.
type Authenticator struct {
	users core.Repository[domain.User]
	log   logging.Logger
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]Session
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(a *Authenticator) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(a *Authenticator) { a.log = logging.OrNop(l) }
}

// New builds an authenticator reading users through svc.
func New(svc *core.Service, opts ...Option) *Authenticator {
	a := &Authenticator{
		users:    svc.Users(),
		log:      logging.Nop(),
		ttl:      DefaultTTL,
		now:      time.Now,
		sessions: make(map[string]Session),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Check verifies credentials without opening a session.
func (a *Authenticator) Check(ctx context.Context, email, senha string) (domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || strings.TrimSpace(senha) == "" {
		return domain.User{}, ErrMissingCredentials
	}
	users, err := a.users.List(ctx)
	if err != nil {
		return domain.User{}, err
	}
	for _, u := range users {
		if u.Email == email && u.Senha == senha {
			return u.Public(), nil
		}
	}
	return domain.User{}, ErrInvalidCredentials
}

// Login checks credentials and opens a session.
func (a *Authenticator) Login(ctx context.Context, email, senha string) (Session, error) {
	user, err := a.Check(ctx, email, senha)
	if err != nil {
		a.log.Info("login rejected", "email", email, "reason", err)
		return Session{}, err
	}
	now := a.now()
	s := Session{
		Token:     uuid.NewString(),
		User:      user,
		Home:      HomeFor(user.Role),
		CreatedAt: now,
		ExpiresAt: now.Add(a.ttl),
	}
	a.mu.Lock()
	a.sessions[s.Token] = s
	a.mu.Unlock()
	a.log.Info("login", "user", user.ID, "role", user.Role)
	return s, nil
}

// Session resolves a token. Expired sessions are dropped.
func (a *Authenticator) Session(token string) (Session, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[token]
	if !ok {
		return Session{}, false
	}
	if !a.now().Before(s.ExpiresAt) {
		delete(a.sessions, token)
		return Session{}, false
	}
	return s, true
}

// Logout ends a session. Unknown tokens are ignored.
func (a *Authenticator) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

// Active counts sessions that have not expired.
func (a *Authenticator) Active() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	n := 0
	for token, s := range a.sessions {
		if now.Before(s.ExpiresAt) {
			n++
			continue
		}
		delete(a.sessions, token)
	}
	return n
}

// Authorize reports ErrForbidden when role is listed in denied.
func Authorize(role string, denied ...string) error {
	for _, d := range denied {
		if role == d {
			return ErrForbidden
		}
	}
	return nil
}

type ctxKey struct{}

// NewContext attaches s to ctx.
func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached by NewContext.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}
