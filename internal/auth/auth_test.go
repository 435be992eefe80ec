package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elevadorpro/internal/core"
	"elevadorpro/internal/infra/persistence/memory"
	seedmem "elevadorpro/internal/infra/seedstore/memory"
	"elevadorpro/internal/overlay"
	"elevadorpro/internal/seed"
	"elevadorpro/pkg/domain"
)

func newAuth(t *testing.T, opts ...Option) (*Authenticator, *core.Service) {
	t.Helper()
	src := seedmem.New()
	src.PutString("users.json", `[
		{"id":"ID-0001","nome":"Admin","email":"admin@otis.com","senha":"123","role":"admin"},
		{"id":"ID-0002","nome":"Func","email":"func@otis.com","senha":"abc","role":"funcionario"}
	]`)
	svc := core.NewService(core.NewEngine(seed.NewReader(src), overlay.NewStore(memory.NewStore())))
	return New(svc, opts...), svc
}

func TestLogin(t *testing.T) {
	a, _ := newAuth(t)
	ctx := context.Background()

	s, err := a.Login(ctx, " admin@otis.com ", "123")
	require.NoError(t, err)
	assert.NotEmpty(t, s.Token)
	assert.Empty(t, s.User.Senha, "password must not leak into the session")
	assert.Equal(t, HomeDashboard, s.Home)

	got, ok := a.Session(s.Token)
	require.True(t, ok)
	assert.Equal(t, "ID-0001", got.User.ID)

	f, err := a.Login(ctx, "func@otis.com", "abc")
	require.NoError(t, err)
	assert.Equal(t, HomeElevators, f.Home)
	assert.ErrorIs(t, Authorize(f.User.Role, domain.RoleFuncionario), ErrForbidden)
	assert.NoError(t, Authorize(s.User.Role, domain.RoleFuncionario))

	a.Logout(s.Token)
	a.Logout(s.Token)
	_, ok = a.Session(s.Token)
	assert.False(t, ok)
	assert.Equal(t, 1, a.Active())
}

func TestLoginFailures(t *testing.T) {
	a, _ := newAuth(t)
	ctx := context.Background()
	_, err := a.Login(ctx, "", "123")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = a.Login(ctx, "admin@otis.com", "  ")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = a.Login(ctx, "admin@otis.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginSeesOverlayUsers(t *testing.T) {
	a, svc := newAuth(t)
	_, err := svc.Users().Create(context.Background(), domain.User{Email: "novo@otis.com", Senha: "x", Role: domain.RoleGerente})
	require.NoError(t, err)
	s, err := a.Login(context.Background(), "novo@otis.com", "x")
	require.NoError(t, err)
	assert.Equal(t, "ID-0003", s.User.ID)
}

func TestSessionsExpire(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	a, _ := newAuth(t, WithTTL(time.Hour), WithClock(func() time.Time { return now }))
	s, err := a.Login(context.Background(), "admin@otis.com", "123")
	require.NoError(t, err)
	now = now.Add(2 * time.Hour)
	_, ok := a.Session(s.Token)
	assert.False(t, ok)
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
	ctx := NewContext(context.Background(), Session{Token: "t"})
	s, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "t", s.Token)
}
