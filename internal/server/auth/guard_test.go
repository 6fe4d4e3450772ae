package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/requestctx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type fakeUsers struct {
	byID map[string]*models.User
	err  error
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func newGuard(t *testing.T, clock *fakeClock, users UserFinder) (*Guard, *TokenIssuer) {
	t.Helper()
	iss := newIssuer(clock)
	log := logging.NewSlogLogger(slog.New(slog.DiscardHandler))
	return NewGuard(iss, users, log), iss
}

var jane = &models.User{ID: "u-1", Name: "Jane Roe", Email: "jane@x.com"}

func TestGuard_Success(t *testing.T) {
	clock := &fakeClock{now: t0}
	g, iss := newGuard(t, clock, &fakeUsers{byID: map[string]*models.User{"u-1": jane}})

	pair, err := iss.IssuePair("u-1", "jane@x.com")
	require.NoError(t, err)

	base := requestctx.WithContext(context.Background(), requestctx.Context{TraceID: "t", RequestID: "r"})
	ctx, id, err := g.Authenticate(base, pair.AccessToken)
	require.NoError(t, err)

	assert.Equal(t, &Identity{UserID: "u-1", Email: "jane@x.com", Name: "Jane Roe"}, id)

	rc, ok := requestctx.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, requestctx.Context{TraceID: "t", RequestID: "r", UserID: "u-1"}, rc)

	fromCtx, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, id, fromCtx)
}

func TestGuard_RejectsAllFailureBranchesAlike(t *testing.T) {
	clock := &fakeClock{now: t0}
	g, iss := newGuard(t, clock, &fakeUsers{byID: map[string]*models.User{"u-1": jane}})

	valid, err := iss.IssuePair("u-1", "jane@x.com")
	require.NoError(t, err)
	ghost, err := iss.IssuePair("u-404", "ghost@x.com")
	require.NoError(t, err)
	foreign, err := NewTokenIssuer([]byte("other"), time.Minute, time.Hour).WithClock(clock.Now).IssuePair("u-1", "jane@x.com")
	require.NoError(t, err)

	expiredClock := &fakeClock{now: t0.Add(-time.Hour)}
	expired, err := newIssuer(expiredClock).IssuePair("u-1", "jane@x.com")
	require.NoError(t, err)

	cases := map[string]string{
		"no cookie":         "",
		"malformed":         "garbage",
		"expired":           expired.AccessToken,
		"tampered":          tamper(valid.AccessToken),
		"wrong secret":      foreign.AccessToken,
		"unknown user":      ghost.AccessToken,
		"refresh as access": valid.RefreshToken,
	}

	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			base := context.Background()
			ctx, id, err := g.Authenticate(base, tok)
			require.ErrorIs(t, err, common.ErrUnauthenticated)
			assert.Nil(t, id)
			assert.Equal(t, base, ctx)
		})
	}
}

func TestGuard_StoreFailureIsNotUnauthenticated(t *testing.T) {
	clock := &fakeClock{now: t0}
	g, iss := newGuard(t, clock, &fakeUsers{err: errors.New("db down")})

	pair, err := iss.IssuePair("u-1", "jane@x.com")
	require.NoError(t, err)

	_, _, err = g.Authenticate(context.Background(), pair.AccessToken)
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrUnauthenticated))
}

// tamper flips the first character of the signature segment.
func tamper(tok string) string {
	i := strings.LastIndex(tok, ".") + 1
	c := byte('A')
	if tok[i] == 'A' {
		c = 'B'
	}
	return tok[:i] + string(c) + tok[i+1:]
}

func TestIdentityFromContext_Missing(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)
}
