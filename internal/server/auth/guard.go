package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/requestctx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// UserFinder is the part of the credential store the guard needs.
type UserFinder interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Identity is the authenticated principal of a request.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

type identityKey struct{}

// IdentityFromContext returns the identity stored by Guard.Authenticate.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok
}

// Guard authenticates access tokens against the credential store.
type Guard struct {
	tokens *TokenIssuer
	users  UserFinder
	log    logging.Logger
}

func NewGuard(tokens *TokenIssuer, users UserFinder, log logging.Logger) *Guard {
	return &Guard{tokens: tokens, users: users, log: log.With("module", "guard")}
}

// Authenticate resolves the user behind an access token. A missing,
// invalid, expired or refresh token and an unknown subject all fail with
// common.ErrUnauthenticated. On success the returned context carries the
// identity and the user id in the request context.
func (g *Guard) Authenticate(ctx context.Context, token string) (context.Context, *Identity, error) {
	if token == "" {
		g.log.Debug(ctx, "no access token")
		return ctx, nil, common.ErrUnauthenticated
	}

	claims, err := g.tokens.VerifyKind(token, KindAccess)
	if err != nil {
		g.log.Warn(ctx, "access token rejected", "error", err)
		return ctx, nil, fmt.Errorf("%w: %w", common.ErrUnauthenticated, err)
	}

	user, err := g.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			g.log.Warn(ctx, "token subject not found", "sub", claims.Subject)
			return ctx, nil, fmt.Errorf("%w: subject %s not found", common.ErrUnauthenticated, claims.Subject)
		}
		return ctx, nil, fmt.Errorf("guard lookup: %w", err)
	}

	id := &Identity{UserID: user.ID, Email: user.Email, Name: user.Name}

	ctx = requestctx.Merge(ctx, requestctx.Context{UserID: user.ID})
	ctx = context.WithValue(ctx, identityKey{}, id)

	return ctx, id, nil
}
