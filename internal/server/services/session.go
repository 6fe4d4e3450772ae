// Package services contains server-side business logic. SessionService
// handles registration, login, token refresh and logout.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/cryptox"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/telemetry"
)

// Operation names used in logs, spans and metrics.
const (
	OpRegister = "register"
	OpLogin    = "login"
	OpRefresh  = "refresh"
	OpLogout   = "logout"
)

const (
	MsgRegistered = "User registered successfully"
	MsgLoggedIn   = "Login successful"
	MsgRefreshed  = "Tokens refreshed successfully"
	MsgLoggedOut  = "Logged out successfully"
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// UserView is the public part of a user record.
type UserView struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

type RegisterResult struct {
	Message string
	User    UserView
	Tokens  *auth.TokenPair
}

type LoginResult struct {
	Message string
	User    UserView
	Tokens  *auth.TokenPair
}

// SessionService is stateless: tokens are never stored, so logout only
// tells the transport to drop its cookies.
type SessionService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	hasher      cryptox.Hasher
	tokens      *auth.TokenIssuer
	log         logging.Logger
	metrics     *telemetry.AuthMetrics
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewSessionService(db dbx.DBTX, m repomanager.RepositoryManager, hasher cryptox.Hasher,
	tokens *auth.TokenIssuer, log logging.Logger, metrics *telemetry.AuthMetrics) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
		log:         log.With("module", "session"),
		metrics:     metrics,
		now:         time.Now,
	}
}

// WithClock replaces the time source used for creation timestamps.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

// NormalizeEmail trims and lower-cases an address; emails are compared in
// this form everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates the user and signs them in. Email uniqueness is left to
// the store's unique constraint, so concurrent registrations of one address
// yield exactly one success.
func (s *SessionService) Register(ctx context.Context, in RegisterInput) (res *RegisterResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "session.Register")
	defer func() { s.finish(ctx, OpRegister, err); telemetry.EndSpan(span, err) }()

	email := NormalizeEmail(in.Email)
	s.log.Info(ctx, "registration attempt", "email", email)

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC().Truncate(time.Microsecond),
	}

	repo := s.repomanager.Users(s.db)
	if _, err := repo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			s.log.Warn(ctx, "registration failed: email already registered", "email", email)
			return nil, fmt.Errorf("%w: %s", common.ErrDuplicateUser, email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)

	return &RegisterResult{
		Message: MsgRegistered,
		User:    viewOf(user),
		Tokens:  pair,
	}, nil
}

// Login checks the password. An unknown email and a wrong password are
// indistinguishable to the caller, in result and in timing.
func (s *SessionService) Login(ctx context.Context, email, password string) (res *LoginResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "session.Login")
	defer func() { s.finish(ctx, OpLogin, err); telemetry.EndSpan(span, err) }()

	email = NormalizeEmail(email)
	s.log.Info(ctx, "login attempt", "email", email)

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// burn the same bcrypt work as a real comparison
			_, _ = s.hasher.Verify(ctx, password, s.dummy())
			s.log.Warn(ctx, "login failed: unknown email", "email", email)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := s.hasher.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.log.Warn(ctx, "login failed: wrong password", "user_id", user.ID)
		return nil, common.ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "login successful", "user_id", user.ID)

	return &LoginResult{
		Message: MsgLoggedIn,
		User:    viewOf(user),
		Tokens:  pair,
	}, nil
}

// Refresh exchanges a refresh token for a new pair. The subject must still
// exist in the store; the new pair is minted from the stored record.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (pair *auth.TokenPair, err error) {
	ctx, span := telemetry.StartSpan(ctx, "session.Refresh")
	defer func() { s.finish(ctx, OpRefresh, err); telemetry.EndSpan(span, err) }()

	if refreshToken == "" {
		return nil, common.ErrInvalidRefreshToken
	}

	claims, err := s.tokens.VerifyKind(refreshToken, auth.KindRefresh)
	if err != nil {
		s.log.Warn(ctx, "refresh failed: token rejected", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidRefreshToken, err)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "refresh failed: subject no longer exists", "sub", claims.Subject)
			return nil, fmt.Errorf("%w: subject %s not found", common.ErrInvalidRefreshToken, claims.Subject)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	pair, err = s.tokens.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "tokens refreshed", "user_id", user.ID)
	return pair, nil
}

// Logout has no server-side state to drop; issued tokens stay valid until
// they expire.
func (s *SessionService) Logout(ctx context.Context) string {
	s.log.Info(ctx, "logout")
	s.finish(ctx, OpLogout, nil)
	return MsgLoggedOut
}

func (s *SessionService) finish(ctx context.Context, op string, err error) {
	outcome := telemetry.OutcomeSuccess
	if err != nil {
		outcome = telemetry.OutcomeFailure
	}
	s.metrics.RecordOutcome(ctx, op, outcome)
}

// dummy returns a hash of a random secret, computed on first use, so that
// logins for unknown emails still pay for a bcrypt comparison.
func (s *SessionService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(context.Background(), uuid.NewString())
		if err != nil {
			s.log.Error(context.Background(), "dummy hash", "error", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func viewOf(u *models.User) UserView {
	return UserView{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}
