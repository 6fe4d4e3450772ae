// Package auth mints and verifies the signed access/refresh tokens and
// implements the request guard for protected operations.
package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

func init() {
	// jwt.TimePrecision is a package global of golang-jwt, so this applies
	// to every token encoded or decoded in the process, not only ours.
	// Millisecond NumericDates let IssuePair hand out strictly increasing
	// expiries.
	jwt.TimePrecision = time.Millisecond
}

// TokenKind tells access and refresh tokens apart.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims carries the subject (user id) in "sub" plus the email copied at
// mint time.
type Claims struct {
	jwt.RegisteredClaims
	Email string    `json:"email"`
	Kind  TokenKind `json:"typ"`
}

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenIssuer signs HS256 tokens with a shared secret.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	mu         sync.Mutex
	lastIssued time.Time
}

func NewTokenIssuer(secret []byte, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	i.now = now
	return i
}

func (i *TokenIssuer) AccessTTL() time.Duration  { return i.accessTTL }
func (i *TokenIssuer) RefreshTTL() time.Duration { return i.refreshTTL }

// IssuePair mints an access and a refresh token for subject. Issue times
// are strictly increasing per issuer, so a pair always expires after every
// pair minted before it, even within the same millisecond.
func (i *TokenIssuer) IssuePair(subject, email string) (*TokenPair, error) {
	now := i.issueTime()

	access, accessExp, err := i.sign(subject, email, KindAccess, now, i.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := i.sign(subject, email, KindRefresh, now, i.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (i *TokenIssuer) issueTime() time.Time {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now().Truncate(jwt.TimePrecision)
	if !now.After(i.lastIssued) {
		now = i.lastIssued.Add(jwt.TimePrecision)
	}
	i.lastIssued = now
	return now
}

func (i *TokenIssuer) sign(subject, email string, kind TokenKind, now time.Time, ttl time.Duration) (string, time.Time, error) {
	exp := now.Add(ttl).Truncate(jwt.TimePrecision)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: email,
		Kind:  kind,
	})

	s, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return s, exp, nil
}

// Verify checks signature, algorithm and expiry. Every failure, whatever
// the cause, wraps common.ErrInvalidToken.
func (i *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// VerifyKind is Verify restricted to one kind of token.
func (i *TokenIssuer) VerifyKind(tokenString string, kind TokenKind) (*Claims, error) {
	claims, err := i.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: %s token used as %s", common.ErrInvalidToken, claims.Kind, kind)
	}
	return claims, nil
}
