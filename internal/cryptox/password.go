// Package cryptox hashes and verifies user passwords.
package cryptox

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

const DefaultCost = 10

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// Hasher is a one-way salted password hash.
type Hasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	// Verify reports whether plaintext matches hash. A mismatch is not an error.
	Verify(ctx context.Context, plaintext, hash string) (bool, error)
}

// BcryptHasher runs bcrypt with a bounded number of concurrent operations so
// a burst of logins cannot starve the rest of the process of CPU.
type BcryptHasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewBcryptHasher returns a hasher with the given cost. Cost outside bcrypt's
// range falls back to DefaultCost; concurrency below 1 means 2*GOMAXPROCS.
func NewBcryptHasher(cost, concurrency int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	if concurrency < 1 {
		concurrency = 2 * runtime.GOMAXPROCS(0)
	}
	return &BcryptHasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(concurrency)),
	}
}

func (h *BcryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

func (h *BcryptHasher) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	// bcrypt compares only the first 72 bytes; nothing longer was ever stored.
	if len(plaintext) > MaxPasswordBytes {
		return false, nil
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	// CompareHashAndPassword runs in constant time with respect to the hash.
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("bcrypt: %w", err)
	}
}

// Cost returns the work factor used for new hashes.
func (h *BcryptHasher) Cost() int {
	return h.cost
}
