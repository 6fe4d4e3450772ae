package cryptox

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost, 1)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "Secret12")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret12", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	ok, err := h.Verify(ctx, "Secret12", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(ctx, "Secret13", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_Salted(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost, 1)
	ctx := context.Background()

	a, err := h.Hash(ctx, "Secret12")
	require.NoError(t, err)
	b, err := h.Hash(ctx, "Secret12")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestBcryptHasher_MalformedHash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost, 1)

	ok, err := h.Verify(context.Background(), "Secret12", "not-a-hash")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_Defaults(t *testing.T) {
	assert.Equal(t, DefaultCost, NewBcryptHasher(0, 0).Cost())
	assert.Equal(t, DefaultCost, NewBcryptHasher(bcrypt.MaxCost+1, 0).Cost())
	assert.Equal(t, 12, NewBcryptHasher(12, 0).Cost())
}

func TestBcryptHasher_CancelledWhileWaiting(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost, 1)

	// hold the only slot
	require.NoError(t, h.sem.Acquire(context.Background(), 1))
	defer h.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Hash(ctx, "Secret12")
	require.ErrorIs(t, err, context.Canceled)

	_, err = h.Verify(ctx, "Secret12", "$2a$04$abc")
	require.ErrorIs(t, err, context.Canceled)
}

func TestBcryptHasher_Concurrent(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost, 2)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hash, err := h.Hash(ctx, "Secret12")
			assert.NoError(t, err)
			ok, err := h.Verify(ctx, "Secret12", hash)
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()
}

func TestBcryptHasher_PasswordTooLong(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost, 1)
	ctx := context.Background()
	long := strings.Repeat("A1", 37)

	_, err := h.Hash(ctx, long)
	require.ErrorIs(t, err, common.ErrValidation)
	require.ErrorIs(t, err, bcrypt.ErrPasswordTooLong)

	hash, err := h.Hash(ctx, "Secret12")
	require.NoError(t, err)
	ok, err := h.Verify(ctx, long, hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_VerifyRejectsSuffixPastLimit(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost, 1)
	ctx := context.Background()
	pw := strings.Repeat("Ab1", 24)
	require.Len(t, pw, MaxPasswordBytes)

	hash, err := h.Hash(ctx, pw)
	require.NoError(t, err)

	ok, err := h.Verify(ctx, pw, hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(ctx, pw+"x", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}
