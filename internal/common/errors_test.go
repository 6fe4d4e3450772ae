package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinels_AreDistinct(t *testing.T) {
	all := []error{
		ErrorNotFound, ErrorAlreadyExists, ErrorInternal, ErrInvalidToken,
		ErrDuplicateUser, ErrInvalidCredentials, ErrUnauthenticated,
		ErrInvalidRefreshToken, ErrValidation,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j && errors.Is(a, b) {
				t.Fatalf("%v must not match %v", a, b)
			}
		}
	}
}

func TestSentinels_SurviveWrapping(t *testing.T) {
	err := fmt.Errorf("login: %w", fmt.Errorf("lookup: %w", ErrInvalidCredentials))
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected wrapped ErrInvalidCredentials, got %v", err)
	}
}
