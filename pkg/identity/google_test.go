package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct {
	email    string
	verified bool
	err      error
}

func (f *fakeVerifier) Verify(ctx context.Context, rawIDToken string) (string, bool, error) {
	return f.email, f.verified, f.err
}

func TestGoogleLoginSuccess(t *testing.T) {
	resolver := NewGoogleResolver(&fakeVerifier{email: "dev@example.com", verified: true})

	id, err := resolver.Login(context.Background(), "raw-token")
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", id.Subject)
	assert.Equal(t, ProviderGoogle, id.Provider)
}

func TestGoogleLoginVerificationFailure(t *testing.T) {
	resolver := NewGoogleResolver(&fakeVerifier{err: errors.New("signature mismatch")})

	_, err := resolver.Login(context.Background(), "raw-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestGoogleLoginUnverifiedEmail(t *testing.T) {
	resolver := NewGoogleResolver(&fakeVerifier{email: "dev@example.com", verified: false})

	_, err := resolver.Login(context.Background(), "raw-token")
	assert.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestGoogleLoginEmptyEmail(t *testing.T) {
	resolver := NewGoogleResolver(&fakeVerifier{email: "", verified: true})

	_, err := resolver.Login(context.Background(), "raw-token")
	assert.ErrorIs(t, err, ErrEmailNotVerified)
}
