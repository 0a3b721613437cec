package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticSource(t *testing.T) {
	tok, err := StaticSource("abc").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = StaticSource("").Token(context.Background())
	assert.ErrorIs(t, err, ErrSignInRequired)
}

func TestContextSource_MissingToken(t *testing.T) {
	src := &ContextSource{}
	_, err := src.Token(context.Background())
	assert.ErrorIs(t, err, ErrSignInRequired)
}

func TestContextSource_PassesThroughToken(t *testing.T) {
	src := &ContextSource{}
	ctx := WithToken(context.Background(), "bearer-xyz")
	tok, err := src.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bearer-xyz", tok)
}

func TestContextSource_VerifierRejectsBadToken(t *testing.T) {
	verifier, err := NewVerifier("test-secret")
	require.NoError(t, err)

	src := &ContextSource{Verifier: verifier}
	ctx := WithToken(context.Background(), "not-a-jwt")
	_, err = src.Token(ctx)
	assert.ErrorIs(t, err, ErrSignInRequired)
}

func TestVerifier_MintAndVerify(t *testing.T) {
	verifier, err := NewVerifier("test-secret")
	require.NoError(t, err)

	signed, err := verifier.Mint("user-1", time.Hour)
	require.NoError(t, err)

	claims, err := verifier.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestVerifier_Expired(t *testing.T) {
	verifier, err := NewVerifier("test-secret")
	require.NoError(t, err)

	signed, err := verifier.Mint("user-1", -time.Minute)
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestVerifier_WrongSecret(t *testing.T) {
	minter, err := NewVerifier("secret-a")
	require.NoError(t, err)
	verifier, err := NewVerifier("secret-b")
	require.NoError(t, err)

	signed, err := minter.Mint("user-1", time.Hour)
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	assert.Error(t, err)
}

func TestNewVerifier_RequiresSecret(t *testing.T) {
	_, err := NewVerifier("")
	assert.Error(t, err)
}
