package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	verifier := NewJWTVerifier("test-secret")
	token, err := verifier.Sign("user1", time.Minute)
	require.NoError(t, err)

	userID, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user1", userID)
}

func TestVerify_Failures(t *testing.T) {
	t.Parallel()

	verifier := NewJWTVerifier("test-secret")

	t.Run("empty_token", func(t *testing.T) {
		t.Parallel()
		_, err := verifier.Verify("")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage_token", func(t *testing.T) {
		t.Parallel()
		_, err := verifier.Verify("not.a.jwt")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong_secret", func(t *testing.T) {
		t.Parallel()
		other := NewJWTVerifier("different-secret")
		token, err := other.Sign("user1", time.Minute)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired_token", func(t *testing.T) {
		t.Parallel()
		token, err := verifier.Sign("user1", -time.Minute)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("missing_subject", func(t *testing.T) {
		t.Parallel()
		now := time.Now().UTC()
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		})
		signed, err := token.SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = verifier.Verify(signed)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}
