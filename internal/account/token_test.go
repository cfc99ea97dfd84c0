package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/account"
)

func TestResetTokens_RoundTrip(t *testing.T) {
	rt := account.NewResetTokens("secret", time.Hour, account.NewMemoryLedger())

	token, err := rt.Issue("Juan@Example.com")
	require.NoError(t, err)

	email, err := rt.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "juan@example.com", email)
}

func TestResetTokens_Rejects(t *testing.T) {
	issuedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := issuedAt
	rt := account.NewResetTokens("secret", time.Hour, account.NewMemoryLedger(),
		account.WithResetClock(func() time.Time { return clock }))

	valid, err := rt.Issue("juan@example.com")
	require.NoError(t, err)

	forged, err := account.NewResetTokens("other-secret", time.Hour, account.NewMemoryLedger()).Issue("juan@example.com")
	require.NoError(t, err)

	wrongPurpose, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email":   "juan@example.com",
		"purpose": "email-confirmation",
		"jti":     "abc",
		"exp":     issuedAt.Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email":   "juan@example.com",
		"purpose": "password-reset",
		"jti":     "abc",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		at    time.Time
	}{
		{name: "empty", token: "", at: issuedAt},
		{name: "garbage", token: "not.a.token", at: issuedAt},
		{name: "forged signature", token: forged, at: issuedAt},
		{name: "wrong purpose", token: wrongPurpose, at: issuedAt},
		{name: "missing expiry", token: noExpiry, at: issuedAt},
		{name: "expired", token: valid, at: issuedAt.Add(61 * time.Minute)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clock = tc.at
			_, err := rt.Verify(context.Background(), tc.token)
			require.ErrorIs(t, err, account.ErrInvalidResetToken)
		})
	}
}

func TestResetTokens_ConsumeOnce(t *testing.T) {
	rt := account.NewResetTokens("secret", time.Hour, account.NewMemoryLedger())
	token, err := rt.Issue("juan@example.com")
	require.NoError(t, err)

	_, err = rt.Consume(context.Background(), token)
	require.NoError(t, err)

	_, err = rt.Consume(context.Background(), token)
	require.ErrorIs(t, err, account.ErrInvalidResetToken)
}
