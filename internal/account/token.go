package account

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
)

const (
	resetPurpose    = "password-reset"
	DefaultResetTTL = time.Hour
)

type resetClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// ResetTokens issues and checks signed password-reset tokens. A token is
// accepted once; consumed ids are kept in the ledger until the token would
// have expired anyway.
type ResetTokens struct {
	secret []byte
	ttl    time.Duration
	ledger TokenLedger
	now    func() time.Time
}

type ResetTokenOption func(*ResetTokens)

func WithResetClock(now func() time.Time) ResetTokenOption {
	return func(rt *ResetTokens) { rt.now = now }
}

func NewResetTokens(secret string, ttl time.Duration, ledger TokenLedger, opts ...ResetTokenOption) *ResetTokens {
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}
	rt := &ResetTokens{
		secret: []byte(secret),
		ttl:    ttl,
		ledger: ledger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *ResetTokens) Issue(email string) (string, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("failed to generate token id: %w", err)
	}

	now := rt.now()
	claims := resetClaims{
		Email:   NormalizeEmail(email),
		Purpose: resetPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(rt.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(rt.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign reset token: %w", err)
	}
	return signed, nil
}

// Verify returns the email carried by token. Any malformed, forged, expired,
// foreign-purpose or already consumed token yields ErrInvalidResetToken.
func (rt *ResetTokens) Verify(ctx context.Context, token string) (string, error) {
	claims, err := rt.parse(token)
	if err != nil {
		return "", err
	}

	used, err := rt.ledger.Used(ctx, claims.ID)
	if err != nil {
		return "", fmt.Errorf("failed to check reset token ledger: %w", err)
	}
	if used {
		return "", ErrInvalidResetToken
	}
	return claims.Email, nil
}

// Consume verifies token and marks it used. Only the first caller wins.
func (rt *ResetTokens) Consume(ctx context.Context, token string) (string, error) {
	claims, err := rt.parse(token)
	if err != nil {
		return "", err
	}

	remaining := claims.ExpiresAt.Time.Sub(rt.now())
	first, err := rt.ledger.Consume(ctx, claims.ID, remaining)
	if err != nil {
		return "", fmt.Errorf("failed to record reset token: %w", err)
	}
	if !first {
		return "", ErrInvalidResetToken
	}
	return claims.Email, nil
}

func (rt *ResetTokens) parse(token string) (*resetClaims, error) {
	if token == "" {
		return nil, ErrInvalidResetToken
	}

	claims := &resetClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return rt.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(rt.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidResetToken
	}
	if claims.Purpose != resetPurpose || claims.Email == "" || claims.ID == "" {
		return nil, ErrInvalidResetToken
	}
	return claims, nil
}
