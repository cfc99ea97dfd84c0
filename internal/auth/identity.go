// Package auth carries the signed-in identity from the session cookie into the
// request context and gates routes by role.
package auth

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/storefront/internal/account"
)

type Identity struct {
	UserID uuid.UUID
	Role   account.Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == account.RoleAdmin
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by SessionManager.Load, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || id.UserID == uuid.Nil {
		return Identity{}, false
	}
	return id, true
}
