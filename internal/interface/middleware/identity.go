package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/readly/internal/domain/entity"
)

// Identity is the authenticated caller, produced by Session from a valid token.
type Identity struct {
	UserID string
	Role   entity.Role
}

type identityKey struct{}

// ginIdentityKey is the gin context key; gin keys are strings.
const ginIdentityKey = "readly.identity"

// WithIdentity stores id on both the gin context and the request context.
func WithIdentity(c *gin.Context, id Identity) {
	c.Set(ginIdentityKey, id)
	c.Request = c.Request.WithContext(ContextWithIdentity(c.Request.Context(), id))
}

func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity set by Session, if any.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ginIdentityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// IdentityFromContext reads the identity from a plain context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
