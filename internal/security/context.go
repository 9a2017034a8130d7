package security

import (
	"context"
	"strconv"
)

type identityContextKey struct{}

// Identity is the authenticated caller of one request.
type Identity struct {
	Subject string
	// UserID is the subject parsed as a number, or 0 when it is not numeric.
	UserID int64
	Claims Claims
}

// NewIdentity builds an identity from verified claims.
func NewIdentity(claims Claims) *Identity {
	id := &Identity{Claims: claims}
	id.Subject, _ = ClaimString(claims, "sub")
	if uid, err := strconv.ParseInt(id.Subject, 10, 64); err == nil {
		id.UserID = uid
	}
	return id
}

// CurrentUser is the JSON view of the authenticated user.
type CurrentUser struct {
	UserID int64 `json:"userId,omitempty"`
}

// CurrentUser returns the JSON view of the identity.
func (i *Identity) CurrentUser() CurrentUser {
	if i == nil {
		return CurrentUser{}
	}
	return CurrentUser{UserID: i.UserID}
}

// ContextWithIdentity returns a copy of ctx carrying id.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity attached by the authenticator, or
// nil for unauthenticated (e.g. excluded) requests.
func IdentityFromContext(ctx context.Context) *Identity {
	if ctx == nil {
		return nil
	}
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}

// ClaimsFromContext returns the verified claims of the request, if any.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	id := IdentityFromContext(ctx)
	if id == nil {
		return nil, false
	}
	return id.Claims, true
}
