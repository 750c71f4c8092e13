package models

import (
	"context"
)

type identityContextKey struct{}

// Identity is a caller, known only by the wallet address taken from a
// verified credential.
type Identity struct {
	Address    string
	Credential string
}

// WithIdentity attaches a verified identity to a context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext retrieves the verified identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
