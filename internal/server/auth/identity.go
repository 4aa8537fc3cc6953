package auth

import "context"

// Identity is who a request is acting as. It is derived from a verified token
// and lives only as long as the request context carrying it.
type Identity struct {
	Username string
	UserID   int64
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// WithoutIdentity returns a copy of ctx in which no identity is visible.
func WithoutIdentity(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, nil)
}
