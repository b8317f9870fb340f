package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// PrincipalFromContext returns the signed-in user for the request.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	return SessionFromContext(ctx).Principal()
}

type bagCountContextKey struct{}

// ContextWithBagCount stores the number of bag lines shown in the nav.
func ContextWithBagCount(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, bagCountContextKey{}, n)
}

// BagCountFromContext returns the bag line count, or zero.
func BagCountFromContext(ctx context.Context) int {
	n, _ := ctx.Value(bagCountContextKey{}).(int)
	return n
}
