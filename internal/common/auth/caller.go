package auth

import "context"

// Caller is the authenticated identity a request acts as.
type Caller struct {
	ID    string
	Admin bool
}

// CanActFor reports whether the caller may read or write data owned by id.
func (c Caller) CanActFor(id string) bool {
	return c.Admin || c.ID == id
}

type callerKey struct{}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}
