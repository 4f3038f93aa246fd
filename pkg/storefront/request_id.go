package storefront

import "context"

// RequestIDHeader correlates storefront calls with the inbound request that caused them.
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// WithRequestID stores id so every storefront call made under ctx forwards it.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
