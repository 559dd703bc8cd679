package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const tokenPrefixKey contextKey = "token_prefix"

// SetTokenPrefix stores the rate-limit identity for the request. Exported so
// handler tests can simulate an authenticated request.
func SetTokenPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, tokenPrefixKey, prefix)
}

func getTokenPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(tokenPrefixKey).(string)
	return prefix, ok
}
