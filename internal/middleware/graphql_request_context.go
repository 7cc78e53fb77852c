package middleware

import (
	"net/http"

	"versostat-graphql/internal/observability"
	"versostat-graphql/internal/resolver"
)

// GraphQLRequestContextMiddleware gives every request its own batching
// loaders bound to store. Loaders never outlive the request, so cached
// results are not shared between requests.
func GraphQLRequestContextMiddleware(store resolver.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = resolver.NewRequestContext(ctx, store, observability.GraphQLMetricsFromContext(ctx))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
