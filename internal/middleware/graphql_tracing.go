package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"versostat-graphql/internal/gqlrequest"
	"versostat-graphql/internal/logging"
	"versostat-graphql/internal/observability"
	"versostat-graphql/internal/resolver"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// GraphQLTracingMiddleware instruments GraphQL execution with an inner span.
// It must run inside GraphQLRequestContextMiddleware to report loader stats.
func GraphQLTracingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			analysis := gqlrequest.AnalysisFromContext(r.Context())
			if analysis == nil || strings.TrimSpace(analysis.Envelope.Query) == "" {
				next.ServeHTTP(w, r)
				return
			}

			tracer := otel.Tracer("versostat-graphql/graphql")
			ctx, span := tracer.Start(r.Context(), "graphql.execute")
			defer span.End()
			if spanCtx := span.SpanContext(); spanCtx.IsValid() {
				reqLogger := logging.FromContext(ctx).WithFields(
					slog.String("trace_id", spanCtx.TraceID().String()),
					slog.String("span_id", spanCtx.SpanID().String()),
				)
				ctx = logging.WithLogger(ctx, reqLogger)
			}
			if meta, ok := gqlrequest.ExecMetaFromContext(ctx); ok && meta.RequestID != "" {
				span.SetAttributes(attribute.String("http.request_id", meta.RequestID))
			}
			if span.IsRecording() {
				span.SetAttributes(observability.GraphQLSpanAttributes(analysis)...)
			}

			next.ServeHTTP(w, r.WithContext(ctx))

			loaders, ok := resolver.LoadersFromContext(ctx)
			if !ok || !span.IsRecording() {
				return
			}
			stats := loaders.Stats()
			span.SetAttributes(observability.LoaderSpanAttributes(stats)...)
			if stats.Loads > 0 {
				span.SetAttributes(attribute.Float64("graphql.batch.cache_hit_ratio", float64(stats.CacheHits)/float64(stats.Loads)))
			}
		})
	}
}
