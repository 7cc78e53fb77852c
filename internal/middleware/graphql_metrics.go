package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"versostat-graphql/internal/gqlrequest"
	"versostat-graphql/internal/observability"
)

// GraphQLMetricsMiddleware records per-operation metrics and exposes the
// instruments to the loaders through the request context. It expects the
// analysis middleware to run first.
func GraphQLMetricsMiddleware(metrics *observability.GraphQLMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := observability.ContextWithGraphQLMetrics(r.Context(), metrics)
			r = r.WithContext(ctx)

			// GraphiQL page loads carry no operation.
			analysis := gqlrequest.AnalysisFromContext(ctx)
			if analysis == nil || strings.TrimSpace(analysis.Envelope.Query) == "" {
				next.ServeHTTP(w, r)
				return
			}

			metrics.IncrementActiveRequests(ctx)
			defer metrics.DecrementActiveRequests(ctx)

			opType := "unknown"
			if analysis.Operation != nil {
				opType = analysis.OperationType
				metrics.RecordQueryDepth(ctx, int64(analysis.SelectionDepth), opType)
				metrics.RecordSelection(ctx, analysis.RootFields, analysis.BatchedFields)
			}

			start := time.Now()
			rec := &capturingWriter{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			metrics.RecordRequest(ctx, time.Since(start), rec.failed(), opType)
		})
	}
}

// capturingWriter keeps the status and a copy of the body so the outcome can
// be classified after the executor has written it.
type capturingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *capturingWriter) WriteHeader(status int) {
	if w.status != 0 {
		return
	}
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.WriteHeader(http.StatusOK)
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// failed reports an HTTP error status or a non-empty GraphQL errors array.
func (w *capturingWriter) failed() bool {
	if w.status >= http.StatusBadRequest {
		return true
	}
	var payload struct {
		Errors []json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(w.body.Bytes(), &payload); err != nil {
		return false
	}
	return len(payload.Errors) > 0
}
