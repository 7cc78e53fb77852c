package middleware

import (
	"log/slog"
	"net/http"

	"versostat-graphql/internal/apperrors"
	"versostat-graphql/internal/gqlrequest"
	"versostat-graphql/internal/logging"
	"versostat-graphql/internal/observability"

	"github.com/cockroachdb/errors"
)

// GraphQLRequestAnalysisMiddleware decodes and analyzes the GraphQL request once
// and stores derived metadata in request context for downstream middleware.
// Operations over limits are rejected before execution.
func GraphQLRequestAnalysisMiddleware(limits gqlrequest.Limits) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			analysis := gqlrequest.AnalyzeRequest(r)
			ctx := gqlrequest.WithAnalysis(r.Context(), analysis)

			ctx = gqlrequest.WithExecMeta(ctx, gqlrequest.MetaFrom(logging.GetRequestID(ctx), analysis))

			logger := logging.FromContext(ctx)
			if logFields := observability.GraphQLLogFields(ctx, analysis); len(logFields) > 0 {
				logger = logger.WithFields(logFields...)
				ctx = logging.WithLogger(ctx, logger)
			}

			if analysis.DecodeError != nil {
				logger.Warn("graphql request rejected", slog.String("error", analysis.DecodeError.Error()))
				status := http.StatusBadRequest
				if errors.Is(analysis.DecodeError, gqlrequest.ErrBodyTooLarge) {
					status = http.StatusRequestEntityTooLarge
				}
				writeGraphQLError(w, status, "malformed GraphQL request: "+analysis.DecodeError.Error(), apperrors.CodeValidation)
				return
			}
			if err := analysis.CheckLimits(limits); err != nil {
				logger.Warn("graphql request rejected",
					slog.String("error", err.Error()),
					slog.Int("depth", analysis.SelectionDepth),
					slog.Int("fields", analysis.FieldCount),
				)
				writeGraphQLError(w, http.StatusBadRequest, err.Error(), apperrors.CodeValidation)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
