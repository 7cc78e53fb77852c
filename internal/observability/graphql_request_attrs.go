package observability

import (
	"context"
	"log/slog"

	"versostat-graphql/internal/dataloader"
	"versostat-graphql/internal/gqlrequest"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// GraphQLSpanAttributes builds canonical span attributes from request analysis.
func GraphQLSpanAttributes(analysis *gqlrequest.Analysis) []attribute.KeyValue {
	if analysis == nil {
		return nil
	}
	attrs := make([]attribute.KeyValue, 0, 10)

	if analysis.RequestedOperationName != "" {
		attrs = append(attrs, attribute.String("graphql.operation.requested_name", analysis.RequestedOperationName))
	}
	if analysis.OperationName != "" {
		attrs = append(attrs, attribute.String("graphql.operation.name", analysis.OperationName))
	}
	if analysis.OperationType != "" {
		attrs = append(attrs, attribute.String("graphql.operation.type", analysis.OperationType))
	}
	if analysis.OperationHash != "" {
		attrs = append(attrs, attribute.String("graphql.operation.hash", analysis.OperationHash))
	}
	if analysis.Envelope.DocumentSizeBytes > 0 {
		attrs = append(attrs, attribute.Int("graphql.document.size_bytes", analysis.Envelope.DocumentSizeBytes))
	}
	if analysis.Operation != nil {
		attrs = append(attrs,
			attribute.Int("graphql.query.field_count", analysis.FieldCount),
			attribute.Int("graphql.query.depth", analysis.SelectionDepth),
			attribute.Int("graphql.query.variable_count", analysis.VariableCount),
			attribute.StringSlice("graphql.query.root_fields", analysis.RootFields),
			attribute.Int("graphql.query.batched_fields", analysis.BatchedFields),
		)
	}
	return attrs
}

// LoaderSpanAttributes describes the batching activity of one request.
func LoaderSpanAttributes(stats dataloader.Stats) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("graphql.batch.loads", stats.Loads),
		attribute.Int64("graphql.batch.cache_hits", stats.CacheHits),
		attribute.Int64("graphql.batch.cache_misses", stats.Keys),
		attribute.Int64("graphql.batch.queries", stats.Batches),
		attribute.Int64("graphql.batch.queries_saved", stats.Loads-stats.Batches),
	}
}

// GraphQLLogFields builds canonical structured log fields from request analysis.
func GraphQLLogFields(ctx context.Context, analysis *gqlrequest.Analysis) []any {
	fields := make([]any, 0, 6)

	if analysis != nil {
		if analysis.RequestedOperationName != "" {
			fields = append(fields, slog.String("operation_requested_name", analysis.RequestedOperationName))
		}
		if analysis.OperationName != "" {
			fields = append(fields, slog.String("operation_name", analysis.OperationName))
		}
		if analysis.OperationType != "" {
			fields = append(fields, slog.String("operation_type", analysis.OperationType))
		}
		if analysis.OperationHash != "" {
			fields = append(fields, slog.String("operation_hash", analysis.OperationHash))
		}
		if len(analysis.RootFields) > 0 {
			fields = append(fields, slog.Any("root_fields", analysis.RootFields))
		}
	}

	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		fields = append(fields, slog.String("trace_id", spanCtx.TraceID().String()))
	}

	return fields
}
