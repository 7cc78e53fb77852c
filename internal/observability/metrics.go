package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope for service metrics.
const MeterName = "versostat-graphql"

// GraphQLMetrics holds the request and batch-loader instruments.
type GraphQLMetrics struct {
	requestDuration metric.Float64Histogram
	requests        metric.Int64Counter
	requestErrors   metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
	queryDepth      metric.Int64Histogram
	rootFields      metric.Int64Counter
	batchedFields   metric.Int64Histogram

	batchKeys         metric.Int64Histogram
	batchResultRows   metric.Int64Histogram
	batchDuration     metric.Float64Histogram
	batchErrors       metric.Int64Counter
	batchCacheHits    metric.Int64Counter
	batchCacheMisses  metric.Int64Counter
	batchQueriesSaved metric.Int64Counter
}

// instruments creates instruments on one meter and keeps the first error.
type instruments struct {
	meter metric.Meter
	err   error
}

func (in *instruments) fail(name string, err error) {
	if in.err == nil && err != nil {
		in.err = errors.Wrapf(err, "create instrument %s", name)
	}
}

func (in *instruments) counter(name, desc string) metric.Int64Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(desc))
	in.fail(name, err)
	return c
}

func (in *instruments) upDown(name, desc string) metric.Int64UpDownCounter {
	c, err := in.meter.Int64UpDownCounter(name, metric.WithDescription(desc))
	in.fail(name, err)
	return c
}

func (in *instruments) histogram(name, desc string) metric.Int64Histogram {
	h, err := in.meter.Int64Histogram(name, metric.WithDescription(desc))
	in.fail(name, err)
	return h
}

func (in *instruments) millis(name, desc string) metric.Float64Histogram {
	h, err := in.meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("ms"))
	in.fail(name, err)
	return h
}

// InitGraphQLMetrics creates the instruments on the global meter provider.
func InitGraphQLMetrics() (*GraphQLMetrics, error) {
	return newGraphQLMetrics(otel.Meter(MeterName))
}

func newGraphQLMetrics(meter metric.Meter) (*GraphQLMetrics, error) {
	in := &instruments{meter: meter}
	m := &GraphQLMetrics{
		requestDuration: in.millis("graphql.request.duration", "Duration of GraphQL requests in milliseconds"),
		requests:        in.counter("graphql.requests.total", "Total number of GraphQL requests"),
		requestErrors:   in.counter("graphql.errors.total", "Total number of GraphQL requests with errors"),
		activeRequests:  in.upDown("graphql.requests.active", "Number of active GraphQL requests"),
		queryDepth:      in.histogram("graphql.query.depth", "Depth of GraphQL queries"),
		rootFields:      in.counter("graphql.root_field.requests", "Number of times each top-level field was selected"),
		batchedFields:   in.histogram("graphql.query.batched_fields", "player_gameweek_data selections per operation"),

		batchKeys:         in.histogram("graphql.batch.keys", "Number of distinct keys fetched by one loader batch"),
		batchResultRows:   in.histogram("graphql.batch.result_rows", "Number of rows returned by a batch query"),
		batchDuration:     in.millis("graphql.batch.duration", "Duration of loader batch fetches in milliseconds"),
		batchErrors:       in.counter("graphql.batch.errors", "Number of failed loader batches"),
		batchCacheHits:    in.counter("graphql.batch.cache_hits", "Number of loads served from the request cache"),
		batchCacheMisses:  in.counter("graphql.batch.cache_misses", "Number of keys fetched from the store"),
		batchQueriesSaved: in.counter("graphql.batch.queries_saved", "Number of queries saved by batching"),
	}
	if in.err != nil {
		return nil, in.err
	}
	return m, nil
}

// RecordRequest records one finished GraphQL request.
func (m *GraphQLMetrics) RecordRequest(ctx context.Context, duration time.Duration, hasErrors bool, operationType string) {
	op := attribute.String("operation_type", operationType)
	attrs := metric.WithAttributes(op, attribute.Bool("has_errors", hasErrors))

	m.requestDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	m.requests.Add(ctx, 1, attrs)
	if hasErrors {
		m.requestErrors.Add(ctx, 1, metric.WithAttributes(op))
	}
}

func (m *GraphQLMetrics) RecordQueryDepth(ctx context.Context, depth int64, operationType string) {
	m.queryDepth.Record(ctx, depth, metric.WithAttributes(attribute.String("operation_type", operationType)))
}

// RecordSelection records which top-level fields an operation selected and
// how many batched selections it contains.
func (m *GraphQLMetrics) RecordSelection(ctx context.Context, rootFields []string, batched int) {
	for _, f := range rootFields {
		m.rootFields.Add(ctx, 1, metric.WithAttributes(attribute.String("field", f)))
	}
	m.batchedFields.Record(ctx, int64(batched))
}

// RecordBatch records one loader dispatch. A batch of n keys replaces n
// individual queries, so n-1 queries are counted as saved.
func (m *GraphQLMetrics) RecordBatch(ctx context.Context, loader string, keys int, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("loader", loader))
	m.batchKeys.Record(ctx, int64(keys), attrs)
	m.batchDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	m.batchCacheMisses.Add(ctx, int64(keys), attrs)
	switch {
	case err != nil:
		m.batchErrors.Add(ctx, 1, attrs)
	case keys > 1:
		m.batchQueriesSaved.Add(ctx, int64(keys-1), attrs)
	}
}

func (m *GraphQLMetrics) RecordBatchResultRows(ctx context.Context, count int64, loader string) {
	m.batchResultRows.Record(ctx, count, metric.WithAttributes(attribute.String("loader", loader)))
}

// RecordBatchCacheHit counts a load served from the request cache. Each hit
// is also a saved query.
func (m *GraphQLMetrics) RecordBatchCacheHit(ctx context.Context, loader string) {
	attrs := metric.WithAttributes(attribute.String("loader", loader))
	m.batchCacheHits.Add(ctx, 1, attrs)
	m.batchQueriesSaved.Add(ctx, 1, attrs)
}

func (m *GraphQLMetrics) IncrementActiveRequests(ctx context.Context) { m.activeRequests.Add(ctx, 1) }
func (m *GraphQLMetrics) DecrementActiveRequests(ctx context.Context) { m.activeRequests.Add(ctx, -1) }

// InitMetrics creates the GraphQL instruments and logs that they are ready.
func InitMetrics(logger *slog.Logger) (*GraphQLMetrics, error) {
	metrics, err := InitGraphQLMetrics()
	if err != nil {
		return nil, errors.Wrap(err, "initialize GraphQL metrics")
	}
	logger.Info("custom GraphQL metrics initialized")
	return metrics, nil
}

type graphQLMetricsKey struct{}

func ContextWithGraphQLMetrics(ctx context.Context, metrics *GraphQLMetrics) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, graphQLMetricsKey{}, metrics)
}

// GraphQLMetricsFromContext returns nil when metrics are disabled.
func GraphQLMetricsFromContext(ctx context.Context) *GraphQLMetrics {
	if ctx == nil {
		return nil
	}
	metrics, _ := ctx.Value(graphQLMetricsKey{}).(*GraphQLMetrics)
	return metrics
}
