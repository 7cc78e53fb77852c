package gqlrequest

import "context"

// ExecMeta identifies one GraphQL execution in logs, metrics and spans.
type ExecMeta struct {
	RequestID string

	OperationName string
	OperationType string
	OperationHash string
}

// MetaFrom derives execution metadata from an analysis.
func MetaFrom(requestID string, analysis *Analysis) ExecMeta {
	meta := ExecMeta{RequestID: requestID}
	if analysis != nil {
		meta.OperationName = analysis.OperationName
		meta.OperationType = analysis.OperationType
		meta.OperationHash = analysis.OperationHash
	}
	return meta
}

type ctxKey int

const (
	analysisKey ctxKey = iota
	execMetaKey
)

func withValue(ctx context.Context, key ctxKey, v any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func value[T any](ctx context.Context, key ctxKey) (T, bool) {
	var zero T
	if ctx == nil {
		return zero, false
	}
	v, ok := ctx.Value(key).(T)
	return v, ok
}

func WithAnalysis(ctx context.Context, analysis *Analysis) context.Context {
	return withValue(ctx, analysisKey, analysis)
}

// AnalysisFromContext returns nil outside the analysis middleware.
func AnalysisFromContext(ctx context.Context) *Analysis {
	analysis, _ := value[*Analysis](ctx, analysisKey)
	return analysis
}

func WithExecMeta(ctx context.Context, meta ExecMeta) context.Context {
	return withValue(ctx, execMetaKey, meta)
}

func ExecMetaFromContext(ctx context.Context) (ExecMeta, bool) {
	return value[ExecMeta](ctx, execMetaKey)
}
