package resolver

import (
	"context"
	"log/slog"
	"time"

	"versostat-graphql/internal/apperrors"
	"versostat-graphql/internal/dataloader"
	"versostat-graphql/internal/logging"
	"versostat-graphql/internal/model"
	"versostat-graphql/internal/observability"
)

// PlayerGameweeksLoader is the loader name used in metrics and logs.
const PlayerGameweeksLoader = "player_gameweeks"

// Loaders holds the batching loaders of one GraphQL request.
type Loaders struct {
	PlayerGameweeks *dataloader.Loader[string, []model.PlayerGameweek]
}

type loadersKey struct{}

// NewRequestContext returns ctx carrying a fresh set of loaders bound to
// store. It is called once per GraphQL request and performs no I/O.
func NewRequestContext(ctx context.Context, store Store, metrics *observability.GraphQLMetrics) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	obs := loaderObserver{metrics: metrics}
	loaders := &Loaders{
		PlayerGameweeks: dataloader.New(
			playerGameweeksBatch(store, metrics),
			dataloader.WithName(PlayerGameweeksLoader),
			dataloader.WithObserver(obs),
		),
	}
	return context.WithValue(ctx, loadersKey{}, loaders)
}

// LoadersFromContext returns the loaders installed by NewRequestContext.
func LoadersFromContext(ctx context.Context) (*Loaders, bool) {
	if ctx == nil {
		return nil, false
	}
	loaders, ok := ctx.Value(loadersKey{}).(*Loaders)
	return loaders, ok && loaders != nil
}

// Stats sums activity across the request's loaders.
func (l *Loaders) Stats() dataloader.Stats {
	return l.PlayerGameweeks.Stats()
}

func playerGameweeksBatch(store Store, metrics *observability.GraphQLMetrics) dataloader.BatchFunc[string, []model.PlayerGameweek] {
	return func(ctx context.Context, playerIDs []string) ([][]model.PlayerGameweek, error) {
		records, err := store.PlayerGameweeksByPlayerIDs(ctx, playerIDs)
		if err != nil {
			return nil, err
		}
		if metrics != nil {
			metrics.RecordBatchResultRows(ctx, int64(len(records)), PlayerGameweeksLoader)
		}
		return dataloader.AlignByKey(playerIDs, records, func(r model.PlayerGameweek) string {
			return r.FPLPlayerID
		}), nil
	}
}

type loaderObserver struct {
	metrics *observability.GraphQLMetrics
}

// ObserveBatch logs a failed batch once, however many fields were waiting
// on it.
func (o loaderObserver) ObserveBatch(ctx context.Context, loader string, keys int, duration time.Duration, err error) {
	if o.metrics != nil {
		o.metrics.RecordBatch(ctx, loader, keys, duration, err)
	}
	logger := logging.FromContext(ctx)
	if err != nil {
		logger.Error("loader batch failed",
			slog.String("loader", loader),
			slog.Int("keys", keys),
			slog.Duration("duration", duration),
			slog.String("code", apperrors.Code(err)),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Debug("loader batch dispatched",
		slog.String("loader", loader),
		slog.Int("keys", keys),
		slog.Duration("duration", duration),
	)
}

func (o loaderObserver) ObserveCacheHit(ctx context.Context, loader string) {
	if o.metrics != nil {
		o.metrics.RecordBatchCacheHit(ctx, loader)
	}
}
