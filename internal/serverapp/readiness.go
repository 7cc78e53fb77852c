package serverapp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"versostat-graphql/internal/logging"
	"versostat-graphql/internal/planner"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc/pool"
)

type viewProber interface {
	ProbeView(ctx context.Context, view string) error
}

type readinessReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// checkReadiness pings the database and probes every view concurrently.
func checkReadiness(ctx context.Context, db pinger, views viewProber) (readinessReport, error) {
	var mu sync.Mutex
	report := readinessReport{
		Status: "ready",
		Checks: make(map[string]string, len(planner.Views)+1),
	}
	record := func(name string, err error) error {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			report.Checks[name] = "failed"
			return errors.Wrap(err, name)
		}
		report.Checks[name] = "ok"
		return nil
	}

	p := pool.New().WithErrors()
	p.Go(func() error {
		return record("database", db.PingContext(ctx))
	})
	for _, view := range planner.Views {
		p.Go(func() error {
			return record(view, views.ProbeView(ctx, view))
		})
	}

	err := p.Wait()
	if err != nil {
		report.Status = "unavailable"
	}
	return report, err
}

func readyHandler(db pinger, views viewProber, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logging.FromContext(r.Context())

		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		report, err := checkReadiness(ctx, db, views)

		status := http.StatusOK
		if err != nil {
			// Failure details stay in the log.
			reqLogger.Error("readiness check failed", slog.String("error", err.Error()))
			status = http.StatusServiceUnavailable
		} else {
			reqLogger.Debug("readiness check passed")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(report)
	}
}
