package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	commitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planr_commits_total",
		Help: "Total number of committed changes to the event collection.",
	}, []string{"op"})

	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planr_rejections_total",
		Help: "Total number of changes rejected by validation.",
	}, []string{"reason"})

	historyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planr_history_steps_total",
		Help: "Total number of undo and redo steps applied.",
	}, []string{"direction"})

	storageErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planr_storage_errors_total",
		Help: "Total number of failed persistence operations.",
	}, []string{"op"})

	eventsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "planr_events",
		Help: "Number of events in the present snapshot.",
	})
)

func Commit(op string)        { commitsTotal.WithLabelValues(op).Inc() }
func Rejection(reason string) { rejectionsTotal.WithLabelValues(reason).Inc() }
func HistoryStep(dir string)  { historyTotal.WithLabelValues(dir).Inc() }
func StorageError(op string)  { storageErrorsTotal.WithLabelValues(op).Inc() }
func SetEventCount(n int)     { eventsGauge.Set(float64(n)) }

// Router exposes /metrics and /healthz.
func Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Serve runs the metrics endpoint on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
