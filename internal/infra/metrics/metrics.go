package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	SummaryBuildSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "summary_build_seconds",
		Help:    "Время построения сводки по задачам",
		Buckets: prometheus.DefBuckets,
	})

	AttendanceEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_events_total",
		Help: "Количество событий посещаемости по типам",
	}, []string{"kind"})

	PostSubmissionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "post_submissions_total",
		Help: "Количество отправленных ссылок на посты",
	})

	CommentTogglesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comment_toggles_total",
		Help: "Количество переключений отметок комментариев по результату",
	}, []string{"result"})

	AuthFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_failures_total",
		Help: "Количество отклонённых сессионных токенов",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 60},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		SummaryBuildSeconds,
		AttendanceEventsTotal,
		PostSubmissionsTotal,
		CommentTogglesTotal,
		AuthFailuresTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// IncAttendanceEvent увеличивает счётчик событий посещаемости.
func IncAttendanceEvent(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	AttendanceEventsTotal.WithLabelValues(kind).Inc()
}

// IncCommentToggle увеличивает счётчик переключений отметок.
func IncCommentToggle(result string) {
	if result == "" {
		result = "unknown"
	}
	CommentTogglesTotal.WithLabelValues(result).Inc()
}
