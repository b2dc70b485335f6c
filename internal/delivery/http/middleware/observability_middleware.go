package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/minervamed/clinic-scheduler/pkg/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// requestInfo is filled in by handlers further down the chain.
type requestInfo struct {
	userID uuid.UUID
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type ObservabilityMiddleware struct {
	log     *logrus.Logger
	metrics *metrics.Collector
}

func NewObservabilityMiddleware(log *logrus.Logger, m *metrics.Collector) *ObservabilityMiddleware {
	return &ObservabilityMiddleware{log: log, metrics: m}
}

// Handle records one log line and the HTTP metrics per request. Metrics are
// labelled with the route template to keep label cardinality bounded.
func (m *ObservabilityMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		m.metrics.InFlightGauge.Inc()
		defer m.metrics.InFlightGauge.Dec()

		info := &requestInfo{}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestKey, info)))

		route := routeTemplate(r)
		status := strconv.Itoa(rec.status)
		elapsed := time.Since(start)

		m.metrics.RequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		m.metrics.RequestDuration.WithLabelValues(r.Method, route, status).Observe(elapsed.Seconds())

		entry := m.log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": elapsed.Milliseconds(),
		})
		if info.userID != uuid.Nil {
			entry = entry.WithField("user_id", info.userID.String())
		}
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("Request failed")
			return
		}
		entry.Info("Request handled")
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
