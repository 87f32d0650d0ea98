package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ShoshinNikita/camoview/pkg/metrics"
	"github.com/ShoshinNikita/camoview/pkg/rlog"
	"github.com/prometheus/client_golang/prometheus"
)

func loggingMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		rw := newResponseWriter(w)

		h.ServeHTTP(rw, r)

		metrics.HTTPResponseStatuses.
			With(prometheus.Labels{
				"status": strconv.Itoa(rw.statusCode),
			}).
			Inc()

		rlog.Debugf("%s %s: %d in %s", r.Method, r.URL.Path, rw.statusCode, time.Since(now))
	})
}

type responseWriter struct {
	http.ResponseWriter

	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
