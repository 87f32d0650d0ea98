package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ShoshinNikita/camoview/camoview"
	"github.com/ShoshinNikita/camoview/pkg/rlog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusFunc returns the current state of image loading.
type StatusFunc func() ImagesStatus

// Server serves debug endpoints.
type Server struct {
	buildInfo camoview.BuildInfo
	status    StatusFunc

	httpServer *http.Server
}

func NewServer(cfg camoview.Config, status StatusFunc) (s *Server) {
	s = &Server{
		buildInfo: cfg.BuildInfo,
		status:    status,
	}

	mux := http.NewServeMux()

	// Debug
	mux.Handle("/debug/metrics", promhttp.Handler())
	mux.HandleFunc("/debug/status", s.handleStatus)

	s.httpServer = &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.MetricsPort),
		Handler:           loggingMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	rlog.Infof("start web server on %q", s.httpServer.Addr)

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := Status{
		ShortGitHash: s.buildInfo.ShortGitHash,
		CommitTime:   s.buildInfo.CommitTime,
	}
	if s.status != nil {
		resp.Images = s.status()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		rlog.Errorf("couldn't write status response: %s", err)
	}
}
