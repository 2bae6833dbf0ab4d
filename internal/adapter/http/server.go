package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/nexrad-cdm-etl/internal/domain"
)

// ScanLookup serves the most recent decoded scan per station.
type ScanLookup interface {
	Latest(station string) (domain.ScanSummary, bool)
	Stations() []string
}

// Server exposes health, readiness, metrics, and scan HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, and /metrics routes.
// When scans is non-nil it also serves /scans and /scans/{station}.
func NewServer(addr string, ready sharedobs.ReadinessChecker, scans ScanLookup, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if scans != nil {
		mux.HandleFunc("GET /scans", handleStations(scans))
		mux.HandleFunc("GET /scans/{station}", handleLatestScan(scans))
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func handleStations(scans ScanLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		sharedobs.WriteJSON(w, http.StatusOK, map[string][]string{"stations": scans.Stations()})
	}
}

func handleLatestScan(scans ScanLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		station := strings.ToUpper(r.PathValue("station"))
		summary, ok := scans.Latest(station)
		if !ok {
			sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{
				"status": "not found",
				"error":  "no scan decoded for station " + station,
			})
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, summary)
	}
}
