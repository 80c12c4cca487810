// Package api provides the HTTP and WebSocket surface of fleetglint.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/alerter"
	"github.com/darshan-rambhia/fleetglint/internal/cache"
	"github.com/darshan-rambhia/fleetglint/internal/command"
	"github.com/darshan-rambhia/fleetglint/internal/events"
	"github.com/darshan-rambhia/fleetglint/internal/ingest"
	"github.com/darshan-rambhia/fleetglint/internal/metrics"
	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/darshan-rambhia/fleetglint/internal/notify"
	"github.com/darshan-rambhia/fleetglint/internal/registry"
	"github.com/darshan-rambhia/fleetglint/internal/store"
	"github.com/darshan-rambhia/fleetglint/internal/throttle"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/darshan-rambhia/fleetglint/docs/swagger"
)

const (
	maxReportBytes = 8 << 20
	maxResultBytes = 32 << 20
	maxAdminBytes  = 1 << 20
)

// Deps are the collaborators the handlers call into. Metrics may be nil.
type Deps struct {
	Store       *store.Store
	Registry    *registry.Registry
	Ingest      *ingest.Service
	Alerts      *alerter.Manager
	Commands    *command.Dispatcher
	Cache       *cache.Cache
	Broadcaster *events.Broadcaster
	Notifier    *notify.Throttler
	Settings    *notify.Settings
	Limiter     *throttle.Limiter
	Metrics     *metrics.Metrics
}

// Options tune the HTTP surface.
type Options struct {
	AdminToken string // empty disables the admin gate
	TrustProxy bool   // take the client IP from X-Forwarded-For
}

// Server is the HTTP server for fleetglint.
type Server struct {
	Deps
	opts   Options
	mux    *http.ServeMux
	server *http.Server
	now    func() time.Time
}

// NewServer creates a new HTTP server.
func NewServer(addr string, d Deps, opts Options) *Server {
	srv := &Server{
		Deps: d,
		opts: opts,
		mux:  http.NewServeMux(),
		now:  time.Now,
	}

	srv.registerRoutes()

	srv.server = &http.Server{
		Addr:              addr,
		Handler:           SecurityHeadersMiddleware(RecoveryMiddleware(LoggingMiddleware(srv.mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("HTTP server starting", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("HTTP server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	agent := func(h http.HandlerFunc) http.Handler {
		return RateLimitMiddleware(s.Limiter, s.Metrics, s.opts.TrustProxy)(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return AdminMiddleware(s.opts.AdminToken)(h)
	}

	// Agent endpoints
	s.mux.Handle("POST /api/agent/report", agent(s.handleReport))
	s.mux.Handle("GET /api/agent/commands", agent(s.handleAgentCommands))
	s.mux.Handle("POST /api/agent/commands/{id}/result", agent(s.handleCommandResult))

	// Machines
	s.mux.Handle("GET /api/machines", admin(s.handleListMachines))
	s.mux.Handle("GET /api/machines/{id}", admin(s.handleGetMachine))
	s.mux.Handle("DELETE /api/machines/{id}", admin(s.handleDeleteMachine))
	s.mux.Handle("POST /api/machines/{id}/token", admin(s.handleRotateToken))
	s.mux.Handle("GET /api/machines/{id}/reports", admin(s.handleListReports))
	s.mux.Handle("GET /api/machines/{id}/thresholds", admin(s.handleGetThresholds))
	s.mux.Handle("PUT /api/machines/{id}/thresholds", admin(s.handlePutThresholds))
	s.mux.Handle("GET /api/machines/{id}/screenshots", admin(s.handleListScreenshots))
	s.mux.Handle("DELETE /api/machines/{id}/screenshots", admin(s.handleDeleteScreenshots))

	// Screenshots
	s.mux.Handle("GET /api/screenshots/{id}", admin(s.handleGetScreenshot))
	s.mux.Handle("DELETE /api/screenshots/{id}", admin(s.handleDeleteScreenshot))

	// Alerts
	s.mux.Handle("GET /api/alerts", admin(s.handleListAlerts))
	s.mux.Handle("DELETE /api/alerts", admin(s.handleDeleteAlerts))
	s.mux.Handle("PATCH /api/alerts/{id}", admin(s.handlePatchAlert))
	s.mux.Handle("POST /api/alerts/resolve", admin(s.handleResolveAlerts))

	// Commands
	s.mux.Handle("POST /api/commands", admin(s.handleCreateCommand))
	s.mux.Handle("GET /api/commands", admin(s.handleListCommands))

	// Settings and dashboard
	s.mux.Handle("GET /api/settings/notify", admin(s.handleGetNotify))
	s.mux.Handle("PUT /api/settings/notify", admin(s.handlePutNotify))
	s.mux.Handle("POST /api/settings/notify/test", admin(s.handleTestNotify))
	s.mux.Handle("GET /api/dashboard", admin(s.handleDashboard))

	// Real-time events
	s.mux.Handle("GET /ws", admin(s.handleWebSocket))

	// Health check
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	// Prometheus
	if s.Metrics != nil {
		s.mux.Handle("GET /metrics", s.Metrics.Handler())
	}

	// Swagger UI
	s.mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeJSON marshals v to JSON into a buffer first, then writes it to the
// response. This ensures marshalling errors can be returned as a proper 500.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("encoding JSON response", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Debug("writing JSON response", "path", r.URL.Path, "error", err)
	}
}

// writeError maps a domain error onto an HTTP status. Internal details are
// logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *model.ValidationError
		te *model.TransientError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: ve.Fields})
	case errors.Is(err, model.ErrUnauthorized):
		writeJSON(w, r, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, r, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, model.ErrRateLimited):
		writeJSON(w, r, http.StatusTooManyRequests, errorResponse{Error: "rate limited"})
	case errors.Is(err, model.ErrInvalidTransition):
		writeJSON(w, r, http.StatusConflict, errorResponse{Error: "command is not executing"})
	case errors.As(err, &te):
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, r, http.StatusServiceUnavailable, errorResponse{Error: "temporarily unavailable"})
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

// readBody reads at most limit bytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, model.NewValidationError("body", "exceeds "+strconv.FormatInt(limit, 10)+" bytes")
		}
		return nil, model.NewValidationError("body", "could not be read")
	}
	return data, nil
}

// decodeJSON reads a JSON object from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	data, err := readBody(w, r, maxAdminBytes)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return model.NewValidationError("body", "must be a valid JSON object")
	}
	return nil
}

// queryInt parses an integer query parameter, returning def when absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil {
		return v
	}
	return def
}

// @Summary Health check
// @Description Returns service health and a storage ping
// @Produce json
// @Success 200 {object} map[string]interface{} "Health status"
// @Failure 503 {object} map[string]interface{} "Storage unavailable"
// @Router /healthz [get]
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.Store.Ping(r.Context()); err != nil {
		slog.Warn("health check ping failed", "error", err)
		status, code = "storage_unavailable", http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, map[string]any{
		"status":      status,
		"timestamp":   s.now().Unix(),
		"subscribers": s.Broadcaster.Count(),
	})
}

// @Summary Dashboard summary
// @Description Fleet totals, liveness counts, average usage and the newest unresolved alerts
// @Produce json
// @Success 200 {object} model.FleetSummary
// @Router /api/dashboard [get]
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.Cache.Summary(s.now()))
}
