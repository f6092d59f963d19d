package web

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/porystore/porystore/internal/config"
	"github.com/porystore/porystore/internal/metrics"
	"github.com/porystore/porystore/internal/ops"
)

// NewServer creates and configures the HTTP server for the porystore API.
func NewServer(db *sql.DB, cfg *config.Config, sched *ops.Scheduler, m *metrics.Metrics, registry *prometheus.Registry, log zerolog.Logger) *http.Server {
	h := &Handlers{
		db:    db,
		cfg:   cfg,
		sched: sched,
		m:     m,
		log:   log.With().Str("component", "web").Logger(),
	}

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("POST /api/register", h.HandleRegister)
	mux.HandleFunc("POST /api/login", h.HandleLogin)

	mux.HandleFunc("POST /api/creatures", h.HandleUpload)
	mux.HandleFunc("GET /api/creatures/mine", h.HandleMine)
	mux.HandleFunc("GET /api/creatures/{id}", h.HandleFetch)
	mux.HandleFunc("PATCH /api/creatures/{id}", h.HandleEdit)
	mux.HandleFunc("DELETE /api/creatures/{id}", h.HandleDelete)
	mux.HandleFunc("POST /api/creatures/{id}/undelete", h.HandleUndelete)
	mux.HandleFunc("GET /api/creatures/{id}/download", h.HandleDownload)
	mux.HandleFunc("POST /api/creatures/{id}/move", h.HandleMove)

	mux.HandleFunc("POST /api/creatures/{id}/notes", h.HandleAddNote)
	mux.HandleFunc("PATCH /api/creatures/{id}/notes/{noteId}", h.HandleEditNote)
	mux.HandleFunc("DELETE /api/creatures/{id}/notes/{noteId}", h.HandleDeleteNote)

	mux.HandleFunc("POST /api/boxes", h.HandleCreateBox)
	mux.HandleFunc("GET /api/boxes", h.HandleMyBoxes)

	mux.HandleFunc("GET /api/admin/pending", h.HandlePending)

	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", h.HandleHealth)

	handler := securityHeaders(requestLogger(h.log, h.withViewer(mux)))

	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler: handler,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogger logs one line per request at debug level.
func requestLogger(log zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
// Shutdown stops the listener first, then the deletion scheduler; pending
// timers it abandons are reconciled by the next start-up sweep.
func Run(srv *http.Server, sched *ops.Scheduler, log zerolog.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info().Str("addr", srv.Addr).Msg("porystore API listening")

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warn().Msg("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(ctx)
		sched.Close()
		sched.Wait()
		return err
	}
}
