package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hpungsan/vellum/internal/errors"
	"github.com/hpungsan/vellum/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// shutdownTimeout bounds graceful shutdown on SIGINT/SIGTERM.
const shutdownTimeout = 5 * time.Second

// NewServer creates the HTTP server for the Vellum web UI and JSON API.
func NewServer(env *ops.Env, version, bind string, port int) (*http.Server, error) {
	handler, err := newHandler(env, version)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:              net.JoinHostPort(bind, strconv.Itoa(port)),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

func newHandler(env *ops.Env, version string) (http.Handler, error) {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}

	renderer, err := NewRenderer(templateSub, version, env.Logger)
	if err != nil {
		return nil, err
	}
	metrics := NewMetrics(env.Root)

	h := &Handlers{
		env:      env,
		renderer: renderer,
		metrics:  metrics,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/views", http.StatusFound)
	})
	mux.HandleFunc("GET /views", h.HandleList)
	mux.HandleFunc("GET /views/{name}", h.HandleDetail)
	mux.HandleFunc("POST /views/{name}/active", h.HandleActivateForm)
	mux.HandleFunc("POST /views/{name}/delete", h.HandleDeleteForm)
	mux.HandleFunc("POST /views/{name}/versions/{id}/delete", h.HandleDeleteVersionForm)

	mux.HandleFunc("GET /api/views", h.APIListViews)
	mux.HandleFunc("GET /api/views/{name}", h.APIGetView)
	mux.HandleFunc("DELETE /api/views/{name}", h.APIDeleteView)
	mux.HandleFunc("GET /api/views/{name}/tree", h.APIGetTree)
	mux.HandleFunc("POST /api/views/{name}/versions", h.APISaveVersion)
	mux.HandleFunc("GET /api/views/{name}/versions/{id}", h.APIGetVersion)
	mux.HandleFunc("DELETE /api/views/{name}/versions/{id}", h.APIDeleteVersion)
	mux.HandleFunc("PUT /api/views/{name}/active", h.APISetActive)
	mux.HandleFunc("POST /api/views/{name}/resolve", h.APIResolve)
	mux.HandleFunc("GET /api/history", h.APIHistory)

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))
	mux.Handle("GET /metrics", metrics.Handler())

	// State-changing requests from another origin are refused. Browsers send
	// HTML form posts without a preflight, so the method alone is not enough.
	csrf := http.NewCrossOriginProtection()
	csrf.SetDenyHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		renderer.renderError(w, r, errors.NewForbidden("cross-origin request rejected"))
	}))

	return metrics.instrument(securityHeaders(csrf.Handler(mux)), env.Logger), nil
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run serves srv until it fails or the process receives SIGINT/SIGTERM,
// then shuts down gracefully.
func Run(srv *http.Server, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("vellum server listening", "addr", "http://"+srv.Addr)
	if host, _, err := net.SplitHostPort(srv.Addr); err == nil {
		if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
			logger.Warn("server is bound to all interfaces and may be reachable from the network")
		}
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
