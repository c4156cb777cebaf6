package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"ohbang/internal/config"
	"ohbang/internal/domain"
	"ohbang/internal/metrics"
	"ohbang/internal/models"
	"ohbang/internal/store"

	"github.com/rs/zerolog"
)

// MenuService is what the HTTP layer needs from the menu service.
type MenuService interface {
	Status() models.SyncStatus
	Ready() <-chan struct{}
	MenuItems(ctx context.Context) ([]models.MenuItemRecord, error)
	Filtered(ctx context.Context, namePattern, category string) ([]models.MenuItemRecord, error)
	ItemByID(ctx context.Context, id int64) ([]models.MenuItemRecord, error)
	Categories(ctx context.Context) ([]string, error)
	WatchMenu(ctx context.Context) *store.Watch
	WatchFiltered(ctx context.Context, namePattern, category string) *store.Watch
	WatchItem(ctx context.Context, id int64) *store.Watch
	Preferences() domain.PreferenceRepository
}

// HTTPServer exposes the menu over HTTP.
type HTTPServer struct {
	cfg     config.APIConfig
	svc     MenuService
	logger  *zerolog.Logger
	server  *http.Server
	limiter *rateLimiter
}

func NewHTTPServer(cfg config.APIConfig, svc MenuService, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	srv := &HTTPServer{cfg: cfg, svc: svc, logger: logger, limiter: newRateLimiter(&cfg)}

	mux := http.NewServeMux()
	srv.route(mux, "GET /healthz", "healthz", srv.handleHealth)
	srv.route(mux, "GET /readyz", "readyz", srv.handleReady)
	srv.route(mux, "GET /api/v1/status", "status", srv.handleStatus)
	srv.route(mux, "GET /api/v1/menu", "menu", srv.handleMenu)
	srv.route(mux, "GET /api/v1/menu/search", "menu_search", srv.handleSearch)
	srv.route(mux, "GET /api/v1/menu/watch", "menu_watch", srv.handleWatch)
	srv.route(mux, "GET /api/v1/menu/export.xlsx", "menu_export", srv.handleExport)
	srv.route(mux, "GET /api/v1/menu/{id}", "menu_item", srv.handleItem)
	srv.route(mux, "GET /api/v1/categories", "categories", srv.handleCategories)
	srv.route(mux, "GET /api/v1/prefs/{key}", "prefs_get", srv.handleGetPreference)
	srv.route(mux, "PUT /api/v1/prefs/{key}", "prefs_put", srv.handlePutPreference)
	srv.route(mux, "DELETE /api/v1/prefs/{key}", "prefs_delete", srv.handleDeletePreference)

	handler := Chain(mux,
		requestIDMiddleware,
		loggingMiddleware(logger),
		srv.limiter.middleware,
	)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) route(mux *http.ServeMux, pattern, name string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		metrics.IncHTTP(name)
		h(w, r)
	})
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start listens on the configured port. Request contexts derive from ctx,
// so canceling it ends open watch streams before Shutdown waits on them.
func (s *HTTPServer) Start(ctx context.Context) error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *HTTPServer) Serve(ctx context.Context, ln net.Listener) error {
	s.server.BaseContext = func(net.Listener) context.Context { return ctx }
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP API listening")
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
