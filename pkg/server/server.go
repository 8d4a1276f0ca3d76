// Package server is the browser runtime: it exposes the Home and About
// controllers over HTTP and delivers exports as attachment downloads.
//
// # Routes
//
//	GET    /api/location               About view and permission
//	POST   /api/location/acquire       re-run acquisition (Try Again / Retry)
//	PUT    /api/location/permission    record a consent decision {"decision": "granted"}
//	DELETE /api/location/permission    forget the consent decision
//	POST   /api/location/settings      open the OS settings page
//	GET    /api/location/map.png       rendered map once ready
//
//	GET    /api/home                   Home view
//	POST   /api/home/photo             multipart "photo"; no file means the picker was canceled
//	POST   /api/home/use-this-photo
//	POST   /api/home/sticker/picker    open the sticker picker
//	DELETE /api/home/sticker/picker    close it
//	POST   /api/home/sticker           multipart "sticker"
//	PUT    /api/home/sticker/offset    {"x": 10, "y": -4}
//	POST   /api/home/reset
//	GET    /api/home/preview.jpg       the composition as shown
//	POST   /api/home/save              responds with sticker-smash.jpeg as an attachment
//
// JSON responses carry the screen view and any alerts raised while handling
// the request.
package server

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/stickersmash/pkg/location/provider"
	"github.com/matzehuels/stickersmash/pkg/screen"
)

// Server limits.
const (
	maxUploadBytes  = 32 << 20
	shutdownTimeout = 5 * time.Second
	mapWidth        = 640
	mapHeight       = 480
)

// Config wires a Server.
type Config struct {
	About *screen.About
	Home  *screen.Home
	// Consent is the location consent store behind the permission routes.
	// Without one those routes answer 501.
	Consent *provider.ConsentStore
	// Metrics, if set, is served at /metrics.
	Metrics http.Handler
	// Middleware wraps every route, outermost first.
	Middleware []func(http.Handler) http.Handler
	Logger     *log.Logger
}

// Server serves the browser runtime.
type Server struct {
	about   *screen.About
	home    *screen.Home
	consent *provider.ConsentStore
	logger  *log.Logger
	router  chi.Router
}

// New builds the router. The Home controller must have been created with
// NewPicker, NewNotifier and a DOMCapture pipeline using NewDownloader.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	s := &Server{
		about:   cfg.About,
		home:    cfg.Home,
		consent: cfg.Consent,
		logger:  cfg.Logger,
	}

	r := chi.NewRouter()
	for _, mw := range cfg.Middleware {
		r.Use(mw)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(withRequestState)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/version", s.handleVersion)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/api/location", func(r chi.Router) {
		r.Get("/", s.handleLocation)
		r.Post("/acquire", s.handleAcquire)
		r.Put("/permission", s.handleSetPermission)
		r.Delete("/permission", s.handleClearPermission)
		r.Post("/settings", s.handleOpenSettings)
		r.Get("/map.png", s.handleMap)
	})

	r.Route("/api/home", func(r chi.Router) {
		r.Get("/", s.handleHome)
		r.Post("/photo", s.handlePhoto)
		r.Post("/use-this-photo", s.handleUseThisPhoto)
		r.Post("/sticker/picker", s.handleOpenPicker)
		r.Delete("/sticker/picker", s.handleClosePicker)
		r.Post("/sticker", s.handleSticker)
		r.Put("/sticker/offset", s.handleStickerOffset)
		r.Post("/reset", s.handleReset)
		r.Get("/preview.jpg", s.handlePreview)
		r.Post("/save", s.handleSave)
	})

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on addr and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("serving", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
