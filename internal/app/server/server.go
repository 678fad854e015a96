package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brattlof/shipboard/internal/app/config"
	"github.com/brattlof/shipboard/internal/app/page"
	"github.com/brattlof/shipboard/internal/app/render"
	"github.com/brattlof/shipboard/internal/templates"
	"github.com/brattlof/shipboard/internal/users"
)

// UsersLoader produces the data of the users page.
type UsersLoader interface {
	Load(ctx context.Context) (users.Data, error)
}

type Server struct {
	config   *config.Config
	router   *page.Router
	renderer *render.Renderer
	mux      *chi.Mux
	logger   *slog.Logger
	version  string
}

func New(cfg *config.Config, loader UsersLoader, logger *slog.Logger, version string) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	renderer := render.NewRenderer(logger)

	s := &Server{
		config:   cfg,
		router:   page.New(renderer, templates.ErrorPage, logger),
		renderer: renderer,
		mux:      chi.NewRouter(),
		logger:   logger,
		version:  version,
	}

	s.setupMiddlewares()
	if err := s.setupRoutes(loader); err != nil {
		return nil, err
	}
	return s, nil
}

// NewFromConfig builds the users loader described by cfg and a server
// around it.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, version string) (*Server, error) {
	loader, err := NewLoader(cfg, logger)
	if err != nil {
		return nil, err
	}
	return New(cfg, loader, logger, version)
}

func NewLoader(cfg *config.Config, logger *slog.Logger) (*users.Loader, error) {
	loader, err := users.NewLoader(cfg.Upstream.BaseURL,
		users.WithUsersPath(cfg.Upstream.UsersPath),
		users.WithTimeout(cfg.UpstreamTimeout()),
		users.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create users loader: %w", err)
	}
	return loader, nil
}

func (s *Server) setupMiddlewares() {
	s.mux.Use(middleware.RequestID)
	s.mux.Use(middleware.RealIP)
	s.mux.Use(middleware.Logger)
	s.mux.Use(middleware.Recoverer)
	// Outside Timeout so the 504 it writes is rewritten too.
	s.mux.Use(Headers(s.config.Server.Headers))
	if timeout := s.config.RequestTimeout(); timeout > 0 {
		s.mux.Use(middleware.Timeout(timeout))
	}
}

func (s *Server) setupRoutes(loader UsersLoader) error {
	err := page.Register(s.router, page.Page[users.Data]{
		Pattern: "/",
		Title:   s.config.App.Title,
		Load: func(ctx context.Context, r *http.Request) (users.Data, error) {
			return loader.Load(ctx)
		},
		View: func(data users.Data) templ.Component {
			return templates.UsersPage(s.config.App.Title, data)
		},
	})
	if err != nil {
		return err
	}

	err = s.router.Add(&page.Route{
		Pattern:     "/health",
		Type:        page.RouteTypeAPI,
		Description: "Liveness probe",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			s.renderer.JSON(w, http.StatusOK, map[string]string{
				"status":  "ok",
				"version": s.version,
			})
		},
	})
	if err != nil {
		return err
	}

	s.router.Mount(s.mux)

	s.mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderer.Render(r.Context(), w, http.StatusNotFound, templates.Error404())
	})

	return nil
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Routes() []*page.Route {
	return s.router.Routes()
}

// HTTPServer returns an *http.Server for h configured with the timeouts of cfg.
func HTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  cfg.IdleTimeout(),
	}
}
