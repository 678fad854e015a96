package dev

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/brattlof/shipboard/internal/app/config"
	"github.com/brattlof/shipboard/internal/app/server"
)

// Options configures a dev Server.
type Options struct {
	ConfigPath string
	// Port overrides app.port when non-zero. It also survives reloads.
	Port    int
	Version string
	Logger  *slog.Logger
}

// Server serves the application with live reload: when the config file
// changes the app is rebuilt from it and connected browsers reload.
type Server struct {
	opts   Options
	logger *slog.Logger
	hub    *Hub
	app    atomic.Pointer[http.Handler]
	cfg    *config.Config
	mu     sync.Mutex
	server *http.Server
}

func NewServer(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	d := &Server{
		opts:   opts,
		logger: opts.Logger,
		hub:    NewHub(opts.Logger),
	}

	cfg, err := d.build()
	if err != nil {
		return nil, err
	}
	d.cfg = cfg
	d.server = server.HTTPServer(cfg, d.Handler())

	return d, nil
}

func (d *Server) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(d.opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if d.opts.Port != 0 {
		cfg.App.Port = d.opts.Port
	}
	return cfg, nil
}

// build loads the config and swaps in a freshly built app handler.
func (d *Server) build() (*config.Config, error) {
	cfg, err := d.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	app, err := server.NewFromConfig(cfg, d.logger, d.opts.Version)
	if err != nil {
		return nil, fmt.Errorf("create app: %w", err)
	}

	h := app.Handler()
	d.app.Store(&h)
	return cfg, nil
}

// Reload rebuilds the app from the config file and tells connected browsers
// to reload. On failure the previous app keeps serving.
func (d *Server) Reload(changed string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cfg, err := d.build()
	if err != nil {
		return err
	}

	if cfg.Addr() != d.cfg.Addr() {
		d.logger.Warn("Listen address changes need a restart", "current", d.cfg.Addr(), "configured", cfg.Addr())
	}
	d.cfg = cfg

	d.logger.Info("App reloaded", "file", changed, "upstream", cfg.Upstream.BaseURL)
	d.hub.Reload(changed)
	return nil
}

// Handler routes the HMR socket and hands everything else to the current app.
func (d *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get(HMRPath, d.hub.Handler())
	r.Handle("/*", InjectHMR(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		(*d.app.Load()).ServeHTTP(w, req)
	})))
	return r
}

// watchDirs returns the directory of the config file in use, or the working
// directory when no file was found.
func (d *Server) watchDirs() []string {
	if d.cfg.File != "" {
		return []string{filepath.Dir(d.cfg.File)}
	}
	return []string{"."}
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (d *Server) Run(ctx context.Context) error {
	watcher, err := NewWatcher(d.watchDirs(), func(path string) {
		if err := d.Reload(path); err != nil {
			d.logger.Error("Reload failed, keeping previous app", "error", err)
		}
	}, d.logger)
	if err != nil {
		d.logger.Warn("File watcher failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(ctx)
		})
	}

	g.Go(func() error {
		d.logger.Info("Starting dev server", "addr", d.server.Addr, "upstream", d.cfg.Upstream.BaseURL)
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dev server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		d.logger.Info("Shutting down dev server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		d.hub.Close()
		return d.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// RunDev runs a dev server until SIGINT or SIGTERM.
func RunDev(opts Options) error {
	d, err := NewServer(opts)
	if err != nil {
		return fmt.Errorf("create dev server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return d.Run(ctx)
}
