// Package runtime assembles the digest service, diagnostics and HTTP server
// and manages their lifecycle.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tjfontaine/meeting-digest/internal/config"
	"github.com/tjfontaine/meeting-digest/internal/diagnostics"
	"github.com/tjfontaine/meeting-digest/internal/digest"
	"github.com/tjfontaine/meeting-digest/internal/frontdoor"
	"github.com/tjfontaine/meeting-digest/internal/netcheck"
	"github.com/tjfontaine/meeting-digest/internal/provider"
	"github.com/tjfontaine/meeting-digest/internal/retry"
	"github.com/tjfontaine/meeting-digest/internal/server"
	"github.com/tjfontaine/meeting-digest/internal/storage"
	"github.com/tjfontaine/meeting-digest/internal/storage/memory"
	"github.com/tjfontaine/meeting-digest/internal/storage/sqlite"
)

// ServiceName labels traces and the server span.
const ServiceName = "meeting-digest"

// DefaultAutostartDelay is the pause between Start and the first scheduled
// diagnostics pass.
const DefaultAutostartDelay = time.Second

// App is the assembled meeting digest service.
type App struct {
	// Dependencies (injected via options)
	cfg            *config.Config
	logger         *slog.Logger
	store          storage.DigestStore
	httpClient     *http.Client
	sleep          retry.SleepFunc
	autostartDelay time.Duration

	// Assembled components
	selector  *provider.Selector
	digests   *digest.Service
	scheduler *diagnostics.Scheduler
	server    *server.Server

	// Lifecycle management
	mu        sync.Mutex
	started   bool
	stopped   bool
	autostart *time.Timer
	serveErr  chan error
}

// New builds an App. A configuration is required; storage is built from it
// unless one is injected with WithStore.
func New(opts ...Option) (*App, error) {
	app := &App{
		logger:         slog.Default(),
		autostartDelay: DefaultAutostartDelay,
		serveErr:       make(chan error, 1),
	}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if app.cfg == nil {
		return nil, errors.New("config required (use WithConfig or WithConfigFile)")
	}
	app.cfg.Provider.APIKey = strings.TrimSpace(app.cfg.Provider.APIKey)
	if app.httpClient == nil {
		app.httpClient = http.DefaultClient
	}
	if app.store == nil {
		store, err := openStore(app.cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		app.store = store
	}

	app.assemble()
	return app, nil
}

func openStore(cfg config.StorageConfig) (storage.DigestStore, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(), nil
	case "", "sqlite":
		path := cfg.SQLite.Path
		if path == "" {
			path = "digests.db"
		}
		if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		return sqlite.New(path)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

func (a *App) assemble() {
	cfg := a.cfg
	a.selector = provider.NewSelector(cfg, a.logger)

	retryCfg := retry.Config{MaxAttempts: cfg.Retry.MaxAttempts, BaseDelay: cfg.Retry.BaseDelay}
	if retryCfg.MaxAttempts <= 0 {
		retryCfg = retry.DefaultConfig()
	}

	svcOpts := []digest.Option{
		digest.WithRetry(retryCfg),
		digest.WithMaxInputTokens(cfg.Tokens.MaxInput),
		digest.WithLogger(a.logger),
	}
	if a.sleep != nil {
		svcOpts = append(svcOpts, digest.WithSleep(a.sleep))
	}
	a.digests = digest.NewService(a.store, a.selector, svcOpts...)

	validator := netcheck.NewForProvider(cfg.Provider,
		netcheck.WithHTTPClient(a.httpClient),
		netcheck.WithTimeout(diagnostics.APIKeyTimeout))

	checkerOpts := []diagnostics.CheckerOption{
		diagnostics.WithHTTPClient(a.httpClient),
		diagnostics.WithValidator(validator),
		diagnostics.WithModelTest(a.selector.ForKey, cfg.Provider.Model),
	}
	if cfg.Diagnostics.InternetURL != "" {
		checkerOpts = append(checkerOpts, diagnostics.WithInternetURL(cfg.Diagnostics.InternetURL))
	}
	if u := providerURL(cfg.Provider); u != "" {
		checkerOpts = append(checkerOpts, diagnostics.WithProviderURL(u))
	}
	a.scheduler = diagnostics.NewScheduler(diagnostics.NewChecker(checkerOpts...),
		diagnostics.WithInterval(cfg.Diagnostics.Interval),
		diagnostics.WithSchedulerLogger(a.logger))

	a.server = server.New(server.Options{
		Port:           cfg.Server.Port,
		RequestTimeout: cfg.Server.RequestTimeout,
		ServiceName:    ServiceName,
	}, a.logger)

	providerTest := frontdoor.NewProviderTestHandler(frontdoor.ProviderTestConfig{
		APIKey:      cfg.Provider.APIKey,
		Model:       cfg.Provider.Model,
		Validator:   validator,
		ProviderFor: a.selector.ForKey,
		Retry:       retryCfg,
		Sleep:       a.sleep,
	}, a.logger)

	routes := [][]frontdoor.HandlerRegistration{
		frontdoor.NewDigestHandler(a.digests, a.logger).Routes(),
		frontdoor.NewDiagnosticsHandler(a.scheduler, cfg.Provider.APIKey, a.logger).Routes(),
		providerTest.Routes(),
	}
	frontdoor.Mount(a.server.Router, routes...)
	for _, regs := range routes {
		for _, reg := range regs {
			a.logger.Debug("registered handler",
				slog.String("method", reg.Method),
				slog.String("path", reg.Path))
		}
	}
}

// providerURL is the host resolved by the DNS check.
func providerURL(pc config.ProviderConfig) string {
	if pc.BaseURL != "" {
		return strings.TrimSuffix(pc.BaseURL, "/") + "/"
	}
	if pc.Kind == "openai" {
		return "https://api.openai.com/"
	}
	return ""
}

// Handler returns the fully wired router.
func (a *App) Handler() http.Handler {
	return a.server.Router
}

// Scheduler returns the diagnostics scheduler.
func (a *App) Scheduler() *diagnostics.Scheduler {
	return a.scheduler
}

// Digests returns the digest service.
func (a *App) Digests() *digest.Service {
	return a.digests
}

// Errors delivers a listener failure. Nothing is sent after a clean shutdown.
func (a *App) Errors() <-chan error {
	return a.serveErr
}

// Start begins serving HTTP and, when configured, arms the diagnostics timer.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return errors.New("app already started")
	}
	a.started = true

	go func() {
		if err := a.server.Start(); err != nil {
			a.logger.Error("server failed", slog.String("error", err.Error()))
			a.serveErr <- err
		}
	}()

	if a.cfg.Diagnostics.Autostart {
		if a.cfg.HasCredential() {
			apiKey := a.cfg.Provider.APIKey
			a.autostart = time.AfterFunc(a.autostartDelay, func() {
				a.mu.Lock()
				defer a.mu.Unlock()
				if a.stopped || ctx.Err() != nil {
					return
				}
				a.logger.Info("starting diagnostics timer", slog.Duration("interval", a.scheduler.Interval()))
				a.scheduler.Start(apiKey)
			})
		} else {
			a.logger.Info("diagnostics timer not started: no provider credential configured")
		}
	}

	a.logger.Info("meeting digest service started",
		slog.Int("port", a.cfg.Server.Port),
		slog.Bool("mock", a.selector.MockMode()),
		slog.String("provider", a.cfg.Provider.Kind),
		slog.String("storage", a.cfg.Storage.Type))

	return nil
}

// Shutdown stops the diagnostics timer, drains the HTTP server and closes
// storage.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.logger.Info("shutting down")
	a.stopped = true

	if a.autostart != nil {
		a.autostart.Stop()
	}
	a.scheduler.Stop()

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
		return err
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
