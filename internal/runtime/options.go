package runtime

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tjfontaine/meeting-digest/internal/config"
	"github.com/tjfontaine/meeting-digest/internal/retry"
	"github.com/tjfontaine/meeting-digest/internal/storage"
)

// Option is a functional option for configuring an App.
type Option func(*App) error

// WithConfig uses an already resolved configuration.
func WithConfig(cfg *config.Config) Option {
	return func(a *App) error {
		if cfg == nil {
			return errors.New("config must not be nil")
		}
		a.cfg = cfg
		return nil
	}
}

// WithConfigFile loads configuration from path and the environment.
func WithConfigFile(path string) Option {
	return func(a *App) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		a.cfg = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithStore injects a digest store instead of building one from config.
// The App takes ownership and closes it on Shutdown.
func WithStore(store storage.DigestStore) Option {
	return func(a *App) error {
		a.store = store
		return nil
	}
}

// WithHTTPClient sets the client used by diagnostics and key validation.
func WithHTTPClient(c *http.Client) Option {
	return func(a *App) error {
		a.httpClient = c
		return nil
	}
}

// WithAutostartDelay sets how long after Start the diagnostics timer begins.
func WithAutostartDelay(d time.Duration) Option {
	return func(a *App) error {
		a.autostartDelay = d
		return nil
	}
}

// WithRetrySleep replaces the backoff wait for generation retries.
func WithRetrySleep(fn retry.SleepFunc) Option {
	return func(a *App) error {
		a.sleep = fn
		return nil
	}
}
