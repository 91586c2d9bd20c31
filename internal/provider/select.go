// Package provider decides which text-generation backend serves a request.
//
// Backends register themselves with the registry subpackage through
// registration.RegisterBuiltins; this package only selects among them.
package provider

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tjfontaine/meeting-digest/internal/config"
	"github.com/tjfontaine/meeting-digest/internal/domain"
	"github.com/tjfontaine/meeting-digest/internal/provider/mock"
	"github.com/tjfontaine/meeting-digest/internal/provider/registry"
)

// ErrCredentialMissing is returned when a real provider is required but no
// credential is configured.
var ErrCredentialMissing = errors.New("provider credential not configured")

// Selection is the outcome of provider selection.
type Selection struct {
	Provider domain.Provider
	// Mock is true when canned responses are served instead of a real backend.
	Mock bool
}

// Selector turns resolved configuration into a provider.
type Selector struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewSelector creates a selector over cfg.
func NewSelector(cfg *config.Config, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{cfg: cfg, logger: logger}
}

// MockMode reports whether Select will return the mock provider.
func (s *Selector) MockMode() bool {
	return s.cfg.UseMock()
}

// HasCredential reports whether a real provider can be built.
func (s *Selector) HasCredential() bool {
	return s.cfg.HasCredential()
}

// Select is the single place that chooses between mock and real providers.
// A fresh provider is built on every call.
func (s *Selector) Select() (Selection, error) {
	if s.cfg.UseMock() {
		s.logger.Info("Using mock responses for offline testing")
		p, err := registry.Create(config.ProviderConfig{Kind: mock.ProviderType})
		if err != nil {
			return Selection{}, fmt.Errorf("failed to create mock provider: %w", err)
		}
		return Selection{Provider: Instrument(p), Mock: true}, nil
	}

	if !s.cfg.HasCredential() {
		return Selection{}, ErrCredentialMissing
	}

	p, err := registry.Create(s.cfg.Provider)
	if err != nil {
		return Selection{}, fmt.Errorf("failed to create provider: %w", err)
	}
	return Selection{Provider: Instrument(p)}, nil
}

// ForKey builds the configured real provider with an explicit credential,
// ignoring the mock flag. Diagnostics use it to smoke-test a key.
func (s *Selector) ForKey(apiKey string) (domain.Provider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrCredentialMissing
	}
	pc := s.cfg.Provider
	pc.APIKey = apiKey
	p, err := registry.Create(pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	return Instrument(p), nil
}

// Settings returns the generation parameters from configuration.
func (s *Selector) Settings() config.ProviderConfig {
	return s.cfg.Provider
}
