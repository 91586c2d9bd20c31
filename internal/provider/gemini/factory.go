package gemini

import (
	"errors"

	"github.com/tjfontaine/meeting-digest/internal/config"
	"github.com/tjfontaine/meeting-digest/internal/domain"
	"github.com/tjfontaine/meeting-digest/internal/provider/registry"
)

// ProviderType is the provider type identifier used in configuration.
const ProviderType = "gemini"

// RegisterProviderFactory registers the Gemini provider factory.
func RegisterProviderFactory() {
	registry.Register(registry.Factory{
		Kind:        ProviderType,
		Description: "Google Gemini API provider",
		New:         CreateFromConfig,
		Validate:    ValidateConfig,
	})
}

// CreateFromConfig creates a new Gemini provider from configuration.
func CreateFromConfig(cfg config.ProviderConfig) (domain.Provider, error) {
	opts := []ProviderOption{WithDefaultModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, WithProviderBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}
	return NewProvider(cfg.APIKey, opts...), nil
}

// ValidateConfig requires an API key.
func ValidateConfig(cfg config.ProviderConfig) error {
	if cfg.APIKey == "" {
		return errors.New("api_key is required")
	}
	return nil
}
