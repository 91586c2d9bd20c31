package mock

import (
	"github.com/tjfontaine/meeting-digest/internal/config"
	"github.com/tjfontaine/meeting-digest/internal/domain"
	"github.com/tjfontaine/meeting-digest/internal/provider/registry"
)

// ProviderType is the provider type identifier used in configuration.
const ProviderType = "mock"

// RegisterProviderFactory registers the mock provider factory.
func RegisterProviderFactory() {
	registry.Register(registry.Factory{
		Kind:        ProviderType,
		Description: "Canned meeting summary for offline development",
		New: func(config.ProviderConfig) (domain.Provider, error) {
			return New(), nil
		},
	})
}
