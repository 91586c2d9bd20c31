package registration

import (
	"github.com/tjfontaine/meeting-digest/internal/provider/gemini"
	"github.com/tjfontaine/meeting-digest/internal/provider/mock"
	"github.com/tjfontaine/meeting-digest/internal/provider/openai"
)

// RegisterBuiltins registers built-in providers explicitly.
// This replaces init-based side effects and is intended to be called from
// cmd/digestd and tests before selecting a provider.
func RegisterBuiltins() {
	gemini.RegisterProviderFactory()
	openai.RegisterProviderFactory()
	mock.RegisterProviderFactory()
}
