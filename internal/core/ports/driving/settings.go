package driving

import "github.com/custodia-labs/fundlink/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, defaults applied.
	Get() (*domain.Settings, error)

	// Set updates a single dotted configuration key (e.g. "chunker.strategy").
	Set(key, value string) error

	// GetValue returns the effective value of one key as text.
	GetValue(key string) (string, error)

	// Keys returns every recognised configuration key.
	Keys() []string

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings
}
