package driven

// ConfigStore holds the flat dotted-key settings ("chunker.chunk_size").
// Typed getters return the zero value for missing keys and for values of
// the wrong type, so callers apply their own defaults.
type ConfigStore interface {
	// Get returns the raw value and whether the key exists.
	Get(key string) (any, bool)

	// GetString returns a string value.
	GetString(key string) string

	// GetInt returns an integer value. Whole floats are accepted.
	GetInt(key string) int

	// GetFloat returns a numeric value as float64. Integers are accepted.
	GetFloat(key string) float64

	// Set stores a value. File-backed stores persist it immediately.
	Set(key string, value any) error

	// Save persists the current values.
	Save() error

	// Load re-reads values from storage, discarding unsaved changes.
	Load() error

	// Path describes where the values are stored.
	Path() string
}
