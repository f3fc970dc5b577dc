package driven

// ConfigStore is a flat map of dotted keys ("rag.top_k") to values.
// Typed getters return the zero value for a missing key or a value of the
// wrong type; GetFloat also accepts integers.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Keys lists every key that has a value, unordered.
	Keys() []string

	// Set stores value and persists it before returning.
	Set(key string, value any) error

	Save() error
	Load() error

	// Path is where the store persists, empty for in-memory stores.
	Path() string
}
