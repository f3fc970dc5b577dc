package memory

import (
	"github.com/custodia-labs/docsearch/internal/adapters/driven/config"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings in process only. It carries environment
// overrides at runtime and stands in for config.toml in tests.
type ConfigStore struct {
	*config.Values
}

func NewConfigStore() *ConfigStore {
	return NewConfigStoreFrom(nil)
}

// NewConfigStoreFrom starts with a copy of seed.
func NewConfigStoreFrom(seed map[string]any) *ConfigStore {
	return &ConfigStore{Values: config.NewValues(seed)}
}

func (s *ConfigStore) Set(key string, value any) error {
	s.Put(key, value)
	return nil
}

func (s *ConfigStore) Save() error  { return nil }
func (s *ConfigStore) Load() error  { return nil }
func (s *ConfigStore) Path() string { return ":memory:" }
