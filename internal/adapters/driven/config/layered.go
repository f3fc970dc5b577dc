package config

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*Layered)(nil)

// Layered reads from overlay first and base second. Writes go to base.
// Setting a key the overlay shadows is refused, since the new value would
// never be read.
type Layered struct {
	overlay driven.ConfigStore
	base    driven.ConfigStore
}

func NewLayered(overlay, base driven.ConfigStore) *Layered {
	return &Layered{overlay: overlay, base: base}
}

func (l *Layered) pick(key string) driven.ConfigStore {
	if _, ok := l.overlay.Get(key); ok {
		return l.overlay
	}
	return l.base
}

func (l *Layered) Get(key string) (any, bool)         { return l.pick(key).Get(key) }
func (l *Layered) GetString(key string) string        { return l.pick(key).GetString(key) }
func (l *Layered) GetInt(key string) int              { return l.pick(key).GetInt(key) }
func (l *Layered) GetFloat(key string) float64        { return l.pick(key).GetFloat(key) }
func (l *Layered) GetBool(key string) bool            { return l.pick(key).GetBool(key) }
func (l *Layered) GetStringSlice(key string) []string { return l.pick(key).GetStringSlice(key) }

// Keys is the sorted union of both layers.
func (l *Layered) Keys() []string {
	seen := make(map[string]struct{})
	for _, k := range l.base.Keys() {
		seen[k] = struct{}{}
	}
	for _, k := range l.overlay.Keys() {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (l *Layered) Set(key string, value any) error {
	if _, ok := l.overlay.Get(key); ok {
		return fmt.Errorf("%w: %s is overridden by %s; unset it first",
			domain.ErrInvalidInput, key, EnvName(EnvPrefix, key))
	}
	return l.base.Set(key, value)
}

func (l *Layered) Save() error  { return l.base.Save() }
func (l *Layered) Load() error  { return l.base.Load() }
func (l *Layered) Path() string { return l.base.Path() }

// Overridden lists the keys the overlay supplies, sorted.
func (l *Layered) Overridden() []string {
	keys := l.overlay.Keys()
	sort.Strings(keys)
	return keys
}
