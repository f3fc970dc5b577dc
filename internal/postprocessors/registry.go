package postprocessors

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

// Options is one stage's settings as decoded from configuration.
type Options map[string]any

// Int reads a whole number. Decoders hand back int, int64 or float64
// depending on the source format.
func (o Options) Int(key string) (int, bool) {
	switch v := o[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

// Strings reads a list of strings, skipping non-string items.
func (o Options) Strings(key string) ([]string, bool) {
	switch v := o[key].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	}
	return nil, false
}

// BuilderFunc constructs a stage from its options.
type BuilderFunc func(opts Options) (driven.PostProcessor, error)

// Registry maps stage names to builders.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]BuilderFunc
}

func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]BuilderFunc)}
}

// Register fails if name is already taken.
func (r *Registry) Register(name string, builder BuilderFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.builders[name]; taken {
		return fmt.Errorf("%w: processor %q registered twice", domain.ErrInvalidInput, name)
	}
	r.builders[name] = builder
	return nil
}

func (r *Registry) Build(name string, opts Options) (driven.PostProcessor, error) {
	r.mu.RLock()
	builder, ok := r.builders[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown processor %q", domain.ErrInvalidInput, name)
	}
	return builder(opts)
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builders[name]
	return ok
}

// Names is sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildPipeline builds one stage per name in cfg.Processors, in order.
// Each name may appear once.
func (r *Registry) BuildPipeline(cfg domain.PipelineConfig) (*Pipeline, error) {
	if len(cfg.Processors) == 0 {
		return nil, fmt.Errorf("%w: pipeline has no processors", domain.ErrInvalidInput)
	}
	seen := make(map[string]bool, len(cfg.Processors))
	p := NewPipeline()
	for _, name := range cfg.Processors {
		if seen[name] {
			return nil, fmt.Errorf("%w: processor %q listed twice", domain.ErrInvalidInput, name)
		}
		seen[name] = true

		stage, err := r.Build(name, Options(cfg.GetProcessorConfig(name)))
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", name, err)
		}
		p.Add(stage)
	}
	return p, nil
}
