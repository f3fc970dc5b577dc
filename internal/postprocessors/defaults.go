package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/postprocessors/chunker"
	"github.com/custodia-labs/docsearch/internal/postprocessors/filter"
	"github.com/custodia-labs/docsearch/internal/postprocessors/fingerprint"
)

// Built-in stage names.
const (
	StageChunker     = "chunker"
	StageFilter      = "filter"
	StageFingerprint = "fingerprint"
)

var builtins = []struct {
	name  string
	build BuilderFunc
}{
	{StageChunker, buildChunker},
	{StageFilter, buildFilter},
	{StageFingerprint, func(Options) (driven.PostProcessor, error) { return fingerprint.New(), nil }},
}

// RegisterDefaults adds the built-in stages to r.
func RegisterDefaults(r *Registry) error {
	for _, b := range builtins {
		if err := r.Register(b.name, b.build); err != nil {
			return err
		}
	}
	return nil
}

// NewDefaultPipeline builds cfg from the built-in stages.
func NewDefaultPipeline(cfg domain.PipelineConfig) (*Pipeline, error) {
	r := NewRegistry()
	if err := RegisterDefaults(r); err != nil {
		return nil, err
	}
	return r.BuildPipeline(cfg)
}

// buildChunker reads chunk_size, overlap and separators.
func buildChunker(opts Options) (driven.PostProcessor, error) {
	var with []chunker.Option
	if size, ok := opts.Int("chunk_size"); ok && size > 0 {
		with = append(with, chunker.WithChunkSize(size))
	}
	if overlap, ok := opts.Int("overlap"); ok {
		if overlap < 0 {
			return nil, fmt.Errorf("%w: overlap must not be negative: %d", domain.ErrInvalidInput, overlap)
		}
		with = append(with, chunker.WithOverlap(overlap))
	}
	if seps, ok := opts.Strings("separators"); ok && len(seps) > 0 {
		with = append(with, chunker.WithSeparators(seps...))
	}
	return chunker.New(with...), nil
}

func buildFilter(opts Options) (driven.PostProcessor, error) {
	var with []filter.Option
	if n, ok := opts.Int("min_length"); ok {
		with = append(with, filter.WithMinLength(n))
	}
	return filter.New(with...), nil
}
