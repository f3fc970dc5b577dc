package postprocessors

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// stage is a scripted post-processor that records how often it ran.
type stage struct {
	name  string
	apply func([]domain.Chunk) []domain.Chunk
	err   error
	runs  int
}

func (s *stage) Name() string { return s.name }

func (s *stage) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	s.runs++
	if s.err != nil {
		return nil, s.err
	}
	if chunks == nil {
		for i, part := range strings.Split(doc.Content, "|") {
			chunks = append(chunks, domain.Chunk{Content: part, Position: i})
		}
	}
	if s.apply != nil {
		return s.apply(chunks), nil
	}
	return chunks, nil
}

func dropShort(chunks []domain.Chunk) []domain.Chunk {
	var out []domain.Chunk
	for _, c := range chunks {
		if len(c.Content) > 3 {
			out = append(out, c)
		}
	}
	return out
}

func TestPipeline_RunsStagesInOrder(t *testing.T) {
	split := &stage{name: "split"}
	filter := &stage{name: "filter", apply: dropShort}
	p := NewPipeline(split, filter)

	chunks, err := p.Process(context.Background(), &domain.Document{Title: "t", Content: "alpha|be|gamma"})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].Content != "gamma" || chunks[1].Position != 2 {
		t.Errorf("unexpected chunk %+v", chunks[1])
	}
}

func TestPipeline_StopsWhenNothingLeft(t *testing.T) {
	split := &stage{name: "split"}
	filter := &stage{name: "filter", apply: dropShort}
	after := &stage{name: "fingerprint"}
	p := NewPipeline(split, filter, after)

	chunks, err := p.Process(context.Background(), &domain.Document{Content: "a|b"})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
	if after.runs != 0 {
		t.Errorf("stage after an empty result should not run")
	}
}

func TestPipeline_WrapsStageErrors(t *testing.T) {
	boom := errors.New("boom")
	p := NewPipeline(&stage{name: "split"}, &stage{name: "broken", err: boom})

	_, err := p.Process(context.Background(), &domain.Document{Content: "text"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "broken: ") {
		t.Errorf("error should name the stage: %v", err)
	}
}

func TestPipeline_HonoursCancellation(t *testing.T) {
	split := &stage{name: "split"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPipeline(split).Process(ctx, &domain.Document{Content: "text"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if split.runs != 0 {
		t.Error("no stage should run after cancellation")
	}
}

func TestPipeline_NilDocument(t *testing.T) {
	if _, err := NewPipeline().Process(context.Background(), nil); err == nil {
		t.Error("expected error for nil document")
	}
}

func TestPipeline_EmptyReturnsNoChunks(t *testing.T) {
	chunks, err := NewPipeline().Process(context.Background(), &domain.Document{Content: "x"})
	if err != nil || chunks != nil {
		t.Errorf("expected nil, nil; got %v, %v", chunks, err)
	}
}

func TestPipeline_Stages(t *testing.T) {
	p := NewPipeline(&stage{name: "split"})
	p.Add(&stage{name: "filter"})

	if got := strings.Join(p.Stages(), ","); got != "split,filter" {
		t.Errorf("unexpected stages %q", got)
	}
}
