package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// Rule names reported in a Resolution.
const (
	RuleListDocuments  = "list_documents"
	RuleCurrentSession = "current_session"
	RulePermanent      = "permanent"
	RuleRecency        = "recency_default"
	RuleAllDocuments   = "all_documents"
)

// intentRule is one step of the ordered resolution. The first rule whose
// match returns true decides the intent and scope.
type intentRule struct {
	name    string
	match   func(question string, p *domain.IntentPatterns, hasSession bool) bool
	resolve func(current string) domain.Resolution
}

var intentRules = []intentRule{
	{
		name: RuleListDocuments,
		match: func(q string, p *domain.IntentPatterns, _ bool) bool {
			return containsAny(q, p.ListDocuments)
		},
		resolve: func(string) domain.Resolution {
			return domain.Resolution{Intent: domain.IntentListDocuments, Scope: domain.AllDocuments()}
		},
	},
	{
		// Resolves to the current session even when none is active; retrieval is then empty.
		name: RuleCurrentSession,
		match: func(q string, p *domain.IntentPatterns, _ bool) bool {
			return containsAny(q, p.CurrentSession)
		},
		resolve: func(current string) domain.Resolution {
			return domain.Resolution{Intent: domain.IntentAnswer, Scope: domain.SessionDocuments(current)}
		},
	},
	{
		name: RulePermanent,
		match: func(q string, p *domain.IntentPatterns, _ bool) bool {
			return containsAny(q, p.Permanent)
		},
		resolve: func(string) domain.Resolution {
			return domain.Resolution{Intent: domain.IntentAnswer, Scope: domain.PermanentDocuments()}
		},
	},
	{
		name: RuleRecency,
		match: func(_ string, _ *domain.IntentPatterns, hasSession bool) bool {
			return hasSession
		},
		resolve: func(current string) domain.Resolution {
			return domain.Resolution{Intent: domain.IntentAnswer, Scope: domain.SessionDocuments(current)}
		},
	},
	{
		name:  RuleAllDocuments,
		match: func(string, *domain.IntentPatterns, bool) bool { return true },
		resolve: func(string) domain.Resolution {
			return domain.Resolution{Intent: domain.IntentAnswer, Scope: domain.AllDocuments()}
		},
	},
}

// IntentResolver classifies questions with lexical pattern rules.
// Patterns may be replaced at runtime (see LoadRules and WatchRules).
type IntentResolver struct {
	mu       sync.RWMutex
	base     domain.IntentPatterns
	patterns domain.IntentPatterns
}

// NewIntentResolver creates a resolver over the given patterns.
func NewIntentResolver(patterns domain.IntentPatterns) *IntentResolver {
	r := &IntentResolver{base: patterns}
	r.setPatterns(patterns)
	return r
}

// Resolve returns the intent and scope for question. current is the
// conversation's active session, or "" when there is none.
func (r *IntentResolver) Resolve(question, current string) domain.Resolution {
	q := NormaliseQuestion(question)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rule := range intentRules {
		if rule.match(q, &r.patterns, current != "") {
			res := rule.resolve(current)
			res.Rule = rule.name
			return res
		}
	}
	// Unreachable: the last rule always matches.
	return domain.Resolution{Intent: domain.IntentAnswer, Scope: domain.AllDocuments(), Rule: RuleAllDocuments}
}

// Patterns returns the patterns in use, in normalised form.
func (r *IntentResolver) Patterns() domain.IntentPatterns {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.patterns
}

// LoadRules reads a YAML rules file. Lists present in the file replace the
// configured ones; absent lists keep them.
func (r *IntentResolver) LoadRules(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read intent rules: %w", err)
	}
	var file domain.IntentPatterns
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("%w: intent rules %s: %w", domain.ErrInvalidInput, path, err)
	}

	merged := r.base
	if len(file.ListDocuments) > 0 {
		merged.ListDocuments = file.ListDocuments
	}
	if len(file.CurrentSession) > 0 {
		merged.CurrentSession = file.CurrentSession
	}
	if len(file.Permanent) > 0 {
		merged.Permanent = file.Permanent
	}
	r.setPatterns(merged)
	logger.Info("Loaded intent rules from %s", path)
	return nil
}

// WatchRules loads path and reloads it whenever it changes, until ctx is done.
// A rules file that fails to parse is logged and the previous patterns stay in use.
func (r *IntentResolver) WatchRules(ctx context.Context, path string) error {
	if err := r.LoadRules(path); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create rules watcher: %w", err)
	}
	// Watch the directory: editors often replace the file rather than write it.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	target := filepath.Clean(path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := r.LoadRules(path); err != nil {
					logger.Warn("Keeping previous intent rules: %v", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Intent rules watcher: %v", err)
			}
		}
	}()
	return nil
}

func (r *IntentResolver) setPatterns(p domain.IntentPatterns) {
	normalised := domain.IntentPatterns{
		ListDocuments:  normaliseAll(p.ListDocuments),
		CurrentSession: normaliseAll(p.CurrentSession),
		Permanent:      normaliseAll(p.Permanent),
	}
	r.mu.Lock()
	r.patterns = normalised
	r.mu.Unlock()
}

// NormaliseQuestion lowercases text, strips accents and collapses whitespace
// so "Résumé  du DOCUMENT" and "resume du document" match the same patterns.
func NormaliseQuestion(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

func normaliseAll(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if n := NormaliseQuestion(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func containsAny(q string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}
