package domain

// ScopeKind identifies which part of the index a question may draw from.
type ScopeKind string

// Available scope kinds.
const (
	// ScopeAll covers every indexed chunk.
	ScopeAll ScopeKind = "all_documents"

	// ScopeSession covers chunks tagged with a single upload session.
	ScopeSession ScopeKind = "current_session"

	// ScopePermanent covers chunks with no session tag.
	ScopePermanent ScopeKind = "permanent"
)

// Scope is a predicate over chunk session tags.
type Scope struct {
	Kind ScopeKind

	// SessionTag is only meaningful for ScopeSession.
	SessionTag string
}

// AllDocuments returns the unrestricted scope.
func AllDocuments() Scope {
	return Scope{Kind: ScopeAll}
}

// PermanentDocuments returns the scope of untagged chunks.
func PermanentDocuments() Scope {
	return Scope{Kind: ScopePermanent}
}

// SessionDocuments returns the scope of chunks tagged with the given session.
// An empty tag yields a scope that matches nothing.
func SessionDocuments(tag string) Scope {
	return Scope{Kind: ScopeSession, SessionTag: tag}
}

// Matches reports whether a chunk with the given session tag is in scope.
func (s Scope) Matches(tag string) bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopePermanent:
		return tag == ""
	case ScopeSession:
		return s.SessionTag != "" && tag == s.SessionTag
	default:
		return false
	}
}

// IsEmpty reports whether the scope can never match a chunk.
func (s Scope) IsEmpty() bool {
	switch s.Kind {
	case ScopeAll, ScopePermanent:
		return false
	case ScopeSession:
		return s.SessionTag == ""
	default:
		return true
	}
}

// Label returns a human-readable description of the scope.
func (s Scope) Label() string {
	switch s.Kind {
	case ScopeAll:
		return "all documents"
	case ScopePermanent:
		return "permanent documents"
	case ScopeSession:
		if s.SessionTag == "" {
			return "current session (none active)"
		}
		return "current session " + s.SessionTag
	default:
		return string(s.Kind)
	}
}
