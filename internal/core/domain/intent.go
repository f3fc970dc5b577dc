package domain

// Intent is the classified purpose of a question.
type Intent string

// Available intents.
const (
	// IntentListDocuments asks what is indexed. No language model is needed.
	IntentListDocuments Intent = "list_documents"

	// IntentAnswer asks for an answer grounded in retrieved context.
	IntentAnswer Intent = "answer"
)

// Resolution is the outcome of intent resolution for one question.
type Resolution struct {
	Intent Intent
	Scope  Scope

	// Rule names the rule that matched, for logging and tests.
	Rule string
}

// IntentPatterns holds the lexical pattern sets used by the intent rules.
// Patterns are matched as case-insensitive substrings.
type IntentPatterns struct {
	ListDocuments  []string `yaml:"list_documents"`
	CurrentSession []string `yaml:"current_session"`
	Permanent      []string `yaml:"permanent"`
}

// DefaultIntentPatterns returns the built-in English and French patterns.
func DefaultIntentPatterns() IntentPatterns {
	return IntentPatterns{
		ListDocuments: []string{
			"what documents", "which documents", "list documents", "list the documents",
			"list all documents", "available documents", "documents available",
			"show documents", "show me the documents", "what files", "which files",
			"quels documents", "liste des documents", "lister les documents",
			"documents disponibles",
		},
		CurrentSession: []string{
			"current session", "just uploaded", "i uploaded", "i just sent",
			"recent upload", "latest upload", "uploaded document", "uploaded file",
			"new document", "que je viens", "document uploadé", "fichier uploadé",
			"session actuelle", "nouveau document",
		},
		Permanent: []string{
			"permanent", "knowledge base", "source documents", "existing documents",
			"base de connaissances", "documents permanents", "documents sources",
		},
	}
}
