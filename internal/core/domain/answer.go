package domain

import "time"

// AnswerMode describes how an answer was produced.
type AnswerMode string

// Available answer modes.
const (
	// AnswerModeListing is a document listing produced without a model call.
	AnswerModeListing AnswerMode = "document_listing"

	// AnswerModeConversation is a model answer with memory only and no retrieval.
	AnswerModeConversation AnswerMode = "conversation_only"

	// AnswerModeRAG is a model answer grounded in retrieved chunks.
	AnswerModeRAG AnswerMode = "rag_with_documents"

	// AnswerModeError carries a human-readable failure explanation.
	AnswerModeError AnswerMode = "error"
)

// RetrievalResult is a single search hit. It is produced per query and never persisted.
type RetrievalResult struct {
	Chunk Chunk

	// Rank is the 1-based position in the result list.
	Rank int

	// Score is the cosine similarity to the query.
	Score float64
}

// Source is a citation attached to an answer.
type Source struct {
	// Text is the chunk excerpt, truncated for display.
	Text       string  `json:"text"`
	Filename   string  `json:"filename"`
	Source     string  `json:"source"`
	SourceType string  `json:"source_type"`
	SessionTag string  `json:"session_id,omitempty"`
	Page       int     `json:"page"`
	Rank       int     `json:"rank"`
	Score      float64 `json:"score"`
}

// Answer is the structured result of a question. It is always returned, even on failure.
type Answer struct {
	Answer   string     `json:"answer"`
	Sources  []Source   `json:"sources"`
	Question string     `json:"question"`
	Mode     AnswerMode `json:"mode"`

	// Context labels the scope the answer was drawn from.
	Context string `json:"context"`
}

// DefaultConversation is used when the caller supplies no conversation ID.
const DefaultConversation = "default"

// Exchange is one (question, answer) pair of conversational memory.
type Exchange struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"asked_at"`
}
