package driven

// PromptStore serves the system prompt templates used when answering.
type PromptStore interface {
	// Load returns the template called name.
	Load(name string) (string, error)

	// Reload drops cached templates so edits on disk take effect.
	Reload()
}

// Prompt names. Both templates take a single %s for the answer language.
const (
	// PromptRAGSystem frames an answer grounded in retrieved excerpts.
	PromptRAGSystem = "rag_system"

	// PromptConversationSystem is used when there is no vector store.
	PromptConversationSystem = "conversation_system"
)
