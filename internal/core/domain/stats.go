package domain

// Stats summarises the running system for one conversation.
type Stats struct {
	Model          string `json:"model"`
	EmbeddingModel string `json:"embedding_model"`
	ChunkSize      int    `json:"chunk_size"`
	TopK           int    `json:"top_k"`
	HasVectorStore bool   `json:"has_vector_store"`
	MemoryMessages int    `json:"memory_messages"`

	// VectorStoreDocuments is the total chunk count.
	VectorStoreDocuments int `json:"vector_store_documents"`

	// AvailableDocuments is the number of distinct documents.
	AvailableDocuments int    `json:"available_documents"`
	CurrentSessionID   string `json:"current_session_id,omitempty"`
}
