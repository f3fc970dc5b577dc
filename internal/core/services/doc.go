// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Conversation state (the current upload session and memory) is held in a
// SessionRegistry shared by the answer, ingest, session and document services.
// The IndexService pairs the vector index with its embedding model and is nil
// when no vector store is configured.
package services
