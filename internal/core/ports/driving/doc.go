// Package driving defines interfaces that external actors (HTTP, CLI, MCP) use
// to interact with core services. These are the "driving" ports in hexagonal
// architecture terminology - they drive the application.
//
// Every conversation-scoped operation takes the caller's conversation ID, which
// selects an isolated session context (current upload session and memory).
//
// Implementations of these interfaces live in internal/core/services.
package driving
