// Package memory provides conversation history and semantic recall for the assistant.
package memory

import (
	"context"

	"github.com/hrygo/secretary/plugin/ai"
	"github.com/hrygo/secretary/store"
)

// MemoryService is the semantic memory collaborator.
type MemoryService interface {
	// RetrieveContext returns remembered text relevant to query, at most maxLength runes
	// (no limit when maxLength <= 0). It returns an empty string on any internal failure.
	RetrieveContext(ctx context.Context, tenantID, query string, maxLength int) string

	// StoreExchange remembers one user input and the assistant reply.
	StoreExchange(ctx context.Context, tenantID, userID, input, output string) error
}

// HistoryService is the chat history collaborator.
type HistoryService interface {
	// RecentTurns returns up to limit newest turns, oldest first.
	RecentTurns(ctx context.Context, tenantID string, limit int) ([]ai.Message, error)

	// Append persists one turn. intents is recorded for assistant turns.
	Append(ctx context.Context, tenantID, userID, role, content string, intents ...string) error
}

// Store is the subset of the data layer memory needs.
type Store interface {
	CreateChatMessage(ctx context.Context, create *store.ChatMessage) (*store.ChatMessage, error)
	ListChatMessages(ctx context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error)
	CreateMemoryEntry(ctx context.Context, create *store.MemoryEntry) (*store.MemoryEntry, error)
	ListMemoryEntries(ctx context.Context, find *store.FindMemoryEntry) ([]*store.MemoryEntry, error)
	SearchMemoryEntries(ctx context.Context, search *store.SearchMemoryEntry) ([]*store.MemoryEntryWithScore, error)
}
