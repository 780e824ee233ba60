package memory

import (
	"context"
	"log/slog"

	"github.com/hrygo/secretary/plugin/ai"
)

// Service implements MemoryService and HistoryService with a two-layer architecture.
// - Short-term: in-memory sliding window of recent turns per tenant
// - Long-term: stored exchanges recalled by embedding similarity or keywords
type Service struct {
	shortTerm *ShortTermMemory
	history   *History
	longTerm  *LongTermMemory
}

// NewService creates a memory service.
// embedder: optional, keyword recall is used without it
// maxShortTermMessages: window size per tenant (default 20)
func NewService(s Store, embedder ai.EmbeddingService, maxShortTermMessages int) *Service {
	shortTerm := NewShortTermMemory(maxShortTermMessages)
	if embedder == nil {
		slog.Warn("memory service initialized without embeddings (keyword recall only)")
	}
	return &Service{
		shortTerm: shortTerm,
		history:   NewHistory(s, shortTerm),
		longTerm:  NewLongTermMemory(s, embedder),
	}
}

// Close releases resources held by the service.
func (s *Service) Close() {
	s.shortTerm.Close()
}

func (s *Service) RetrieveContext(ctx context.Context, tenantID, query string, maxLength int) string {
	return s.longTerm.RetrieveContext(ctx, tenantID, query, maxLength)
}

func (s *Service) StoreExchange(ctx context.Context, tenantID, userID, input, output string) error {
	return s.longTerm.StoreExchange(ctx, tenantID, userID, input, output)
}

func (s *Service) RecentTurns(ctx context.Context, tenantID string, limit int) ([]ai.Message, error) {
	return s.history.RecentTurns(ctx, tenantID, limit)
}

func (s *Service) Append(ctx context.Context, tenantID, userID, role, content string, intents ...string) error {
	return s.history.Append(ctx, tenantID, userID, role, content, intents...)
}

var (
	_ MemoryService  = (*Service)(nil)
	_ HistoryService = (*Service)(nil)
)
