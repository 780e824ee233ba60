package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/plugin/ai"
	"github.com/hrygo/secretary/plugin/ai/timeout"
	"github.com/hrygo/secretary/store"
)

const (
	recallLimit    = 5
	minRecallScore = 0.3
	maxQueryTerms  = 8
	entrySeparator = "\n---\n"
)

// LongTermMemory stores exchanges and recalls them by vector similarity, or by keywords
// when no embedding service is configured.
type LongTermMemory struct {
	store    Store
	embedder ai.EmbeddingService
	now      func() time.Time
}

// NewLongTermMemory creates a long-term memory. embedder may be nil.
func NewLongTermMemory(s Store, embedder ai.EmbeddingService) *LongTermMemory {
	return &LongTermMemory{store: s, embedder: embedder, now: time.Now}
}

// RetrieveContext never fails; errors are logged and yield an empty string.
func (l *LongTermMemory) RetrieveContext(ctx context.Context, tenantID, query string, maxLength int) string {
	if strings.TrimSpace(query) == "" {
		return ""
	}

	var contents []string
	if l.embedder != nil {
		found, err := l.searchByVector(ctx, tenantID, query)
		if err != nil {
			slog.Warn("vector recall failed, falling back to keywords", "tenant_id", tenantID, "error", err)
		}
		contents = found
	}
	if len(contents) == 0 {
		found, err := l.searchByKeywords(ctx, tenantID, query)
		if err != nil {
			slog.Warn("keyword recall failed", "tenant_id", tenantID, "error", err)
			return ""
		}
		contents = found
	}

	text := strings.Join(contents, entrySeparator)
	if maxLength > 0 {
		if runes := []rune(text); len(runes) > maxLength {
			text = string(runes[:maxLength])
		}
	}
	return text
}

func (l *LongTermMemory) searchByVector(ctx context.Context, tenantID, query string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout.EmbeddingTimeout)
	defer cancel()

	vec, err := l.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed query")
	}
	results, err := l.store.SearchMemoryEntries(ctx, &store.SearchMemoryEntry{
		TenantID:  tenantID,
		Embedding: vec,
		Limit:     recallLimit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to search memory")
	}
	var contents []string
	for _, r := range results {
		if r.Score >= minRecallScore {
			contents = append(contents, r.Entry.Content)
		}
	}
	return contents, nil
}

func (l *LongTermMemory) searchByKeywords(ctx context.Context, tenantID, query string) ([]string, error) {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}
	entries, err := l.store.ListMemoryEntries(ctx, &store.FindMemoryEntry{
		TenantID: tenantID,
		Terms:    terms,
		Limit:    recallLimit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list memory")
	}
	contents := make([]string, len(entries))
	for i, e := range entries {
		contents[i] = e.Content
	}
	return contents, nil
}

// queryTerms keeps words of four or more letters, trimming long words to a crude stem
// so that inflected forms still match.
func queryTerms(query string) []string {
	seen := map[string]bool{}
	var terms []string
	for _, word := range strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		runes := []rune(word)
		if len(runes) < 4 {
			continue
		}
		if len(runes) > 5 {
			runes = runes[:len(runes)-2]
		}
		term := string(runes)
		if seen[term] {
			continue
		}
		seen[term] = true
		terms = append(terms, term)
		if len(terms) == maxQueryTerms {
			break
		}
	}
	return terms
}

// StoreExchange embeds when possible and always stores the text.
func (l *LongTermMemory) StoreExchange(ctx context.Context, tenantID, userID, input, output string) error {
	content := fmt.Sprintf("Пользователь: %s\nАссистент: %s", input, output)
	entry := &store.MemoryEntry{
		TenantID:  tenantID,
		UserID:    userID,
		Content:   content,
		CreatedTs: l.now().Unix(),
	}
	if l.embedder != nil {
		embedCtx, cancel := context.WithTimeout(ctx, timeout.EmbeddingTimeout)
		vec, err := l.embedder.Embed(embedCtx, content)
		cancel()
		if err != nil {
			slog.Warn("failed to embed exchange, storing text only", "tenant_id", tenantID, "error", err)
		} else {
			entry.Embedding = vec
		}
	}
	if _, err := l.store.CreateMemoryEntry(ctx, entry); err != nil {
		return errors.Wrap(err, "failed to store memory entry")
	}
	return nil
}
