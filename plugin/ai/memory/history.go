package memory

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/plugin/ai"
	"github.com/hrygo/secretary/store"
)

// History persists chat turns and serves recent ones from the short-term window.
type History struct {
	store     Store
	shortTerm *ShortTermMemory
	now       func() time.Time
}

func NewHistory(s Store, shortTerm *ShortTermMemory) *History {
	return &History{store: s, shortTerm: shortTerm, now: time.Now}
}

func (h *History) RecentTurns(ctx context.Context, tenantID string, limit int) ([]ai.Message, error) {
	if limit <= h.shortTerm.MaxSize() {
		if msgs, ok := h.shortTerm.GetMessages(tenantID, limit); ok {
			return msgs, nil
		}
	}

	loadLimit := max(limit, h.shortTerm.MaxSize())
	list, err := h.store.ListChatMessages(ctx, &store.FindChatMessage{TenantID: tenantID, Limit: loadLimit})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chat messages")
	}
	msgs := make([]ai.Message, len(list))
	for i, m := range list {
		msgs[i] = ai.Message{Role: string(m.Role), Content: m.Content}
	}
	h.shortTerm.Load(tenantID, msgs)

	if limit > 0 && limit < len(msgs) {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (h *History) Append(ctx context.Context, tenantID, userID, role, content string, intents ...string) error {
	if _, err := h.store.CreateChatMessage(ctx, &store.ChatMessage{
		TenantID:  tenantID,
		UserID:    userID,
		Role:      store.ChatRole(role),
		Content:   content,
		Intents:   strings.Join(intents, ","),
		CreatedTs: h.now().Unix(),
	}); err != nil {
		// The insert may have landed before the error surfaced; reload the window from storage.
		h.shortTerm.ClearSession(tenantID)
		return errors.Wrap(err, "failed to append chat message")
	}
	h.shortTerm.AddMessage(tenantID, ai.Message{Role: role, Content: content})
	return nil
}
