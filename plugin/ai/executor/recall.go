package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hrygo/secretary/plugin/ai"
	"github.com/hrygo/secretary/plugin/ai/timeout"
	"github.com/hrygo/secretary/plugin/ai/tool"
)

const recallPrompt = `На основе найденной информации из памяти ответь на вопрос пользователя.

Вопрос: %s

Найденная информация:
%s

Ответь кратко и по делу, опираясь только на найденную информацию.`

// recall answers from memory without touching any handler.
func (e *Executor) recall(ctx context.Context, req *Request, args tool.Args) string {
	query := args.String("query")
	if query == "" {
		query = req.Message
	}

	excerpt := req.MemoryContext
	if excerpt == "" && e.memory != nil {
		excerpt = e.memory.RetrieveContext(ctx, req.Scope.TenantID, query, MaxMemoryContextLength)
	}
	if strings.TrimSpace(excerpt) == "" {
		return recallEmpty(req.Scope.Locale)
	}

	if e.llm != nil {
		llmCtx, cancel := context.WithTimeout(ctx, timeout.RecallRephraseTimeout)
		defer cancel()
		resp, err := e.llm.Chat(llmCtx, &ai.ChatRequest{
			Messages:    []ai.Message{{Role: ai.RoleUser, Content: fmt.Sprintf(recallPrompt, req.Message, excerpt)}},
			Temperature: 0.3,
		})
		if err == nil && resp != nil && strings.TrimSpace(resp.Text) != "" {
			return strings.TrimSpace(resp.Text)
		}
		slog.Warn("recall rephrase failed, returning raw excerpt", "tenant_id", req.Scope.TenantID, "error", err)
	}
	return recallRaw(excerpt, req.Scope.Locale)
}
