package handler

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/plugin/ai"
	"github.com/hrygo/secretary/plugin/ai/timeout"
	"github.com/hrygo/secretary/plugin/ai/tool"
)

const generalSystemPrompt = `Ты персональный секретарь предпринимателя. Отвечай кратко и по делу, на языке пользователя.`

// GeneralHandler answers small talk and general questions.
type GeneralHandler struct {
	deps  Deps
	tools []*tool.Tool
}

func NewGeneralHandler(deps Deps) *GeneralHandler {
	h := &GeneralHandler{deps: deps}
	h.tools = []*tool.Tool{
		tool.New("search", "Answer a question or look up public information such as a phone number.",
			h.search,
			tool.WithParam("query", "string", "What to look up", true),
			tool.WithTimeout(timeout.AgentTurnTimeout),
		),
	}
	return h
}

func (*GeneralHandler) ID() string { return "general" }

func (*GeneralHandler) Info() Info {
	return Info{ID: "general", Name: "Общение", Description: "Вопросы и разговор, не относящиеся к другим модулям", Icon: "💭"}
}

func (*GeneralHandler) Keywords() []string { return nil }

func (*GeneralHandler) Describe(locale string) string {
	if locale == "kz" {
		return `Жалпы сұрақтар мен әңгіме. data: {}`
	}
	return `Общие вопросы и разговор, если ни один другой модуль не подходит. data: {}`
}

func (h *GeneralHandler) Tools() []*tool.Tool { return h.tools }

func (h *GeneralHandler) Process(ctx context.Context, req *Request) (*Outcome, error) {
	message := req.Args.String("original_message")
	if h.deps.LLM == nil || message == "" {
		return success("Я вас слушаю! Чем могу помочь?"), nil
	}
	system := generalSystemPrompt
	if rag := req.Args.String("rag_context"); rag != "" {
		system += "\n\nИз памяти:\n" + rag
	}
	answer, err := h.ask(ctx, system, message)
	if err != nil {
		return nil, err
	}
	return success("%s", answer), nil
}

func (h *GeneralHandler) ask(ctx context.Context, system, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout.AgentTurnTimeout)
	defer cancel()
	resp, err := h.deps.LLM.Chat(ctx, &ai.ChatRequest{
		System:   system,
		Messages: []ai.Message{{Role: ai.RoleUser, Content: message}},
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to get answer")
	}
	return strings.TrimSpace(resp.Text), nil
}

func (h *GeneralHandler) search(ctx context.Context, _ tool.Scope, args tool.Args) (tool.Result, error) {
	if h.deps.LLM == nil {
		return tool.Failure("Поиск недоступен"), nil
	}
	answer, err := h.ask(ctx, generalSystemPrompt+" Если спрашивают номер телефона, укажи его полностью.", args.String("query"))
	if err != nil {
		return nil, err
	}
	return tool.Reply("%s", answer), nil
}
