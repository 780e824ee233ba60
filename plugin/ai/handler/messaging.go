package handler

import (
	"context"
	"strings"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/secretary/plugin/ai/tool"
	"github.com/hrygo/secretary/store"
)

// MessagingHandler queues outbound messages for the messaging-platform adapter.
type MessagingHandler struct {
	deps  Deps
	tools []*tool.Tool
}

func NewMessagingHandler(deps Deps) *MessagingHandler {
	h := &MessagingHandler{deps: deps}
	h.tools = []*tool.Tool{
		tool.New("send_message", "Send a message to a contact.",
			viaTool(deps, h.Process, nil),
			tool.WithParam("recipient", "string", "Contact name", true),
			tool.WithParam("content", "string", "Message text", true),
		),
	}
	return h
}

func (*MessagingHandler) ID() string { return "messaging" }

func (*MessagingHandler) Info() Info {
	return Info{ID: "messaging", Name: "Сообщения", Description: "Отправка сообщений контактам", Icon: "💬"}
}

func (*MessagingHandler) Keywords() []string {
	return []string{
		"напиши", "отправь", "скажи", "сообщение", "whatsapp", "ватсап", "уатсап",
		"жаз", "жібер", "хабарлама",
		"write", "send", "message",
	}
}

func (*MessagingHandler) Describe(locale string) string {
	if locale == "kz" {
		return `Хабарлама жіберу. data: {"recipient": кімге, "content": мәтін}`
	}
	return `Отправка сообщения контакту. data: {"recipient": имя получателя, "content": текст сообщения}.
Пример: "Напиши Асхату что опоздаю" -> {"recipient": "Асхат", "content": "Опоздаю"}`
}

func (h *MessagingHandler) Tools() []*tool.Tool { return h.tools }

func (h *MessagingHandler) Process(ctx context.Context, req *Request) (*Outcome, error) {
	recipient := req.Args.String("recipient")
	if recipient == "" {
		recipient = req.Args.String("name")
	}
	if recipient == "" {
		return reject("Укажите имя контакта"), nil
	}
	content := req.Args.String("content")
	if content == "" {
		content = req.Args.String("message")
	}
	if content == "" {
		return reject("Укажите текст сообщения"), nil
	}

	phone := NormalizePhone(req.Args.String("phone"))
	if phone == "" {
		contact, err := lookupPhone(ctx, req.Queries, req.Scope.TenantID, recipient)
		if err != nil {
			return nil, err
		}
		if contact == nil {
			return reject("Контакт '%s' не найден", recipient), nil
		}
		recipient, phone = contact.Name, contact.Phone
	}

	msg, err := req.Queries.CreateOutboxMessage(ctx, &store.OutboxMessage{
		UID:       shortuuid.New(),
		TenantID:  req.Scope.TenantID,
		UserID:    req.Scope.UserID,
		Recipient: recipient,
		Phone:     toMessagingPhone(phone),
		Content:   content,
		Status:    store.OutboxStatusPending,
		CreatedTs: h.deps.now().Unix(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to queue message")
	}
	out := success("✅ Сообщение отправлено %s:\n\n\"%s\"", recipient, content)
	out.Data = map[string]any{"id": msg.UID, "phone": msg.Phone}
	return out, nil
}

// toMessagingPhone converts a local 8XXXXXXXXXX number into the international 7XXXXXXXXXX form.
func toMessagingPhone(phone string) string {
	digits := strings.TrimPrefix(phone, "+")
	if len(digits) == 11 && strings.HasPrefix(digits, "8") {
		digits = "7" + digits[1:]
	}
	return digits
}
