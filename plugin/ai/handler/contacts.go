package handler

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/secretary/plugin/ai/tool"
	"github.com/hrygo/secretary/store"
)

var nonPhoneChars = regexp.MustCompile(`[^\d+]`)

// NormalizePhone keeps digits and the plus sign.
func NormalizePhone(phone string) string {
	return nonPhoneChars.ReplaceAllString(phone, "")
}

// ContactsHandler keeps the address book.
type ContactsHandler struct {
	deps  Deps
	tools []*tool.Tool
}

func NewContactsHandler(deps Deps) *ContactsHandler {
	h := &ContactsHandler{deps: deps}
	h.tools = []*tool.Tool{
		tool.New("create_contact", "Save a contact.",
			viaTool(deps, h.Process, tool.Args{"action": "create"}),
			tool.WithParam("name", "string", "Contact name", true),
			tool.WithParam("phone", "string", "Phone number", true),
		),
		tool.New("get_all_contacts", "List all contacts.",
			viaTool(deps, h.Process, tool.Args{"action": "list"}),
		),
		tool.New("find_contact", "Find contacts by name.",
			viaTool(deps, h.Process, tool.Args{"action": "find"}),
			tool.WithParam("name", "string", "Part of the contact name", true),
		),
	}
	return h
}

func (*ContactsHandler) ID() string { return "contacts" }

func (*ContactsHandler) Info() Info {
	return Info{ID: "contacts", Name: "Контакты", Description: "Записная книжка", Icon: "👥"}
}

func (*ContactsHandler) Keywords() []string {
	return []string{
		"контакт", "добавь контакт", "сохрани контакт", "номер", "телефон",
		"байланыс", "байланыс қос", "нөмір",
		"contact", "phone", "save contact", "сколько контактов", "қанша байланыс",
	}
}

func (*ContactsHandler) Describe(locale string) string {
	if locale == "kz" {
		return `Байланыстар. data: {"action": "create"|"list"|"count"|"find", "name", "phone"}`
	}
	return `Контакты. data: {"action": "create"|"list"|"count"|"find", "name": имя, "phone": номер}.
Пример: "Сохрани контакт Болат +77011234567" -> {"action": "create", "name": "Болат", "phone": "+77011234567"}`
}

func (h *ContactsHandler) Tools() []*tool.Tool { return h.tools }

func (h *ContactsHandler) Process(ctx context.Context, req *Request) (*Outcome, error) {
	switch strings.ToLower(req.Args.String("action")) {
	case "list":
		return h.list(ctx, req)
	case "count":
		contacts, err := req.Queries.ListContacts(ctx, &store.FindContact{TenantID: req.Scope.TenantID})
		if err != nil {
			return nil, errors.Wrap(err, "failed to list contacts")
		}
		return success("📊 Всего у вас %d контактов.", len(contacts)), nil
	case "find", "search":
		return h.find(ctx, req)
	default:
		return h.create(ctx, req)
	}
}

func (h *ContactsHandler) create(ctx context.Context, req *Request) (*Outcome, error) {
	name := req.Args.String("name")
	if name == "" {
		if req.Scope.Locale == "kz" {
			return reject("Контакттың атын көрсетіңіз."), nil
		}
		return reject("Укажите имя контакта."), nil
	}
	phone := NormalizePhone(req.Args.String("phone"))
	if phone == "" {
		return reject("Укажите номер телефона для %s.", name), nil
	}

	existing, err := req.Queries.ListContacts(ctx, &store.FindContact{TenantID: req.Scope.TenantID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list contacts")
	}
	for _, c := range existing {
		if c.Phone == phone {
			return reject("Контакт с таким номером уже существует."), nil
		}
	}

	contact, err := req.Queries.CreateContact(ctx, &store.Contact{
		UID:       shortuuid.New(),
		TenantID:  req.Scope.TenantID,
		Name:      name,
		Phone:     phone,
		CreatedTs: h.deps.now().Unix(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create contact")
	}
	out := success("👥 Контакт сохранён:\n📌 %s\n📱 %s", name, phone)
	out.Data = map[string]any{"id": contact.UID, "name": name, "phone": phone}
	return out, nil
}

func formatContacts(contacts []*store.Contact) string {
	lines := make([]string, 0, len(contacts))
	for _, c := range contacts {
		lines = append(lines, fmt.Sprintf("• %s: %s", c.Name, c.Phone))
	}
	return strings.Join(lines, "\n")
}

func (h *ContactsHandler) list(ctx context.Context, req *Request) (*Outcome, error) {
	contacts, err := req.Queries.ListContacts(ctx, &store.FindContact{TenantID: req.Scope.TenantID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list contacts")
	}
	if len(contacts) == 0 {
		return success("Контактов пока нет."), nil
	}
	return success("📋 Контакты (%d):\n%s", len(contacts), formatContacts(contacts)), nil
}

func (h *ContactsHandler) find(ctx context.Context, req *Request) (*Outcome, error) {
	name := req.Args.String("name")
	if name == "" {
		return reject("Укажите имя контакта для поиска."), nil
	}
	contacts, err := req.Queries.ListContacts(ctx, &store.FindContact{TenantID: req.Scope.TenantID, Name: &name})
	if err != nil {
		return nil, errors.Wrap(err, "failed to find contacts")
	}
	if len(contacts) == 0 {
		return success("Контакт '%s' не найден.", name), nil
	}
	return success("📋 Найденные контакты (%d):\n%s", len(contacts), formatContacts(contacts)), nil
}

// lookupPhone returns the first contact with a phone whose name contains name. Declined
// forms ("Асхату", "Асхатом") are retried with one or two trailing letters cut.
func lookupPhone(ctx context.Context, q store.Queries, tenantID, name string) (*store.Contact, error) {
	runes := []rune(strings.TrimSpace(name))
	for cut := 0; cut <= 2 && len(runes)-cut >= 3; cut++ {
		candidate := string(runes[:len(runes)-cut])
		contacts, err := q.ListContacts(ctx, &store.FindContact{TenantID: tenantID, Name: &candidate})
		if err != nil {
			return nil, errors.Wrap(err, "failed to find contact")
		}
		for _, c := range contacts {
			if c.Phone != "" {
				return c, nil
			}
		}
	}
	return nil, nil
}
