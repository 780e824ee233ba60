package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/secretary/plugin/ai/tool"
	"github.com/hrygo/secretary/store"
)

const (
	negotiationSlots     = 3
	negotiationDaysAhead = 7
)

var (
	slotHours = []int{10, 14, 16}
	dayNames  = []string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}
)

// NegotiationHandler proposes meeting slots to an external attendee and tracks the negotiation.
type NegotiationHandler struct {
	deps  Deps
	tools []*tool.Tool
}

func NewNegotiationHandler(deps Deps) *NegotiationHandler {
	h := &NegotiationHandler{deps: deps}
	h.tools = []*tool.Tool{
		tool.New("start_negotiation", "Propose meeting slots to a contact.",
			viaTool(deps, h.Process, nil),
			tool.WithParam("attendee", "string", "Contact name", true),
			tool.WithParam("topic", "string", "Meeting topic", false),
		),
		tool.New("get_negotiation_status", "Status of negotiations with a contact.",
			viaTool(deps, h.status, nil),
			tool.WithParam("attendee", "string", "Contact name", false),
		),
		tool.New("cancel_negotiation", "Cancel the open negotiation with a contact.",
			viaTool(deps, h.cancel, nil),
			tool.WithParam("attendee", "string", "Contact name", true),
		),
	}
	return h
}

func (*NegotiationHandler) ID() string { return "schedule_meeting" }

func (*NegotiationHandler) Info() Info {
	return Info{ID: "schedule_meeting", Name: "Согласование встреч", Description: "Организовать встречу с контактом: предложить время и договориться", Icon: "🤝"}
}

func (*NegotiationHandler) Keywords() []string {
	return []string{"организуй встречу", "запланируй", "договорись о встрече", "согласуй время", "кездесу ұйымдастыр"}
}

func (*NegotiationHandler) Describe(locale string) string {
	if locale == "kz" {
		return `Контактімен кездесу ұйымдастыру. data: {"attendee": кіммен, "topic": тақырып}`
	}
	return `Организовать встречу с контактом: отправить ему варианты времени. data: {"attendee": с кем, "topic": тема}.
Пример: "Организуй встречу с Болатом по проекту" -> {"attendee": "Болат", "topic": "проект"}`
}

func (h *NegotiationHandler) Tools() []*tool.Tool { return h.tools }

// proposeSlots returns one business-hour slot per weekday, starting tomorrow.
func proposeSlots(now time.Time, count, daysAhead int) []time.Time {
	var slots []time.Time
	limit := now.AddDate(0, 0, daysAhead)
	for day := now.AddDate(0, 0, 1); len(slots) < count && !day.After(limit); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		for _, hour := range slotHours {
			slot := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
			if slot.After(now) {
				slots = append(slots, slot)
				break
			}
		}
	}
	return slots
}

func formatSlots(slots []time.Time) string {
	lines := make([]string, len(slots))
	for i, s := range slots {
		lines[i] = fmt.Sprintf("%d. %s %s в %s", i+1, dayNames[s.Weekday()], s.Format("02.01"), s.Format("15:04"))
	}
	return strings.Join(lines, "\n")
}

func (h *NegotiationHandler) Process(ctx context.Context, req *Request) (*Outcome, error) {
	attendee := req.Args.String("attendee")
	if attendee == "" {
		attendee = req.Args.String("contact_name")
	}
	if attendee == "" {
		return reject("С кем организовать встречу?"), nil
	}
	topic := req.Args.String("topic")
	if topic == "" {
		topic = req.Args.String("title")
	}
	if topic == "" {
		topic = "Встреча"
	}

	contact, err := lookupPhone(ctx, req.Queries, req.Scope.TenantID, attendee)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return reject("Контакт '%s' не найден. Добавьте его номер телефона.", attendee), nil
	}

	now := h.deps.now()
	slots := proposeSlots(now, negotiationSlots, negotiationDaysAhead)
	slotText := formatSlots(slots)
	negotiation, err := req.Queries.CreateNegotiation(ctx, &store.Negotiation{
		UID:       shortuuid.New(),
		TenantID:  req.Scope.TenantID,
		UserID:    req.Scope.UserID,
		Attendee:  contact.Name,
		Topic:     topic,
		Slots:     slotText,
		Status:    store.NegotiationInitiated,
		CreatedTs: now.Unix(),
		UpdatedTs: now.Unix(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create negotiation")
	}

	proposal := fmt.Sprintf("Здравствуйте, %s! 👋\n\nХочу организовать встречу с вами.\n📝 Тема: %s\n\nКакое время удобно?\n%s\n\nНапишите номер или предложите другое время.",
		contact.Name, topic, slotText)
	if _, err := req.Queries.CreateOutboxMessage(ctx, &store.OutboxMessage{
		UID:       shortuuid.New(),
		TenantID:  req.Scope.TenantID,
		UserID:    req.Scope.UserID,
		Recipient: contact.Name,
		Phone:     toMessagingPhone(contact.Phone),
		Content:   proposal,
		Status:    store.OutboxStatusPending,
		CreatedTs: now.Unix(),
	}); err != nil {
		return nil, errors.Wrap(err, "failed to queue proposal")
	}

	if err := req.Queries.UpdateNegotiation(ctx, &store.UpdateNegotiation{
		ID:        negotiation.ID,
		TenantID:  negotiation.TenantID,
		Status:    store.NegotiationSlotsSent,
		UpdatedTs: now.Unix(),
	}); err != nil {
		return nil, errors.Wrap(err, "failed to update negotiation")
	}

	out := success("🤝 Отправил предложение %s с %d вариантами времени:\n%s", contact.Name, len(slots), slotText)
	out.Data = map[string]any{"id": negotiation.UID, "status": string(store.NegotiationSlotsSent)}
	return out, nil
}

var negotiationStatusNames = map[store.NegotiationStatus]string{
	store.NegotiationInitiated:       "создано",
	store.NegotiationSlotsSent:       "варианты отправлены",
	store.NegotiationWaitingResponse: "ждём ответа",
	store.NegotiationNegotiating:     "обсуждаем время",
	store.NegotiationConfirmed:       "подтверждено",
	store.NegotiationCancelled:       "отменено",
}

func (h *NegotiationHandler) status(ctx context.Context, req *Request) (*Outcome, error) {
	find := &store.FindNegotiation{TenantID: req.Scope.TenantID}
	if attendee := req.Args.String("attendee"); attendee != "" {
		find.Attendee = &attendee
	}
	list, err := req.Queries.ListNegotiations(ctx, find)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list negotiations")
	}
	if len(list) == 0 {
		return success("Активных согласований нет."), nil
	}
	lines := make([]string, 0, len(list))
	for _, n := range list {
		lines = append(lines, fmt.Sprintf("• %s (%s): %s", n.Attendee, n.Topic, negotiationStatusNames[n.Status]))
	}
	return success("🤝 Согласования:\n%s", strings.Join(lines, "\n")), nil
}

func (h *NegotiationHandler) cancel(ctx context.Context, req *Request) (*Outcome, error) {
	attendee := req.Args.String("attendee")
	list, err := req.Queries.ListNegotiations(ctx, &store.FindNegotiation{TenantID: req.Scope.TenantID, Attendee: &attendee})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list negotiations")
	}
	for _, n := range list {
		if !n.Status.CanTransitionTo(store.NegotiationCancelled) {
			continue
		}
		if err := req.Queries.UpdateNegotiation(ctx, &store.UpdateNegotiation{
			ID:        n.ID,
			TenantID:  n.TenantID,
			Status:    store.NegotiationCancelled,
			UpdatedTs: h.deps.now().Unix(),
		}); err != nil {
			return nil, errors.Wrap(err, "failed to cancel negotiation")
		}
		return success("❎ Согласование с %s отменено.", n.Attendee), nil
	}
	return reject("Открытых согласований с %s нет.", attendee), nil
}
