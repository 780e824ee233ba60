package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/secretary/internal/timezone"
	"github.com/hrygo/secretary/plugin/ai/tool"
	"github.com/hrygo/secretary/store"
)

const defaultMeetingMinutes = 60

// MeetingHandler manages the calendar.
type MeetingHandler struct {
	deps  Deps
	tools []*tool.Tool
}

func NewMeetingHandler(deps Deps) *MeetingHandler {
	h := &MeetingHandler{deps: deps}
	h.tools = []*tool.Tool{
		tool.New("create_meeting", "Schedule a meeting.",
			viaTool(deps, h.Process, tool.Args{"action": "create"}),
			tool.WithParam("title", "string", "Meeting title", true),
			tool.WithParam("relative_date", "string", `"today", "tomorrow" or YYYY-MM-DD`, false),
			tool.WithParam("time", "string", "Start time HH:MM", true),
			tool.WithParam("attendees", "array", "Attendee names", false),
			tool.WithParam("duration_minutes", "integer", "Duration, default 60", false),
		),
		tool.New("get_today_meetings", "List meetings for a day, today by default.",
			viaTool(deps, h.Process, tool.Args{"action": "list"}),
			tool.WithParam("relative_date", "string", `"today", "tomorrow" or YYYY-MM-DD`, false),
		),
		tool.New("reschedule_meeting", "Move a meeting to a new time.",
			viaTool(deps, h.Process, tool.Args{"action": "reschedule"}),
			tool.WithParam("new_time", "string", "New start time HH:MM", true),
			tool.WithParam("relative_date", "string", "Day of the meeting", false),
			tool.WithParam("title", "string", "Part of the meeting title", false),
		),
	}
	return h
}

func (*MeetingHandler) ID() string { return "meeting" }

func (*MeetingHandler) Info() Info {
	return Info{ID: "meeting", Name: "Встречи", Description: "Календарь и планирование", Icon: "📅"}
}

func (*MeetingHandler) Keywords() []string {
	return []string{
		"встреч", "созвон", "звонок", "митинг", "обед",
		"кездесу", "қоңырау", "жиналыс",
		"сколько встреч", "жоспар", "план", "календарь",
		"отмени", "удали", "жой",
		"перенеси", "ауыстыр", "move", "reschedule", "поменяй время",
	}
}

func (*MeetingHandler) Describe(locale string) string {
	if locale == "kz" {
		return `Кездесулер. data: {"action": "create"|"list"|"cancel"|"reschedule", "title", "relative_date": "бүгін"|"ертең"|YYYY-MM-DD, "time": "15:00", "new_time", "attendees": [...], "duration_minutes", "is_all"}`
	}
	return `Встречи и планы. data: {"action": "create"|"list"|"cancel"|"reschedule", "title", "relative_date": "сегодня"|"завтра"|"послезавтра"|YYYY-MM-DD, "time": "15:00", "new_time": время для переноса, "attendees": [...], "duration_minutes": по умолчанию 60, "is_all": true если "все"}.
Пример: "Встреча с Болатом завтра в 15:00" -> {"action": "create", "title": "Встреча с Болатом", "relative_date": "завтра", "time": "15:00", "attendees": ["Болат"]}`
}

func (h *MeetingHandler) Tools() []*tool.Tool { return h.tools }

func (h *MeetingHandler) Process(ctx context.Context, req *Request) (*Outcome, error) {
	switch strings.ToLower(req.Args.String("action")) {
	case "list", "count", "query":
		return h.list(ctx, req)
	case "cancel", "delete":
		return h.cancel(ctx, req)
	case "reschedule", "move", "update":
		return h.reschedule(ctx, req)
	default:
		return h.create(ctx, req)
	}
}

// day resolves the day the request refers to. Creation defaults to tomorrow, everything else to today.
func (h *MeetingHandler) day(args tool.Args, creating bool) (time.Time, bool) {
	now := h.deps.now()
	expr := args.String("relative_date")
	if expr == "" {
		expr = args.String("date")
	}
	if expr == "" && creating {
		expr = "tomorrow"
	}
	return parseDay(expr, now)
}

func (h *MeetingHandler) startTime(args tool.Args, clockKey string) (time.Time, bool) {
	if dt := args.String("datetime"); dt != "" {
		t, withClock, ok := parseDateTime(dt, "", h.deps.now())
		return t, ok && withClock
	}
	day, ok := h.day(args, clockKey == "time")
	if !ok {
		return time.Time{}, false
	}
	clock := args.String(clockKey)
	if clock == "" {
		clock = args.String("time")
	}
	if clock == "" {
		clock = "12:00"
	}
	hh, mm, ok := parseClock(clock)
	if !ok {
		return time.Time{}, false
	}
	return day.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute), true
}

func attendeeNames(args tool.Args) []string {
	var names []string
	switch v := args["attendees"].(type) {
	case []any:
		for _, a := range v {
			if s := strings.TrimSpace(fmt.Sprint(a)); s != "" {
				names = append(names, s)
			}
		}
	case []string:
		names = append(names, v...)
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				names = append(names, s)
			}
		}
	}
	if a := args.String("attendee"); a != "" {
		names = append(names, a)
	}
	return names
}

func (h *MeetingHandler) create(ctx context.Context, req *Request) (*Outcome, error) {
	start, ok := h.startTime(req.Args, "time")
	if !ok {
		return reject("Не удалось определить время встречи."), nil
	}
	title := req.Args.String("title")
	attendees := attendeeNames(req.Args)
	generic := title == "" || strings.EqualFold(title, "встреча") || strings.EqualFold(title, "кездесу") || strings.EqualFold(title, "meeting")
	if generic && len(attendees) == 0 && req.Args.String("description") == "" {
		if req.Scope.Locale == "kz" {
			return reject("Кіммен кездесу жоспарлаймыз?"), nil
		}
		return reject("С кем встречаемся? Или уточните тему (например: Встреча с клиентом)."), nil
	}
	if title == "" {
		title = "Встреча с " + strings.Join(attendees, ", ")
	}
	duration := defaultMeetingMinutes
	if d, ok := req.Args.Int("duration_minutes"); ok && d > 0 {
		duration = int(d)
	}

	meeting, err := req.Queries.CreateMeeting(ctx, &store.Meeting{
		UID:             shortuuid.New(),
		TenantID:        req.Scope.TenantID,
		UserID:          req.Scope.UserID,
		Title:           title,
		Attendee:        strings.Join(attendees, ", "),
		StartTs:         start.Unix(),
		DurationMinutes: duration,
		Status:          store.MeetingStatusScheduled,
		CreatedTs:       h.deps.now().Unix(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create meeting")
	}

	who := meeting.Attendee
	if who == "" {
		who = "-"
	}
	out := success("📅 Встреча запланирована: %s, %s в %s. Участники: %s",
		title, start.Format("02.01.2006"), start.Format("15:04"), who)
	out.Data = map[string]any{"id": meeting.UID, "title": title, "start_time": start.Format(time.RFC3339)}
	return out, nil
}

func (h *MeetingHandler) dayMeetings(ctx context.Context, q store.Queries, tenantID string, day time.Time) ([]*store.Meeting, error) {
	from, to := day.Unix(), day.AddDate(0, 0, 1).Unix()
	status := store.MeetingStatusScheduled
	return q.ListMeetings(ctx, &store.FindMeeting{
		TenantID:    tenantID,
		StartAfter:  &from,
		StartBefore: &to,
		Status:      &status,
	})
}

func (h *MeetingHandler) list(ctx context.Context, req *Request) (*Outcome, error) {
	day, ok := h.day(req.Args, false)
	if !ok {
		return reject("Не удалось определить дату."), nil
	}
	meetings, err := h.dayMeetings(ctx, req.Queries, req.Scope.TenantID, day)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list meetings")
	}
	date := day.Format("02.01.2006")
	if len(meetings) == 0 {
		return success("📅 %s: Планов нет.", date), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📅 %s: %d встреч(и):\n", date, len(meetings))
	for _, m := range meetings {
		fmt.Fprintf(&b, "\n⏰ %s %s", time.Unix(m.StartTs, 0).In(day.Location()).Format("15:04"), m.Title)
	}
	return success("%s", b.String()), nil
}

func isTruthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return strings.EqualFold(x, "true") || x == "1"
	case int64:
		return x != 0
	case float64:
		return x != 0
	}
	return false
}

func (h *MeetingHandler) cancel(ctx context.Context, req *Request) (*Outcome, error) {
	if !isTruthy(req.Args["is_all"]) {
		return success("Для отмены укажите 'отмени все встречи' или удалите через календарь. Отмена конкретной встречи текстом пока в разработке."), nil
	}
	day, ok := h.day(req.Args, false)
	if !ok {
		return reject("Не удалось определить дату."), nil
	}
	meetings, err := h.dayMeetings(ctx, req.Queries, req.Scope.TenantID, day)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list meetings")
	}
	if len(meetings) == 0 {
		return success("На этот день встреч и так нет."), nil
	}
	cancelled := store.MeetingStatusCancelled
	for _, m := range meetings {
		if err := req.Queries.UpdateMeeting(ctx, &store.UpdateMeeting{ID: m.ID, TenantID: m.TenantID, Status: &cancelled}); err != nil {
			return nil, errors.Wrap(err, "failed to cancel meeting")
		}
	}
	return success("✅ Отменено встреч: %d", len(meetings)), nil
}

func (h *MeetingHandler) reschedule(ctx context.Context, req *Request) (*Outcome, error) {
	if req.Args.String("new_time") == "" && req.Args.String("time") == "" && req.Args.String("datetime") == "" {
		return reject("На какое время перенесем?"), nil
	}
	start, ok := h.startTime(req.Args, "new_time")
	if !ok {
		return reject("На какое время перенесем?"), nil
	}
	day := timezone.StartOfDay(start)
	meetings, err := h.dayMeetings(ctx, req.Queries, req.Scope.TenantID, day)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list meetings")
	}

	title := strings.ToLower(req.Args.String("title"))
	var target *store.Meeting
	for _, m := range meetings {
		if title != "" && !strings.Contains(strings.ToLower(m.Title), title) {
			continue
		}
		// The most recently created meeting of the day is the likeliest target.
		if target == nil || m.CreatedTs > target.CreatedTs || (m.CreatedTs == target.CreatedTs && m.ID > target.ID) {
			target = m
		}
	}
	if target == nil {
		return reject("Встреча для переноса не найдена на этот день."), nil
	}

	ts := start.Unix()
	if err := req.Queries.UpdateMeeting(ctx, &store.UpdateMeeting{ID: target.ID, TenantID: target.TenantID, StartTs: &ts}); err != nil {
		return nil, errors.Wrap(err, "failed to reschedule meeting")
	}
	return success("✅ Встреча перенесена: %s, %s в %s", target.Title, start.Format("02.01"), start.Format("15:04")), nil
}
