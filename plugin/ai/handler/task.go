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

// TaskHandler manages to-dos and reminders.
type TaskHandler struct {
	deps  Deps
	tools []*tool.Tool
}

func NewTaskHandler(deps Deps) *TaskHandler {
	h := &TaskHandler{deps: deps}
	h.tools = []*tool.Tool{
		tool.New("create_task", "Create a task.",
			viaTool(deps, h.Process, tool.Args{"action": "create"}),
			tool.WithParam("title", "string", "Task title", true),
			tool.WithParam("relative_date", "string", `"today", "tomorrow", "in a week" or YYYY-MM-DD`, false),
		),
		tool.New("get_all_tasks", "List open tasks.",
			viaTool(deps, h.Process, tool.Args{"action": "list"}),
		),
		tool.New("complete_task", "Mark a task as done.",
			viaTool(deps, h.Process, tool.Args{"action": "complete"}),
			tool.WithParam("title", "string", "Part of the task title", true),
		),
	}
	return h
}

func (*TaskHandler) ID() string { return "task" }

func (*TaskHandler) Info() Info {
	return Info{ID: "task", Name: "Задачи", Description: "Управление задачами", Icon: "✅"}
}

func (*TaskHandler) Keywords() []string {
	return []string{
		"задача", "задачу", "напомни", "напоминание", "сделать", "поставь",
		"тапсырма", "еске сал", "жасау керек",
		"todo", "task", "reminder",
	}
}

func (*TaskHandler) Describe(locale string) string {
	if locale == "kz" {
		return `Тапсырмалар. data: {"action": "create"|"list"|"complete", "title", "relative_date": "бүгін"|"ертең"|"бүрсігүні"|"бір аптадан кейін"}`
	}
	return `Задачи и напоминания. data: {"action": "create"|"list"|"complete", "title": название, "relative_date": "сегодня"|"завтра"|"послезавтра"|"через неделю", "due_date": YYYY-MM-DD}.
Пример: "Напомни оплатить счёт завтра" -> {"action": "create", "title": "Оплатить счёт", "relative_date": "завтра"}`
}

func (h *TaskHandler) Tools() []*tool.Tool { return h.tools }

func (h *TaskHandler) Process(ctx context.Context, req *Request) (*Outcome, error) {
	switch strings.ToLower(req.Args.String("action")) {
	case "list", "query":
		return h.list(ctx, req)
	case "complete", "done":
		return h.complete(ctx, req)
	default:
		return h.create(ctx, req)
	}
}

// due returns the end of the referenced day, or nil when no deadline was given.
func (h *TaskHandler) due(args tool.Args) *time.Time {
	now := h.deps.now()
	expr := args.String("due_date")
	if expr == "" {
		expr = args.String("relative_date")
	}
	if expr == "" {
		return nil
	}
	var day time.Time
	switch strings.ToLower(expr) {
	case "через неделю", "бір аптадан кейін", "in a week":
		day, _ = parseDay("today", now)
		day = day.AddDate(0, 0, 7)
	default:
		d, _, ok := parseDateTime(expr, "", now)
		if !ok {
			return nil
		}
		day = timezone.StartOfDay(d)
	}
	due := timezone.EndOfDay(day)
	return &due
}

func (h *TaskHandler) create(ctx context.Context, req *Request) (*Outcome, error) {
	title := req.Args.String("title")
	if title == "" {
		title = req.Args.String("task_name")
	}
	if title == "" {
		title = "Задача"
	}
	task := &store.Task{
		UID:       shortuuid.New(),
		TenantID:  req.Scope.TenantID,
		UserID:    req.Scope.UserID,
		Title:     title,
		CreatedTs: h.deps.now().Unix(),
	}
	due := h.due(req.Args)
	if due != nil {
		ts := due.Unix()
		task.DueTs = &ts
	}
	task, err := req.Queries.CreateTask(ctx, task)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create task")
	}

	var out *Outcome
	if due != nil {
		out = success("✅ Задача создана:\n📌 %s\n📅 Срок: %s", title, due.Format("02.01.2006"))
	} else {
		out = success("✅ Задача создана:\n📌 %s", title)
	}
	out.Data = map[string]any{"id": task.UID, "title": title}
	return out, nil
}

func (h *TaskHandler) openTasks(ctx context.Context, req *Request) ([]*store.Task, error) {
	done := false
	tasks, err := req.Queries.ListTasks(ctx, &store.FindTask{TenantID: req.Scope.TenantID, Done: &done})
	return tasks, errors.Wrap(err, "failed to list tasks")
}

func (h *TaskHandler) list(ctx context.Context, req *Request) (*Outcome, error) {
	tasks, err := h.openTasks(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return success("📋 Открытых задач нет."), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Задачи (%d):", len(tasks))
	for i, t := range tasks {
		fmt.Fprintf(&b, "\n%d. %s", i+1, t.Title)
		if t.DueTs != nil {
			fmt.Fprintf(&b, " (до %s)", time.Unix(*t.DueTs, 0).In(h.deps.now().Location()).Format("02.01"))
		}
	}
	return success("%s", b.String()), nil
}

func (h *TaskHandler) complete(ctx context.Context, req *Request) (*Outcome, error) {
	title := strings.ToLower(req.Args.String("title"))
	if title == "" {
		return reject("Какую задачу отметить выполненной?"), nil
	}
	tasks, err := h.openTasks(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if !strings.Contains(strings.ToLower(t.Title), title) {
			continue
		}
		done := true
		if err := req.Queries.UpdateTask(ctx, &store.UpdateTask{ID: t.ID, TenantID: t.TenantID, Done: &done}); err != nil {
			return nil, errors.Wrap(err, "failed to complete task")
		}
		return success("✅ Задача выполнена: %s", t.Title), nil
	}
	return reject("Задача «%s» не найдена.", req.Args.String("title")), nil
}
