package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/secretary/plugin/ai/tool"
	"github.com/hrygo/secretary/store"
)

// FinanceHandler records income and expenses.
type FinanceHandler struct {
	deps  Deps
	tools []*tool.Tool
}

func NewFinanceHandler(deps Deps) *FinanceHandler {
	h := &FinanceHandler{deps: deps}
	h.tools = []*tool.Tool{
		tool.New("add_transaction", "Record an income or an expense.",
			viaTool(deps, h.Process, nil),
			tool.WithParam("type", "string", `"income" or "expense"`, true),
			tool.WithParam("amount", "number", "Amount in tenge", true),
			tool.WithParam("category", "string", "Category such as taxi, food, salary", false),
			tool.WithParam("counterparty", "string", "Who paid or was paid", false),
			tool.WithParam("description", "string", "Free-form note", false),
		),
		tool.New("get_balance", "Total income, expenses and balance.", h.balance),
		tool.New("list_transactions", "Most recent finance records.", h.list,
			tool.WithParam("limit", "integer", "How many records, default 10", false),
		),
	}
	return h
}

func (*FinanceHandler) ID() string { return "finance" }

func (*FinanceHandler) Info() Info {
	return Info{ID: "finance", Name: "Финансы", Description: "Учёт доходов и расходов", Icon: "💰"}
}

func (*FinanceHandler) Keywords() []string {
	return []string{
		"получил", "заплатил", "потратил", "доход", "расход",
		"зарплата", "деньги", "тенге", "тг", "₸",
		"алдым", "төледім", "жұмсадым", "кіріс", "шығыс",
	}
}

func (*FinanceHandler) Describe(locale string) string {
	if locale == "kz" {
		return `Қаржылық операциялар. data: {"type": "income"|"expense", "amount": сан, "category": санат, "counterparty": кімнен/кімге, "description": сипаттама}`
	}
	return `Финансовые операции: доходы и расходы. data: {"type": "income"|"expense", "amount": число, "category": категория, "counterparty": от кого/кому, "description": описание}.
Пример: "Такси 2000 тг" -> {"type": "expense", "amount": 2000, "category": "такси"}`
}

func (h *FinanceHandler) Tools() []*tool.Tool { return h.tools }

func (h *FinanceHandler) Process(ctx context.Context, req *Request) (*Outcome, error) {
	amount, _ := req.Args.Float("amount")
	if amount <= 0 {
		if req.Scope.Locale == "kz" {
			return reject("Кешіріңіз, соманы көрсетпедіңіз. Қанша теңге?"), nil
		}
		return reject("Укажите сумму операции (например: 50000)."), nil
	}

	typ := store.FinanceTypeExpense
	if strings.EqualFold(req.Args.String("type"), string(store.FinanceTypeIncome)) {
		typ = store.FinanceTypeIncome
	}
	category := req.Args.String("category")
	if category == "" {
		category = "другое"
	}

	record, err := req.Queries.CreateFinanceRecord(ctx, &store.FinanceRecord{
		UID:          shortuuid.New(),
		TenantID:     req.Scope.TenantID,
		UserID:       req.Scope.UserID,
		Type:         typ,
		Amount:       amount,
		Category:     category,
		Counterparty: req.Args.String("counterparty"),
		Description:  req.Args.String("description"),
		CreatedTs:    h.deps.now().Unix(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create finance record")
	}

	var out *Outcome
	if typ == store.FinanceTypeIncome {
		from := record.Counterparty
		if from == "" {
			from = category
		}
		out = success("💰 Доход записан: %s ₸ (%s)", formatAmount(amount), from)
	} else {
		out = success("💸 Расход записан: %s ₸ (%s)", formatAmount(amount), category)
	}
	out.Data = map[string]any{"id": record.UID, "type": string(typ), "amount": amount, "category": category}
	return out, nil
}

func (h *FinanceHandler) balance(ctx context.Context, scope tool.Scope, _ tool.Args) (tool.Result, error) {
	var records []*store.FinanceRecord
	err := h.deps.Store.RunInTx(ctx, func(q store.Queries) error {
		var err error
		records, err = q.ListFinanceRecords(ctx, &store.FindFinanceRecord{TenantID: scope.TenantID})
		return err
	})
	if err != nil {
		return nil, err
	}
	var income, expense float64
	for _, r := range records {
		if r.Type == store.FinanceTypeIncome {
			income += r.Amount
		} else {
			expense += r.Amount
		}
	}
	return tool.Reply("💰 Доходы: %s ₸\n💸 Расходы: %s ₸\n📊 Баланс: %s ₸",
		formatAmount(income), formatAmount(expense), formatAmount(income-expense)), nil
}

func (h *FinanceHandler) list(ctx context.Context, scope tool.Scope, args tool.Args) (tool.Result, error) {
	limit, ok := args.Int("limit")
	if !ok || limit <= 0 {
		limit = 10
	}
	var records []*store.FinanceRecord
	err := h.deps.Store.RunInTx(ctx, func(q store.Queries) error {
		var err error
		records, err = q.ListFinanceRecords(ctx, &store.FindFinanceRecord{TenantID: scope.TenantID, Limit: int(limit)})
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return tool.Reply("Записей пока нет."), nil
	}
	lines := make([]string, 0, len(records))
	for _, r := range records {
		sign := "-"
		if r.Type == store.FinanceTypeIncome {
			sign = "+"
		}
		lines = append(lines, fmt.Sprintf("%s%s ₸ %s", sign, formatAmount(r.Amount), r.Category))
	}
	return tool.Reply("%s", strings.Join(lines, "\n")), nil
}
