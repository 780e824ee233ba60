package assistant

import (
	"fmt"
	"strings"

	"github.com/hrygo/secretary/plugin/ai"
	"github.com/hrygo/secretary/plugin/ai/agent"
	"github.com/hrygo/secretary/plugin/ai/handler"
	"github.com/hrygo/secretary/plugin/ai/tool"
)

// CoordinatorName is the agent every handoff run starts with.
const CoordinatorName = "chief"

// specialist describes one agent built from handler tools.
type specialist struct {
	name     string
	short    string
	role     string
	handlers []string
	prompt   string
}

var specialists = []specialist{
	{
		name:     "finance_agent",
		short:    "finance",
		role:     "доходы, расходы и баланс",
		handlers: []string{"finance"},
		prompt: `Ты финансовый помощник. Записывай доходы и расходы через add_transaction (type: income или expense, amount, category), ` +
			`показывай баланс через get_balance и последние записи через list_transactions. Суммы указывай в тенге.`,
	},
	{
		name:     "calendar_agent",
		short:    "calendar",
		role:     "встречи, расписание и согласование времени с контактами",
		handlers: []string{"meeting", "schedule_meeting"},
		prompt: `Ты отвечаешь за календарь. Создавай встречи через create_meeting, показывай их через get_today_meetings, ` +
			`переносишь через reschedule_meeting. Если время нужно согласовать с контактом, используй start_negotiation, ` +
			`статус узнавай через get_negotiation_status.`,
	},
	{
		name:     "tasks_agent",
		short:    "tasks",
		role:     "задачи и напоминания",
		handlers: []string{"task"},
		prompt:   `Ты ведёшь список задач: create_task, get_all_tasks, complete_task.`,
	},
	{
		name:     "contacts_agent",
		short:    "contacts",
		role:     "контакты и отправка сообщений",
		handlers: []string{"contacts", "messaging"},
		prompt: `Ты ведёшь контакты (create_contact, get_all_contacts, find_contact) и отправляешь сообщения через send_message. ` +
			`Номер телефона сохраняй цифрами, с кодом страны.`,
	},
	{
		name:     "knowledge_agent",
		short:    "knowledge",
		role:     "общие вопросы и поиск информации, например номера телефона организации",
		handlers: []string{"general"},
		prompt:   `Ты отвечаешь на общие вопросы и ищешь информацию через search. Если нашёл номер телефона, приведи его полностью.`,
	},
}

var coordinatorPrompts = map[string]string{
	"ru": `Ты главный секретарь предпринимателя. Определи, кто из помощников справится с запросом, и передай разговор ` +
		`через transfer_to_<помощник>. Если в запросе несколько действий, используй execute_multi_task. ` +
		`Чтобы найти номер и сохранить его в контакты, используй search_and_save. ` +
		`На приветствия и простые вопросы отвечай сам, кратко.

Помощники:
%s`,
	"kz": `Сен кәсіпкердің бас хатшысысың. Сұрауды қай көмекші орындай алатынын анықтап, transfer_to_<көмекші> арқылы жібер. ` +
		`Бірнеше әрекет болса, execute_multi_task қолдан. Нөмірді тауып, контактіге сақтау үшін search_and_save қолдан.

Көмекшілер:
%s`,
}

// buildRoster creates the coordinator and one specialist per group of registered handlers.
// A specialist whose handlers are all missing from the registry is left out.
func buildRoster(llm ai.LLMService, registry *handler.Registry, maxHops int) agent.Config {
	var (
		agents   []agent.Agent
		handoffs = map[string]string{}
		roles    []string
		search   string
		contacts string
	)

	for _, sp := range specialists {
		var tools []*tool.Tool
		for _, id := range sp.handlers {
			if h, ok := registry.Resolve(id); ok {
				tools = append(tools, h.Tools()...)
			}
		}
		if len(tools) == 0 {
			continue
		}
		agents = append(agents, agent.NewLLMAgent(llm, agent.AgentConfig{
			Name:    sp.name,
			Role:    sp.role,
			Prompts: map[string]string{"ru": sp.prompt},
		}, tools))

		transfer := "transfer_to_" + sp.short
		handoffs[transfer] = sp.name
		roles = append(roles, fmt.Sprintf("- %s: %s", sp.name, sp.role))

		switch sp.name {
		case "knowledge_agent":
			search = sp.name
		case "contacts_agent":
			contacts = sp.name
		}
	}

	coordinatorTools := make([]*tool.Tool, 0, len(handoffs)+3)
	for _, sp := range specialists {
		transfer := "transfer_to_" + sp.short
		if target, ok := handoffs[transfer]; ok {
			coordinatorTools = append(coordinatorTools, agent.NewHandoffTool(transfer, target, "Передать разговор: "+sp.role))
		}
	}
	coordinatorTools = append(coordinatorTools, agent.NewPlanTool(), agent.NewDelegateTool())
	if search != "" && contacts != "" {
		coordinatorTools = append(coordinatorTools, agent.NewSearchAndSaveTool())
	}

	roster := strings.Join(roles, "\n")
	prompts := make(map[string]string, len(coordinatorPrompts))
	for locale, p := range coordinatorPrompts {
		prompts[locale] = fmt.Sprintf(p, roster)
	}
	coordinator := agent.NewLLMAgent(llm, agent.AgentConfig{
		Name:    CoordinatorName,
		Role:    "координатор",
		Prompts: prompts,
	}, coordinatorTools)

	return agent.Config{
		Agents:        append([]agent.Agent{coordinator}, agents...),
		Coordinator:   CoordinatorName,
		Handoffs:      handoffs,
		AgentAliases:  agent.DefaultAgentAliases,
		ToolAliases:   agent.DefaultToolAliases,
		SearchAgent:   search,
		ContactsAgent: contacts,
		MaxHops:       maxHops,
	}
}
