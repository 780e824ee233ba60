package store

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one persisted conversation turn.
type ChatMessage struct {
	ID        int64
	TenantID  string
	UserID    string
	Role      ChatRole
	Content   string
	// Intents is a comma separated list of intents the turn was routed to, assistant turns only.
	Intents   string
	CreatedTs int64
}

type FindChatMessage struct {
	TenantID string
	// Limit selects the newest N messages; results are still returned oldest first.
	Limit int
}
