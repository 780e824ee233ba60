package store

type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusSent    OutboxStatus = "sent"
)

// OutboxMessage is a message queued for delivery by a messaging-platform adapter.
type OutboxMessage struct {
	ID        int64
	UID       string
	TenantID  string
	UserID    string
	Recipient string
	Phone     string
	Content   string
	Status    OutboxStatus
	CreatedTs int64
}

type FindOutboxMessage struct {
	TenantID string
	Status   *OutboxStatus
}
