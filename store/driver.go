package store

import (
	"context"
	"database/sql"
)

// Queries contains every data method a driver implements. It is satisfied both by
// the driver itself (autocommit) and by a transaction obtained from BeginTx.
type Queries interface {
	// ChatMessage model related methods.
	CreateChatMessage(ctx context.Context, create *ChatMessage) (*ChatMessage, error)
	ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error)

	// MemoryEntry model related methods.
	CreateMemoryEntry(ctx context.Context, create *MemoryEntry) (*MemoryEntry, error)
	ListMemoryEntries(ctx context.Context, find *FindMemoryEntry) ([]*MemoryEntry, error)
	SearchMemoryEntries(ctx context.Context, search *SearchMemoryEntry) ([]*MemoryEntryWithScore, error)

	// ModuleSetting model related methods.
	UpsertModuleSetting(ctx context.Context, upsert *ModuleSetting) (*ModuleSetting, error)
	ListModuleSettings(ctx context.Context, find *FindModuleSetting) ([]*ModuleSetting, error)

	// FinanceRecord model related methods.
	CreateFinanceRecord(ctx context.Context, create *FinanceRecord) (*FinanceRecord, error)
	ListFinanceRecords(ctx context.Context, find *FindFinanceRecord) ([]*FinanceRecord, error)

	// Meeting model related methods.
	CreateMeeting(ctx context.Context, create *Meeting) (*Meeting, error)
	ListMeetings(ctx context.Context, find *FindMeeting) ([]*Meeting, error)
	UpdateMeeting(ctx context.Context, update *UpdateMeeting) error

	// Task model related methods.
	CreateTask(ctx context.Context, create *Task) (*Task, error)
	ListTasks(ctx context.Context, find *FindTask) ([]*Task, error)
	UpdateTask(ctx context.Context, update *UpdateTask) error

	// Contact model related methods.
	CreateContact(ctx context.Context, create *Contact) (*Contact, error)
	ListContacts(ctx context.Context, find *FindContact) ([]*Contact, error)

	// OutboxMessage model related methods.
	CreateOutboxMessage(ctx context.Context, create *OutboxMessage) (*OutboxMessage, error)
	ListOutboxMessages(ctx context.Context, find *FindOutboxMessage) ([]*OutboxMessage, error)

	// Negotiation model related methods.
	CreateNegotiation(ctx context.Context, create *Negotiation) (*Negotiation, error)
	ListNegotiations(ctx context.Context, find *FindNegotiation) ([]*Negotiation, error)
	UpdateNegotiation(ctx context.Context, update *UpdateNegotiation) error
}

// Tx is a short-lived transactional unit. Exactly one of Commit or Rollback ends it;
// calling Rollback after Commit is a no-op.
type Tx interface {
	Queries
	Commit() error
	Rollback() error
}

// Driver is an interface for store driver.
type Driver interface {
	Queries

	GetDB() *sql.DB
	Close() error

	// Migrate applies the embedded schema. It is idempotent.
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Tx, error)
}
