package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/secretary/internal/profile"
	"github.com/hrygo/secretary/store"
	"github.com/hrygo/secretary/store/db"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	p := &profile.Profile{Mode: "dev", Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "test.db")}
	driver, err := db.NewDBDriver(p)
	require.NoError(t, err)
	s := store.New(driver, p)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestChatMessages_NewestInConversationOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i, content := range []string{"one", "two", "three"} {
		_, err := s.CreateChatMessage(ctx, &store.ChatMessage{
			TenantID:  "t1",
			Role:      store.ChatRoleUser,
			Content:   content,
			CreatedTs: int64(i),
		})
		require.NoError(t, err)
	}
	_, err := s.CreateChatMessage(ctx, &store.ChatMessage{TenantID: "t2", Role: store.ChatRoleUser, Content: "other"})
	require.NoError(t, err)

	list, err := s.ListChatMessages(ctx, &store.FindChatMessage{TenantID: "t1", Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "two", list[0].Content)
	assert.Equal(t, "three", list[1].Content)
	assert.Equal(t, store.ChatRoleUser, list[0].Role)
}

func TestRunInTx_RollbackHidesWrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.RunInTx(ctx, func(q store.Queries) error {
		if _, err := q.CreateTask(ctx, &store.Task{UID: "a", TenantID: "t1", Title: "draft"}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	tasks, err := s.ListTasks(ctx, &store.FindTask{TenantID: "t1"})
	require.NoError(t, err)
	assert.Empty(t, tasks)

	require.NoError(t, s.RunInTx(ctx, func(q store.Queries) error {
		_, err := q.CreateTask(ctx, &store.Task{UID: "b", TenantID: "t1", Title: "kept"})
		return err
	}))
	tasks, err = s.ListTasks(ctx, &store.FindTask{TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "kept", tasks[0].Title)
	assert.Nil(t, tasks[0].DueTs)
}

func TestTx_RollbackAfterCommitIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	_, err = tx.CreateContact(ctx, &store.Contact{UID: "c1", TenantID: "t1", Name: "Асхат", Phone: "+77011234567"})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NoError(t, tx.Rollback())

	name := "асхат"
	contacts, err := s.ListContacts(ctx, &store.FindContact{TenantID: "t1", Name: &name})
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "+77011234567", contacts[0].Phone)
}

func TestModuleStates_CachedAndInvalidated(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	states, err := s.GetModuleStates(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, states)

	require.NoError(t, s.SetModuleEnabled(ctx, "t1", "finance", false))
	states, err = s.GetModuleStates(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"finance": false}, states)

	require.NoError(t, s.SetModuleEnabled(ctx, "t1", "finance", true))
	states, err = s.GetModuleStates(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, states["finance"])
}

func TestMemoryEntries_SearchAndKeywordLookup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	entries := []*store.MemoryEntry{
		{TenantID: "t1", Content: "Договорились с Асхатом о поставке", Embedding: []float32{1, 0, 0}},
		{TenantID: "t1", Content: "Оплатил такси", Embedding: []float32{0, 1, 0}},
		{TenantID: "t1", Content: "Без вектора"},
	}
	for _, e := range entries {
		_, err := s.CreateMemoryEntry(ctx, e)
		require.NoError(t, err)
	}

	results, err := s.SearchMemoryEntries(ctx, &store.SearchMemoryEntry{TenantID: "t1", Embedding: []float32{0.9, 0.1, 0}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Entry.Content, "Асхатом")
	assert.Greater(t, results[0].Score, float32(0.9))

	list, err := s.ListMemoryEntries(ctx, &store.FindMemoryEntry{TenantID: "t1", Terms: []string{"ТАКСИ"}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Оплатил такси", list[0].Content)
}

func TestMeetings_FilterAndUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	start := time.Date(2026, 10, 16, 14, 0, 0, 0, time.UTC).Unix()

	m, err := s.CreateMeeting(ctx, &store.Meeting{
		UID: "m1", TenantID: "t1", Title: "Встреча с Асхатом", Attendee: "Асхат",
		StartTs: start, DurationMinutes: 60, Status: store.MeetingStatusScheduled,
	})
	require.NoError(t, err)

	later := start + 3600
	require.NoError(t, s.UpdateMeeting(ctx, &store.UpdateMeeting{ID: m.ID, TenantID: "t1", StartTs: &later}))

	title := "асхат"
	list, err := s.ListMeetings(ctx, &store.FindMeeting{TenantID: "t1", Title: &title})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, later, list[0].StartTs)

	before := start
	list, err = s.ListMeetings(ctx, &store.FindMeeting{TenantID: "t1", StartBefore: &before})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNegotiationStatus(t *testing.T) {
	assert.False(t, store.NegotiationInitiated.IsTerminal())
	assert.True(t, store.NegotiationConfirmed.IsTerminal())
	assert.True(t, store.NegotiationCancelled.IsTerminal())

	assert.True(t, store.NegotiationInitiated.CanTransitionTo(store.NegotiationSlotsSent))
	assert.True(t, store.NegotiationSlotsSent.CanTransitionTo(store.NegotiationNegotiating))
	assert.False(t, store.NegotiationInitiated.CanTransitionTo(store.NegotiationConfirmed))
	assert.False(t, store.NegotiationConfirmed.CanTransitionTo(store.NegotiationNegotiating))
}

func TestNegotiations_UpdateMissingRow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.UpdateNegotiation(ctx, &store.UpdateNegotiation{ID: 42, TenantID: "t1", Status: store.NegotiationCancelled})
	assert.Error(t, err)
}
