package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/store"
)

func (d *DB) CreateFinanceRecord(ctx context.Context, create *store.FinanceRecord) (*store.FinanceRecord, error) {
	stmt := `INSERT INTO finance_record (uid, tenant_id, user_id, type, amount, category, counterparty, description, created_ts)
		VALUES (` + placeholders(9) + `) RETURNING id`
	if err := d.q.QueryRowContext(ctx, stmt,
		create.UID, create.TenantID, create.UserID, create.Type, create.Amount, create.Category, create.Counterparty, create.Description, create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create finance record")
	}
	return create, nil
}

func (d *DB) ListFinanceRecords(ctx context.Context, find *store.FindFinanceRecord) ([]*store.FinanceRecord, error) {
	where, args := []string{"tenant_id = $1"}, []any{find.TenantID}
	if find.Type != nil {
		where, args = append(where, "type = "+placeholder(len(args)+1)), append(args, *find.Type)
	}
	query := `SELECT id, uid, tenant_id, user_id, type, amount, category, counterparty, description, created_ts
		FROM finance_record WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC, id DESC`
	if find.Limit > 0 {
		query, args = query+" LIMIT "+placeholder(len(args)+1), append(args, find.Limit)
	}

	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list finance records")
	}
	defer rows.Close()

	list := []*store.FinanceRecord{}
	for rows.Next() {
		var r store.FinanceRecord
		if err := rows.Scan(&r.ID, &r.UID, &r.TenantID, &r.UserID, &r.Type, &r.Amount, &r.Category, &r.Counterparty, &r.Description, &r.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan finance record")
		}
		list = append(list, &r)
	}
	return list, rows.Err()
}

func (d *DB) CreateMeeting(ctx context.Context, create *store.Meeting) (*store.Meeting, error) {
	stmt := `INSERT INTO meeting (uid, tenant_id, user_id, title, attendee, start_ts, duration_minutes, status, created_ts)
		VALUES (` + placeholders(9) + `) RETURNING id`
	if err := d.q.QueryRowContext(ctx, stmt,
		create.UID, create.TenantID, create.UserID, create.Title, create.Attendee, create.StartTs, create.DurationMinutes, create.Status, create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create meeting")
	}
	return create, nil
}

func (d *DB) ListMeetings(ctx context.Context, find *store.FindMeeting) ([]*store.Meeting, error) {
	where, args := []string{"tenant_id = $1"}, []any{find.TenantID}
	if find.StartAfter != nil {
		where, args = append(where, "start_ts >= "+placeholder(len(args)+1)), append(args, *find.StartAfter)
	}
	if find.StartBefore != nil {
		where, args = append(where, "start_ts < "+placeholder(len(args)+1)), append(args, *find.StartBefore)
	}
	if find.Status != nil {
		where, args = append(where, "status = "+placeholder(len(args)+1)), append(args, *find.Status)
	}
	if find.Title != nil {
		p := placeholder(len(args) + 1)
		where, args = append(where, "(title ILIKE "+p+" OR attendee ILIKE "+p+")"), append(args, "%"+*find.Title+"%")
	}

	rows, err := d.q.QueryContext(ctx, `SELECT id, uid, tenant_id, user_id, title, attendee, start_ts, duration_minutes, status, created_ts
		FROM meeting WHERE `+strings.Join(where, " AND ")+` ORDER BY start_ts ASC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list meetings")
	}
	defer rows.Close()

	list := []*store.Meeting{}
	for rows.Next() {
		var m store.Meeting
		if err := rows.Scan(&m.ID, &m.UID, &m.TenantID, &m.UserID, &m.Title, &m.Attendee, &m.StartTs, &m.DurationMinutes, &m.Status, &m.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan meeting")
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

func (d *DB) UpdateMeeting(ctx context.Context, update *store.UpdateMeeting) error {
	set, args := []string{}, []any{}
	if update.StartTs != nil {
		set, args = append(set, "start_ts = "+placeholder(len(args)+1)), append(args, *update.StartTs)
	}
	if update.Status != nil {
		set, args = append(set, "status = "+placeholder(len(args)+1)), append(args, *update.Status)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, update.ID, update.TenantID)
	stmt := `UPDATE meeting SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)-1) + ` AND tenant_id = ` + placeholder(len(args))
	if _, err := d.q.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "failed to update meeting")
	}
	return nil
}

func (d *DB) CreateTask(ctx context.Context, create *store.Task) (*store.Task, error) {
	stmt := `INSERT INTO task (uid, tenant_id, user_id, title, due_ts, done, created_ts)
		VALUES (` + placeholders(7) + `) RETURNING id`
	if err := d.q.QueryRowContext(ctx, stmt,
		create.UID, create.TenantID, create.UserID, create.Title, create.DueTs, create.Done, create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create task")
	}
	return create, nil
}

func (d *DB) ListTasks(ctx context.Context, find *store.FindTask) ([]*store.Task, error) {
	where, args := []string{"tenant_id = $1"}, []any{find.TenantID}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Done != nil {
		where, args = append(where, "done = "+placeholder(len(args)+1)), append(args, *find.Done)
	}

	rows, err := d.q.QueryContext(ctx, `SELECT id, uid, tenant_id, user_id, title, due_ts, done, created_ts
		FROM task WHERE `+strings.Join(where, " AND ")+` ORDER BY id ASC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tasks")
	}
	defer rows.Close()

	list := []*store.Task{}
	for rows.Next() {
		var t store.Task
		var due sql.NullInt64
		if err := rows.Scan(&t.ID, &t.UID, &t.TenantID, &t.UserID, &t.Title, &due, &t.Done, &t.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan task")
		}
		if due.Valid {
			t.DueTs = &due.Int64
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

func (d *DB) UpdateTask(ctx context.Context, update *store.UpdateTask) error {
	if update.Done == nil {
		return nil
	}
	result, err := d.q.ExecContext(ctx, `UPDATE task SET done = $1 WHERE id = $2 AND tenant_id = $3`, *update.Done, update.ID, update.TenantID)
	if err != nil {
		return errors.Wrap(err, "failed to update task")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (d *DB) CreateContact(ctx context.Context, create *store.Contact) (*store.Contact, error) {
	stmt := `INSERT INTO contact (uid, tenant_id, name, phone, created_ts) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := d.q.QueryRowContext(ctx, stmt, create.UID, create.TenantID, create.Name, create.Phone, create.CreatedTs).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create contact")
	}
	return create, nil
}

func (d *DB) ListContacts(ctx context.Context, find *store.FindContact) ([]*store.Contact, error) {
	query, args := `SELECT id, uid, tenant_id, name, phone, created_ts FROM contact WHERE tenant_id = $1`, []any{find.TenantID}
	if find.Name != nil {
		query, args = query+` AND name ILIKE $2`, append(args, "%"+*find.Name+"%")
	}

	rows, err := d.q.QueryContext(ctx, query+` ORDER BY name ASC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list contacts")
	}
	defer rows.Close()

	list := []*store.Contact{}
	for rows.Next() {
		var c store.Contact
		if err := rows.Scan(&c.ID, &c.UID, &c.TenantID, &c.Name, &c.Phone, &c.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan contact")
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

func (d *DB) CreateOutboxMessage(ctx context.Context, create *store.OutboxMessage) (*store.OutboxMessage, error) {
	stmt := `INSERT INTO outbox_message (uid, tenant_id, user_id, recipient, phone, content, status, created_ts)
		VALUES (` + placeholders(8) + `) RETURNING id`
	if err := d.q.QueryRowContext(ctx, stmt,
		create.UID, create.TenantID, create.UserID, create.Recipient, create.Phone, create.Content, create.Status, create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create outbox message")
	}
	return create, nil
}

func (d *DB) ListOutboxMessages(ctx context.Context, find *store.FindOutboxMessage) ([]*store.OutboxMessage, error) {
	query, args := `SELECT id, uid, tenant_id, user_id, recipient, phone, content, status, created_ts
		FROM outbox_message WHERE tenant_id = $1`, []any{find.TenantID}
	if find.Status != nil {
		query, args = query+` AND status = $2`, append(args, *find.Status)
	}

	rows, err := d.q.QueryContext(ctx, query+` ORDER BY id ASC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list outbox messages")
	}
	defer rows.Close()

	list := []*store.OutboxMessage{}
	for rows.Next() {
		var m store.OutboxMessage
		if err := rows.Scan(&m.ID, &m.UID, &m.TenantID, &m.UserID, &m.Recipient, &m.Phone, &m.Content, &m.Status, &m.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan outbox message")
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

func (d *DB) CreateNegotiation(ctx context.Context, create *store.Negotiation) (*store.Negotiation, error) {
	stmt := `INSERT INTO negotiation (uid, tenant_id, user_id, attendee, topic, slots, status, created_ts, updated_ts)
		VALUES (` + placeholders(9) + `) RETURNING id`
	if err := d.q.QueryRowContext(ctx, stmt,
		create.UID, create.TenantID, create.UserID, create.Attendee, create.Topic, create.Slots, create.Status, create.CreatedTs, create.UpdatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create negotiation")
	}
	return create, nil
}

func (d *DB) ListNegotiations(ctx context.Context, find *store.FindNegotiation) ([]*store.Negotiation, error) {
	where, args := []string{"tenant_id = $1"}, []any{find.TenantID}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}
	if find.Attendee != nil {
		where, args = append(where, "attendee ILIKE "+placeholder(len(args)+1)), append(args, "%"+*find.Attendee+"%")
	}

	rows, err := d.q.QueryContext(ctx, `SELECT id, uid, tenant_id, user_id, attendee, topic, slots, status, created_ts, updated_ts
		FROM negotiation WHERE `+strings.Join(where, " AND ")+` ORDER BY id DESC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list negotiations")
	}
	defer rows.Close()

	list := []*store.Negotiation{}
	for rows.Next() {
		var n store.Negotiation
		if err := rows.Scan(&n.ID, &n.UID, &n.TenantID, &n.UserID, &n.Attendee, &n.Topic, &n.Slots, &n.Status, &n.CreatedTs, &n.UpdatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan negotiation")
		}
		list = append(list, &n)
	}
	return list, rows.Err()
}

func (d *DB) UpdateNegotiation(ctx context.Context, update *store.UpdateNegotiation) error {
	result, err := d.q.ExecContext(ctx, `UPDATE negotiation SET status = $1, updated_ts = $2 WHERE id = $3 AND tenant_id = $4`,
		update.Status, update.UpdatedTs, update.ID, update.TenantID)
	if err != nil {
		return errors.Wrap(err, "failed to update negotiation")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
