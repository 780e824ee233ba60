package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/store"
)

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
	where, args := []string{"tenant_id = " + placeholder(1)}, []any{find.TenantID}
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
	stmt := `UPDATE task SET done = ` + placeholder(1) + ` WHERE id = ` + placeholder(2) + ` AND tenant_id = ` + placeholder(3)
	result, err := d.q.ExecContext(ctx, stmt, *update.Done, update.ID, update.TenantID)
	if err != nil {
		return errors.Wrap(err, "failed to update task")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
