package sqlite

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/store"
)

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
		FROM outbox_message WHERE tenant_id = `+placeholder(1), []any{find.TenantID}
	if find.Status != nil {
		query, args = query+" AND status = "+placeholder(2), append(args, *find.Status)
	}

	rows, err := d.q.QueryContext(ctx, query+" ORDER BY id ASC", args...)
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
