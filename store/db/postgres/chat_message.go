package postgres

import (
	"context"
	"slices"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/store"
)

func (d *DB) CreateChatMessage(ctx context.Context, create *store.ChatMessage) (*store.ChatMessage, error) {
	stmt := `INSERT INTO chat_message (tenant_id, user_id, role, content, intents, created_ts)
		VALUES (` + placeholders(6) + `) RETURNING id`
	if err := d.q.QueryRowContext(ctx, stmt,
		create.TenantID, create.UserID, create.Role, create.Content, create.Intents, create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create chat message")
	}
	return create, nil
}

func (d *DB) ListChatMessages(ctx context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error) {
	query, args := `SELECT id, tenant_id, user_id, role, content, intents, created_ts
		FROM chat_message WHERE tenant_id = $1 ORDER BY id DESC`, []any{find.TenantID}
	if find.Limit > 0 {
		query, args = query+` LIMIT $2`, append(args, find.Limit)
	}

	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chat messages")
	}
	defer rows.Close()

	list := []*store.ChatMessage{}
	for rows.Next() {
		var m store.ChatMessage
		if err := rows.Scan(&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.Content, &m.Intents, &m.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan chat message")
		}
		list = append(list, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(list)
	return list, nil
}
