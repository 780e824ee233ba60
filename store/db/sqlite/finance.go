package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/store"
)

func (d *DB) CreateFinanceRecord(ctx context.Context, create *store.FinanceRecord) (*store.FinanceRecord, error) {
	fields := []string{"uid", "tenant_id", "user_id", "type", "amount", "category", "counterparty", "description", "created_ts"}
	args := []any{create.UID, create.TenantID, create.UserID, create.Type, create.Amount, create.Category, create.Counterparty, create.Description, create.CreatedTs}
	stmt := `INSERT INTO finance_record (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `) RETURNING id`
	if err := d.q.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create finance record")
	}
	return create, nil
}

func (d *DB) ListFinanceRecords(ctx context.Context, find *store.FindFinanceRecord) ([]*store.FinanceRecord, error) {
	where, args := []string{"tenant_id = " + placeholder(1)}, []any{find.TenantID}
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
