package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/store"
)

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
	where, args := []string{"tenant_id = " + placeholder(1)}, []any{find.TenantID}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
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
		if find.Attendee != nil && !containsFold(n.Attendee, *find.Attendee) {
			continue
		}
		list = append(list, &n)
	}
	return list, rows.Err()
}

func (d *DB) UpdateNegotiation(ctx context.Context, update *store.UpdateNegotiation) error {
	stmt := `UPDATE negotiation SET status = ` + placeholder(1) + `, updated_ts = ` + placeholder(2) +
		` WHERE id = ` + placeholder(3) + ` AND tenant_id = ` + placeholder(4)
	result, err := d.q.ExecContext(ctx, stmt, update.Status, update.UpdatedTs, update.ID, update.TenantID)
	if err != nil {
		return errors.Wrap(err, "failed to update negotiation")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
