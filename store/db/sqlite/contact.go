package sqlite

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/store"
)

func (d *DB) CreateContact(ctx context.Context, create *store.Contact) (*store.Contact, error) {
	stmt := `INSERT INTO contact (uid, tenant_id, name, phone, created_ts)
		VALUES (` + placeholders(5) + `) RETURNING id`
	if err := d.q.QueryRowContext(ctx, stmt,
		create.UID, create.TenantID, create.Name, create.Phone, create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create contact")
	}
	return create, nil
}

func (d *DB) ListContacts(ctx context.Context, find *store.FindContact) ([]*store.Contact, error) {
	rows, err := d.q.QueryContext(ctx, `SELECT id, uid, tenant_id, name, phone, created_ts
		FROM contact WHERE tenant_id = `+placeholder(1)+` ORDER BY name ASC`, find.TenantID)
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
		if find.Name != nil && !containsFold(c.Name, *find.Name) {
			continue
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}
