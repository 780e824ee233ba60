package sqlite

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/store"
)

func (d *DB) UpsertModuleSetting(ctx context.Context, upsert *store.ModuleSetting) (*store.ModuleSetting, error) {
	stmt := `INSERT INTO module_setting (tenant_id, module_id, enabled, updated_ts)
		VALUES (` + placeholders(4) + `)
		ON CONFLICT (tenant_id, module_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			updated_ts = EXCLUDED.updated_ts`
	if _, err := d.q.ExecContext(ctx, stmt, upsert.TenantID, upsert.ModuleID, upsert.Enabled, upsert.UpdatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to upsert module setting")
	}
	return upsert, nil
}

func (d *DB) ListModuleSettings(ctx context.Context, find *store.FindModuleSetting) ([]*store.ModuleSetting, error) {
	rows, err := d.q.QueryContext(ctx, `SELECT tenant_id, module_id, enabled, updated_ts
		FROM module_setting WHERE tenant_id = `+placeholder(1), find.TenantID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list module settings")
	}
	defer rows.Close()

	list := []*store.ModuleSetting{}
	for rows.Next() {
		var s store.ModuleSetting
		if err := rows.Scan(&s.TenantID, &s.ModuleID, &s.Enabled, &s.UpdatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan module setting")
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
