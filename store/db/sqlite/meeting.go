package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/store"
)

func (d *DB) CreateMeeting(ctx context.Context, create *store.Meeting) (*store.Meeting, error) {
	fields := []string{"uid", "tenant_id", "user_id", "title", "attendee", "start_ts", "duration_minutes", "status", "created_ts"}
	args := []any{create.UID, create.TenantID, create.UserID, create.Title, create.Attendee, create.StartTs, create.DurationMinutes, create.Status, create.CreatedTs}
	stmt := `INSERT INTO meeting (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `) RETURNING id`
	if err := d.q.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create meeting")
	}
	return create, nil
}

func (d *DB) ListMeetings(ctx context.Context, find *store.FindMeeting) ([]*store.Meeting, error) {
	where, args := []string{"tenant_id = " + placeholder(1)}, []any{find.TenantID}
	if find.StartAfter != nil {
		where, args = append(where, "start_ts >= "+placeholder(len(args)+1)), append(args, *find.StartAfter)
	}
	if find.StartBefore != nil {
		where, args = append(where, "start_ts < "+placeholder(len(args)+1)), append(args, *find.StartBefore)
	}
	if find.Status != nil {
		where, args = append(where, "status = "+placeholder(len(args)+1)), append(args, *find.Status)
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
		if find.Title != nil && !containsFold(m.Title, *find.Title) && !containsFold(m.Attendee, *find.Title) {
			continue
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
