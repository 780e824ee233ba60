package postgres

import (
	"context"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/secretary/store"
)

func (d *DB) CreateMemoryEntry(ctx context.Context, create *store.MemoryEntry) (*store.MemoryEntry, error) {
	var embedding any
	if len(create.Embedding) > 0 {
		embedding = pgvector.NewVector(create.Embedding)
	}

	stmt := `INSERT INTO memory_entry (tenant_id, user_id, content, embedding, created_ts)
		VALUES (` + placeholders(5) + `) RETURNING id`
	if err := d.q.QueryRowContext(ctx, stmt,
		create.TenantID, create.UserID, create.Content, embedding, create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create memory entry")
	}
	return create, nil
}

func (d *DB) ListMemoryEntries(ctx context.Context, find *store.FindMemoryEntry) ([]*store.MemoryEntry, error) {
	where, args := []string{"tenant_id = $1"}, []any{find.TenantID}
	if len(find.Terms) > 0 {
		or := []string{}
		for _, term := range find.Terms {
			if term == "" {
				continue
			}
			or, args = append(or, "content ILIKE "+placeholder(len(args)+1)), append(args, "%"+term+"%")
		}
		if len(or) > 0 {
			where = append(where, "("+strings.Join(or, " OR ")+")")
		}
	}
	query := `SELECT id, tenant_id, user_id, content, created_ts FROM memory_entry
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id DESC`
	if find.Limit > 0 {
		query, args = query+" LIMIT "+placeholder(len(args)+1), append(args, find.Limit)
	}

	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list memory entries")
	}
	defer rows.Close()

	list := []*store.MemoryEntry{}
	for rows.Next() {
		var entry store.MemoryEntry
		if err := rows.Scan(&entry.ID, &entry.TenantID, &entry.UserID, &entry.Content, &entry.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan memory entry")
		}
		list = append(list, &entry)
	}
	return list, rows.Err()
}

// SearchMemoryEntries ranks entries by cosine similarity using the pgvector <=> operator.
func (d *DB) SearchMemoryEntries(ctx context.Context, search *store.SearchMemoryEntry) ([]*store.MemoryEntryWithScore, error) {
	if len(search.Embedding) == 0 {
		return nil, errors.New("embedding required")
	}
	limit := search.Limit
	if limit <= 0 {
		limit = 5
	}

	query := `
		SELECT id, tenant_id, user_id, content, embedding, created_ts, 1 - (embedding <=> $2) AS score
		FROM memory_entry
		WHERE tenant_id = $1 AND embedding IS NOT NULL
		ORDER BY embedding <=> $2
		LIMIT $3
	`
	rows, err := d.q.QueryContext(ctx, query, search.TenantID, pgvector.NewVector(search.Embedding), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search memory entries")
	}
	defer rows.Close()

	results := []*store.MemoryEntryWithScore{}
	for rows.Next() {
		var entry store.MemoryEntry
		var vector pgvector.Vector
		var score float32
		if err := rows.Scan(&entry.ID, &entry.TenantID, &entry.UserID, &entry.Content, &vector, &entry.CreatedTs, &score); err != nil {
			return nil, errors.Wrap(err, "failed to scan memory entry")
		}
		entry.Embedding = vector.Slice()
		results = append(results, &store.MemoryEntryWithScore{Entry: &entry, Score: score})
	}
	return results, rows.Err()
}
