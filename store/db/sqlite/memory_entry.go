package sqlite

import (
	"context"
	"database/sql"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/store"
)

// vectorScanWindow bounds how many recent entries are scored in process.
const vectorScanWindow = 500

func (d *DB) CreateMemoryEntry(ctx context.Context, create *store.MemoryEntry) (*store.MemoryEntry, error) {
	embedding, err := encodeEmbedding(create.Embedding)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode embedding")
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
	entries, err := d.recentMemoryEntries(ctx, find.TenantID, vectorScanWindow)
	if err != nil {
		return nil, err
	}

	list := []*store.MemoryEntry{}
	for _, entry := range entries {
		if len(find.Terms) > 0 && !matchesAny(entry.Content, find.Terms) {
			continue
		}
		list = append(list, entry)
		if find.Limit > 0 && len(list) >= find.Limit {
			break
		}
	}
	return list, nil
}

func (d *DB) SearchMemoryEntries(ctx context.Context, search *store.SearchMemoryEntry) ([]*store.MemoryEntryWithScore, error) {
	if len(search.Embedding) == 0 {
		return nil, errors.New("embedding required")
	}
	entries, err := d.recentMemoryEntries(ctx, search.TenantID, vectorScanWindow)
	if err != nil {
		return nil, err
	}

	results := []*store.MemoryEntryWithScore{}
	for _, entry := range entries {
		if len(entry.Embedding) != len(search.Embedding) {
			continue
		}
		results = append(results, &store.MemoryEntryWithScore{
			Entry: entry,
			Score: cosine(entry.Embedding, search.Embedding),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if search.Limit > 0 && len(results) > search.Limit {
		results = results[:search.Limit]
	}
	return results, nil
}

func (d *DB) recentMemoryEntries(ctx context.Context, tenantID string, limit int) ([]*store.MemoryEntry, error) {
	query := `SELECT id, tenant_id, user_id, content, embedding, created_ts
		FROM memory_entry WHERE tenant_id = ` + placeholder(1) + `
		ORDER BY id DESC LIMIT ` + placeholder(2)
	rows, err := d.q.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list memory entries")
	}
	defer rows.Close()

	list := []*store.MemoryEntry{}
	for rows.Next() {
		var entry store.MemoryEntry
		var embedding sql.NullString
		if err := rows.Scan(&entry.ID, &entry.TenantID, &entry.UserID, &entry.Content, &embedding, &entry.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan memory entry")
		}
		entry.Embedding = decodeEmbedding(embedding)
		list = append(list, &entry)
	}
	return list, rows.Err()
}

func matchesAny(content string, terms []string) bool {
	for _, term := range terms {
		if term != "" && containsFold(content, term) {
			return true
		}
	}
	return false
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
