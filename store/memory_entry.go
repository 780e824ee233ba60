package store

// MemoryEntry is a remembered exchange used for semantic recall.
type MemoryEntry struct {
	ID        int64
	TenantID  string
	UserID    string
	Content   string
	Embedding []float32
	CreatedTs int64
}

// FindMemoryEntry specifies the conditions for keyword lookup of memory entries.
type FindMemoryEntry struct {
	TenantID string
	// Terms are OR-ed substring matches against content.
	Terms []string
	Limit int
}

// SearchMemoryEntry specifies a vector similarity lookup.
type SearchMemoryEntry struct {
	TenantID  string
	Embedding []float32
	Limit     int
}

// MemoryEntryWithScore pairs an entry with its cosine similarity to the query.
type MemoryEntryWithScore struct {
	Entry *MemoryEntry
	Score float32
}
