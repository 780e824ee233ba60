package store

type Contact struct {
	ID        int64
	UID       string
	TenantID  string
	Name      string
	Phone     string
	CreatedTs int64
}

type FindContact struct {
	TenantID string
	// Name matches as a case-insensitive substring.
	Name *string
}
