package store

type Task struct {
	ID        int64
	UID       string
	TenantID  string
	UserID    string
	Title     string
	DueTs     *int64
	Done      bool
	CreatedTs int64
}

type FindTask struct {
	TenantID string
	ID       *int64
	Done     *bool
}

type UpdateTask struct {
	ID       int64
	TenantID string
	Done     *bool
}
