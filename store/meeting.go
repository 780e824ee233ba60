package store

type MeetingStatus string

const (
	MeetingStatusScheduled MeetingStatus = "scheduled"
	MeetingStatusCancelled MeetingStatus = "cancelled"
)

type Meeting struct {
	ID              int64
	UID             string
	TenantID        string
	UserID          string
	Title           string
	Attendee        string
	StartTs         int64
	DurationMinutes int
	Status          MeetingStatus
	CreatedTs       int64
}

type FindMeeting struct {
	TenantID    string
	StartAfter  *int64
	StartBefore *int64
	// Title matches as a case-insensitive substring.
	Title  *string
	Status *MeetingStatus
}

type UpdateMeeting struct {
	ID       int64
	TenantID string
	StartTs  *int64
	Status   *MeetingStatus
}
