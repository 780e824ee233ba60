package store

import "slices"

// NegotiationStatus is the state of a meeting-time negotiation with an external attendee.
type NegotiationStatus string

const (
	NegotiationInitiated       NegotiationStatus = "initiated"
	NegotiationSlotsSent       NegotiationStatus = "slots_sent"
	NegotiationWaitingResponse NegotiationStatus = "waiting_response"
	NegotiationNegotiating     NegotiationStatus = "negotiating"
	NegotiationConfirmed       NegotiationStatus = "confirmed"
	NegotiationCancelled       NegotiationStatus = "cancelled"
)

var negotiationTransitions = map[NegotiationStatus][]NegotiationStatus{
	NegotiationInitiated:       {NegotiationSlotsSent, NegotiationCancelled},
	NegotiationSlotsSent:       {NegotiationWaitingResponse, NegotiationNegotiating, NegotiationCancelled},
	NegotiationWaitingResponse: {NegotiationNegotiating, NegotiationConfirmed, NegotiationCancelled},
	NegotiationNegotiating:     {NegotiationWaitingResponse, NegotiationConfirmed, NegotiationCancelled},
}

// IsTerminal reports whether no further transition is possible.
func (s NegotiationStatus) IsTerminal() bool {
	return s == NegotiationConfirmed || s == NegotiationCancelled
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s NegotiationStatus) CanTransitionTo(next NegotiationStatus) bool {
	return slices.Contains(negotiationTransitions[s], next)
}

type Negotiation struct {
	ID        int64
	UID       string
	TenantID  string
	UserID    string
	Attendee  string
	Topic     string
	// Slots holds the proposed time slots, newline separated.
	Slots     string
	Status    NegotiationStatus
	CreatedTs int64
	UpdatedTs int64
}

type FindNegotiation struct {
	TenantID string
	UID      *string
	Attendee *string
}

type UpdateNegotiation struct {
	ID        int64
	TenantID  string
	Status    NegotiationStatus
	UpdatedTs int64
}
