package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusTodo       TicketStatus = "TODO"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusDone       TicketStatus = "DONE"
)

// TicketPriority enumerates triage urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// NormalizePriority maps an arbitrary priority string onto the enumerated
// values. Anything outside low/medium/high, including the empty string,
// becomes medium.
func NormalizePriority(value string) TicketPriority {
	switch TicketPriority(value) {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return TicketPriority(value)
	default:
		return TicketPriorityMedium
	}
}

// NormalizeStatus maps an arbitrary status string onto the enumerated
// values. Anything unrecognized becomes IN_PROGRESS, the state a ticket is in
// while triage works on it.
func NormalizeStatus(value string) TicketStatus {
	switch TicketStatus(value) {
	case TicketStatusTodo, TicketStatusInProgress, TicketStatusDone:
		return TicketStatus(value)
	default:
		return TicketStatusInProgress
	}
}

// Ticket is the aggregate for support requests. Status stays empty until the
// triage workflow picks the ticket up; AssignedTo is nil while unassigned.
type Ticket struct {
	ID            string
	Title         string
	Description   string
	Status        TicketStatus
	Priority      TicketPriority
	HelpfulNotes  string
	RelatedSkills []string
	AssignedTo    *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
