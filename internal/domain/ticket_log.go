package domain

import "time"

// TicketLog is one append-only audit line attached to a ticket.
type TicketLog struct {
	ID        string
	TicketID  string
	Message   string
	CreatedAt time.Time
}
