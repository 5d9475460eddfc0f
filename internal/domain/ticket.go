package domain

import "time"

// TicketStatus enumerates lifecycle states for compliance tickets.
type TicketStatus string

const (
	TicketStatusCreated TicketStatus = "CREATED"
	TicketStatusOpen    TicketStatus = "OPEN"
	TicketStatusClosed  TicketStatus = "CLOSED"
	TicketStatusFailed  TicketStatus = "FAILED"
)

// TicketSettings holds the timing windows fixed at creation, in seconds.
type TicketSettings struct {
	RevokeTime      int
	AutocloseTime   int
	ReportErrorTime int
}

// Ticket is the aggregate for a compliance report targeting domains and IPs.
// Tasks carries the identifiers of the scheduled tasks currently owned by the
// ticket; it must stay consistent with actually-live tasks.
type Ticket struct {
	ID          string
	DDAID       string
	Description string
	FQDN        []string
	IPv4        []string
	IPv6        []string
	AssignedTo  []string
	Status      TicketStatus
	Settings    TicketSettings
	Tasks       []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CreatedBy   string
}

// Values returns the target value set for a genre.
func (t *Ticket) Values(genre Genre) []string {
	switch genre {
	case GenreFQDN:
		return t.FQDN
	case GenreIPv4:
		return t.IPv4
	case GenreIPv6:
		return t.IPv6
	default:
		return nil
	}
}

// RevokeDeadline is the instant past which the ticket can no longer be removed.
func (t *Ticket) RevokeDeadline() time.Time {
	return t.CreatedAt.Add(time.Duration(t.Settings.RevokeTime) * time.Second)
}

// Removable reports whether the ticket is still inside its revoke window.
func (t *Ticket) Removable(now time.Time) bool {
	return now.Before(t.RevokeDeadline())
}
