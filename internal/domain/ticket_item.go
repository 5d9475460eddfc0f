package domain

import "time"

// TicketItemStatus tracks provider-side processing of a work item.
type TicketItemStatus string

const (
	TicketItemStatusUnprocessed TicketItemStatus = "unprocessed"
	TicketItemStatusProcessed   TicketItemStatus = "processed"
)

// TicketItemSettings holds per-item timing, in seconds.
type TicketItemSettings struct {
	UpdateMaxTime int
}

// TicketItem is one (target value, provider) unit of work derived from a
// ticket. All items sharing a value carry identical flags computed at
// creation; only IsError may change afterward.
type TicketItem struct {
	TicketID      string
	ItemID        string
	ProviderID    string
	Value         string
	Genre         Genre
	Status        TicketItemStatus
	IsActive      bool
	IsDuplicate   bool
	IsWhitelisted bool
	IsError       bool
	Settings      TicketItemSettings
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
