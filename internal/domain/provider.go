package domain

import "time"

// Provider is an ISP account that receives work items for blocking.
type Provider struct {
	AccountID string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// DDA is a reporter-held authorization identifying which instance a reporter
// may file tickets under.
type DDA struct {
	DDAID      string
	Instance   string
	AccountID  string
	IsActive   bool
	CreatedAt  time.Time
	AssignedAt time.Time
}
