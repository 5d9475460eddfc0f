package domain

import "time"

// WhitelistEntry exempts a value, or a CIDR range for the IP genres, from
// blocking. Exempted values are never fanned out as blockable work.
type WhitelistEntry struct {
	ID        string
	Genre     Genre
	Value     string
	IsCIDR    bool
	IsActive  bool
	CreatedAt time.Time
	CreatedBy string
}
