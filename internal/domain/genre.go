package domain

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"
)

// Genre is the closed set of target value kinds a ticket may carry.
type Genre string

const (
	GenreFQDN Genre = "fqdn"
	GenreIPv4 Genre = "ipv4"
	GenreIPv6 Genre = "ipv6"
)

// Genres returns every genre in a stable order.
func Genres() []Genre {
	return []Genre{GenreFQDN, GenreIPv4, GenreIPv6}
}

// ParseGenre maps a raw string onto the closed genre set.
func ParseGenre(raw string) (Genre, error) {
	switch Genre(strings.ToLower(strings.TrimSpace(raw))) {
	case GenreFQDN:
		return GenreFQDN, nil
	case GenreIPv4:
		return GenreIPv4, nil
	case GenreIPv6:
		return GenreIPv6, nil
	default:
		return "", fmt.Errorf("unknown genre %q", raw)
	}
}

var fqdnPattern = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,63}$`)

// ValidateValue checks a single target value against its genre's syntax.
func (g Genre) ValidateValue(value string) error {
	switch g {
	case GenreFQDN:
		if len(value) > 255 || !fqdnPattern.MatchString(value) {
			return fmt.Errorf("not a valid fully qualified domain name: %q", value)
		}
		return nil
	case GenreIPv4:
		addr, err := netip.ParseAddr(value)
		if err != nil || !addr.Is4() {
			return fmt.Errorf("not a valid IPv4 address: %q", value)
		}
		return nil
	case GenreIPv6:
		addr, err := netip.ParseAddr(value)
		if err != nil || !addr.Is6() || addr.Is4In6() {
			return fmt.Errorf("not a valid IPv6 address: %q", value)
		}
		return nil
	default:
		return fmt.Errorf("unknown genre %q", string(g))
	}
}
