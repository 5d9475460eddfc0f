// Package matching builds the per-run snapshot used to classify ticket
// values. A cache is built once per relation establishment, held privately by
// that invocation and discarded afterward; it is never shared or refreshed.
package matching

import (
	"context"
	"net/netip"

	"github.com/spec-kit/compliance-core/internal/domain"
)

// DuplicateSource yields the values of currently-active work items, grouped
// by genre.
type DuplicateSource interface {
	ActiveValuesByGenre(ctx context.Context) (map[domain.Genre][]string, error)
}

// WhitelistSource yields the currently-active whitelist entries.
type WhitelistSource interface {
	GetActive(ctx context.Context) ([]domain.WhitelistEntry, error)
}

// Cache is a point-in-time snapshot of duplicate and whitelist state. The
// snapshot is approximate: tickets created concurrently with the build may be
// missed, which is an accepted race.
type Cache struct {
	duplicates map[domain.Genre]map[string]struct{}
	exact      map[domain.Genre]map[string]struct{}
	cidrs      map[domain.Genre][]netip.Prefix
}

// BuildCache reads both sources and assembles the snapshot.
func BuildCache(ctx context.Context, items DuplicateSource, whitelist WhitelistSource) (*Cache, error) {
	cache := newCache()

	active, err := items.ActiveValuesByGenre(ctx)
	if err != nil {
		return nil, err
	}
	for genre, values := range active {
		for _, value := range values {
			cache.duplicates[genre][value] = struct{}{}
		}
	}

	entries, err := whitelist.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsCIDR {
			prefix, err := netip.ParsePrefix(entry.Value)
			if err != nil {
				// malformed range in storage; skip rather than poison the run
				continue
			}
			cache.cidrs[entry.Genre] = append(cache.cidrs[entry.Genre], prefix)
			continue
		}
		cache.exact[entry.Genre][entry.Value] = struct{}{}
	}

	return cache, nil
}

func newCache() *Cache {
	cache := &Cache{
		duplicates: make(map[domain.Genre]map[string]struct{}),
		exact:      make(map[domain.Genre]map[string]struct{}),
		cidrs:      make(map[domain.Genre][]netip.Prefix),
	}
	for _, genre := range domain.Genres() {
		cache.duplicates[genre] = make(map[string]struct{})
		cache.exact[genre] = make(map[string]struct{})
	}
	return cache
}

// IsDuplicate reports whether another active ticket already targets the value.
func (c *Cache) IsDuplicate(genre domain.Genre, value string) bool {
	_, ok := c.duplicates[genre][value]
	return ok
}

// IsWhitelisted reports whether the value is exempted, either by exact match
// or, for the IP genres, by falling inside any active CIDR range. Any
// containing range suffices; there is no precedence between ranges.
func (c *Cache) IsWhitelisted(genre domain.Genre, value string) bool {
	if _, ok := c.exact[genre][value]; ok {
		return true
	}

	switch genre {
	case domain.GenreIPv4, domain.GenreIPv6:
		addr, err := netip.ParseAddr(value)
		if err != nil {
			return false
		}
		for _, prefix := range c.cidrs[genre] {
			if prefix.Contains(addr) {
				return true
			}
		}
	case domain.GenreFQDN:
		// no range semantics for domain names
	}
	return false
}
