package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/compliance-core/internal/domain"
)

func newRelationFixture(items *fakeItemRepo, whitelist *fakeWhitelistRepo) *RelationService {
	return NewRelationService(items, whitelist, domain.TicketItemSettings{UpdateMaxTime: 1800}, zap.NewNop())
}

func TestEstablishFansOutAllCombinations(t *testing.T) {
	items := newFakeItemRepo()
	svc := newRelationFixture(items, &fakeWhitelistRepo{})

	providers := []string{"isp-1", "isp-2", "isp-3"}
	result, err := svc.Establish(context.Background(), "ticket-1", providers,
		[]string{"a.example.com", "b.example.com"}, []string{"192.0.2.1"}, nil)
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}

	if got := items.count(); got != 9 {
		t.Fatalf("items = %d, want 3 values x 3 providers = 9", got)
	}
	if len(result.FQDN) != 2 || len(result.IPv4) != 1 || len(result.IPv6) != 0 {
		t.Fatalf("result groups = %d/%d/%d, want 2/1/0", len(result.FQDN), len(result.IPv4), len(result.IPv6))
	}

	// every value gets one item per provider, sharing a single item id
	byValue := map[string][]domain.TicketItem{}
	for _, item := range items.items {
		byValue[item.Value] = append(byValue[item.Value], item)
	}
	for value, group := range byValue {
		if len(group) != len(providers) {
			t.Fatalf("value %q has %d items, want %d", value, len(group), len(providers))
		}
		seen := map[string]struct{}{}
		for _, item := range group {
			if item.ItemID != group[0].ItemID {
				t.Fatalf("value %q items carry differing item ids", value)
			}
			if item.TicketID != "ticket-1" {
				t.Fatalf("item ticket id = %q", item.TicketID)
			}
			if item.Status != domain.TicketItemStatusUnprocessed {
				t.Fatalf("item status = %q, want unprocessed", item.Status)
			}
			if !item.IsActive || item.IsDuplicate || item.IsWhitelisted || item.IsError {
				t.Fatalf("unexpected flags on clean value %q: %+v", value, item)
			}
			if item.Settings.UpdateMaxTime != 1800 {
				t.Fatalf("item update max time = %d", item.Settings.UpdateMaxTime)
			}
			seen[item.ProviderID] = struct{}{}
		}
		if len(seen) != len(providers) {
			t.Fatalf("value %q not fanned out to all providers: %v", value, seen)
		}
	}
}

func TestEstablishFlagsDuplicatesAndWhitelist(t *testing.T) {
	items := newFakeItemRepo()
	items.active[domain.GenreFQDN] = []string{"dup.example.com"}
	whitelist := &fakeWhitelistRepo{entries: []domain.WhitelistEntry{
		{Genre: domain.GenreFQDN, Value: "safe.example.com", IsActive: true},
		{Genre: domain.GenreIPv4, Value: "10.0.0.0/8", IsCIDR: true, IsActive: true},
	}}
	svc := newRelationFixture(items, whitelist)

	result, err := svc.Establish(context.Background(), "ticket-1", []string{"isp-1"},
		[]string{"dup.example.com", "safe.example.com", "clean.example.com"},
		[]string{"10.1.2.3", "192.0.2.1"}, nil)
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}

	flags := map[string][2]bool{}
	for _, group := range [][]ClassifiedValue{result.FQDN, result.IPv4} {
		for _, classified := range group {
			flags[classified.Value] = [2]bool{classified.IsDuplicate, classified.IsWhitelisted}
		}
	}

	want := map[string][2]bool{
		"dup.example.com":   {true, false},
		"safe.example.com":  {false, true},
		"clean.example.com": {false, false},
		"10.1.2.3":          {false, true}, // inside the 10.0.0.0/8 range
		"192.0.2.1":         {false, false},
	}
	for value, expected := range want {
		got, ok := flags[value]
		if !ok {
			t.Fatalf("value %q missing from result", value)
		}
		if got != expected {
			t.Fatalf("value %q flags (dup, whitelisted) = %v, want %v", value, got, expected)
		}
	}

	// flagged values are still inserted; flags travel on the items
	for _, item := range items.items {
		expected := want[item.Value]
		if item.IsDuplicate != expected[0] || item.IsWhitelisted != expected[1] {
			t.Fatalf("item %q flags = (%v, %v), want %v", item.Value, item.IsDuplicate, item.IsWhitelisted, expected)
		}
	}
}

func TestEstablishRequiresProviders(t *testing.T) {
	items := newFakeItemRepo()
	svc := newRelationFixture(items, &fakeWhitelistRepo{})

	_, err := svc.Establish(context.Background(), "ticket-1", nil, []string{"a.example.com"}, nil, nil)
	if code := domainCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("code = %s, want VALIDATION_FAILED", code)
	}
	if items.count() != 0 {
		t.Fatal("no items expected")
	}
}

func TestEstablishBatchFailureLeavesNoItems(t *testing.T) {
	items := newFakeItemRepo()
	items.failBatch = true
	svc := newRelationFixture(items, &fakeWhitelistRepo{})

	_, err := svc.Establish(context.Background(), "ticket-1", []string{"isp-1"}, []string{"a.example.com"}, nil, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if items.count() != 0 {
		t.Fatal("failed batch must leave no items visible")
	}
}

func TestAbandonRemovesOnlyThisTicket(t *testing.T) {
	items := newFakeItemRepo()
	_ = items.CreateBatch(context.Background(), []domain.TicketItem{
		{TicketID: "ticket-1", ItemID: "i1", ProviderID: "isp-1"},
		{TicketID: "ticket-1", ItemID: "i1", ProviderID: "isp-2"},
		{TicketID: "ticket-2", ItemID: "i2", ProviderID: "isp-1"},
	})
	svc := newRelationFixture(items, &fakeWhitelistRepo{})

	if err := svc.Abandon(context.Background(), "ticket-1"); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if items.count() != 1 || items.items[0].TicketID != "ticket-2" {
		t.Fatalf("remaining items = %+v, want only ticket-2's", items.items)
	}
}
