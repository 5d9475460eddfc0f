package domain

import (
	"strings"
	"testing"
)

func TestParseGenre(t *testing.T) {
	cases := []struct {
		raw  string
		want Genre
		ok   bool
	}{
		{"fqdn", GenreFQDN, true},
		{"IPv4", GenreIPv4, true},
		{" ipv6 ", GenreIPv6, true},
		{"hostname", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseGenre(tc.raw)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParseGenre(%q) = (%q, %v), want %q", tc.raw, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParseGenre(%q) accepted", tc.raw)
		}
	}
}

func TestValidateValue(t *testing.T) {
	cases := []struct {
		genre Genre
		value string
		ok    bool
	}{
		{GenreFQDN, "example.com", true},
		{GenreFQDN, "sub.stream.example.co.uk", true},
		{GenreFQDN, "xn--bcher-kva.example", true},
		{GenreFQDN, "-leading.example.com", false},
		{GenreFQDN, "nodot", false},
		{GenreFQDN, "spa ce.example.com", false},
		{GenreFQDN, strings.Repeat("a", 250) + ".example.com", false},
		{GenreFQDN, "192.0.2.1", false},

		{GenreIPv4, "192.0.2.1", true},
		{GenreIPv4, "0.0.0.0", true},
		{GenreIPv4, "256.0.0.1", false},
		{GenreIPv4, "192.0.2", false},
		{GenreIPv4, "2001:db8::1", false},
		{GenreIPv4, "::ffff:192.0.2.1", false},

		{GenreIPv6, "2001:db8::1", true},
		{GenreIPv6, "::1", true},
		{GenreIPv6, "192.0.2.1", false},
		{GenreIPv6, "::ffff:192.0.2.1", false}, // 4-in-6 stays with the ipv4 genre
		{GenreIPv6, "2001:db8::zzzz", false},
	}
	for _, tc := range cases {
		err := tc.genre.ValidateValue(tc.value)
		if tc.ok && err != nil {
			t.Fatalf("%s.ValidateValue(%q): unexpected error %v", tc.genre, tc.value, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s.ValidateValue(%q): accepted", tc.genre, tc.value)
		}
	}
}

func TestValidateValueUnknownGenre(t *testing.T) {
	if err := Genre("hostname").ValidateValue("example.com"); err == nil {
		t.Fatal("unknown genre must reject everything")
	}
}
