package domain

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// HashAlgorithm identifies a supported forensic digest algorithm.
type HashAlgorithm string

const (
	HashSHA256     HashAlgorithm = "sha256"
	HashSHA384     HashAlgorithm = "sha384"
	HashSHA512     HashAlgorithm = "sha512"
	HashSHA3256    HashAlgorithm = "sha3-256"
	HashBLAKE2b256 HashAlgorithm = "blake2b-256"
)

// digestSizes maps each supported algorithm to its digest length in bytes.
var digestSizes = map[HashAlgorithm]int{
	HashSHA256:     sha256.Size,
	HashSHA384:     sha512.Size384,
	HashSHA512:     sha512.Size,
	HashSHA3256:    sha3.New256().Size(),
	HashBLAKE2b256: blake2b.Size256,
}

// SupportedHashAlgorithms lists the accepted forensic digest algorithms.
func SupportedHashAlgorithms() []HashAlgorithm {
	return []HashAlgorithm{HashSHA256, HashSHA384, HashSHA512, HashSHA3256, HashBLAKE2b256}
}

// ValidateDigest checks that digest is a well-formed hex string of the length
// the algorithm produces.
func ValidateDigest(algorithm HashAlgorithm, digest string) error {
	size, ok := digestSizes[algorithm]
	if !ok {
		return fmt.Errorf("unsupported hash algorithm %q", string(algorithm))
	}
	raw, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(digest)))
	if err != nil {
		return fmt.Errorf("digest is not valid hex: %w", err)
	}
	if len(raw) != size {
		return fmt.Errorf("digest length %d does not match %s (want %d bytes)", len(raw), string(algorithm), size)
	}
	return nil
}

// ForensicHash records one evidence digest attached to a ticket.
type ForensicHash struct {
	ID        string
	TicketID  string
	Algorithm HashAlgorithm
	Digest    string
	CreatedAt time.Time
	CreatedBy string
}
