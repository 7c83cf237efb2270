// Package identity derives pseudo-address identities for ledger-tracked
// entities: keccak256 over stable attributes, truncated to 20 bytes and
// EIP-55 checksummed.
package identity

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/zs0c131y/TrustVault-sub000/internal/domain/model"
)

// now is swapped out in tests.
var now = time.Now

func keccak(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// Checksum formats a 20-byte value as an EIP-55 checksummed hex address.
func Checksum(addr [20]byte) string {
	lower := hex.EncodeToString(addr[:])
	hash := keccak([]byte(lower))

	out := make([]byte, len(lower))
	for i, c := range []byte(lower) {
		if c >= 'a' && c <= 'f' {
			nibble := hash[i/2]
			if i%2 == 0 {
				nibble >>= 4
			}
			if nibble&0x0f >= 8 {
				c -= 'a' - 'A'
			}
		}
		out[i] = c
	}
	return "0x" + string(out)
}

// IsAddress reports whether s looks like a 20-byte hex address. Casing is
// not verified against the checksum; the store holds identities minted by
// multiple historical derivations.
func IsAddress(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	_, err := hex.DecodeString(s[2:])
	return err == nil
}

func derive(parts ...string) string {
	var addr [20]byte
	sum := keccak([]byte(strings.Join(parts, "|")))
	copy(addr[:], sum[:20])
	return Checksum(addr)
}

// ForProperty derives the identity of a registrable property from its
// domain-stable attributes. Equal inputs always yield equal output.
func ForProperty(domainID, name, locality string) (string, error) {
	for _, in := range []struct{ field, v string }{
		{"domainId", domainID}, {"name", name}, {"locality", locality},
	} {
		if strings.TrimSpace(in.v) == "" {
			return "", fmt.Errorf("%w: %s is required", model.ErrValidation, in.field)
		}
	}
	return derive(domainID, name, locality), nil
}

// ForDocument derives the identity of a document-verification request. The
// hash preimage includes the current wall-clock nanos, so repeated calls for
// the same request yield different identities. Each verification request
// mints a fresh identity; downstream merging deduplicates by value.
func ForDocument(domainID, documentType string) (string, error) {
	for _, in := range []struct{ field, v string }{
		{"domainId", domainID}, {"documentType", documentType},
	} {
		if strings.TrimSpace(in.v) == "" {
			return "", fmt.Errorf("%w: %s is required", model.ErrValidation, in.field)
		}
	}
	return derive(domainID, documentType, fmt.Sprintf("%d", now().UnixNano())), nil
}
