// Package hashutil computes the 20-character truncated SHA-256 content
// hash used as the primary key throughout the store and manifest
// (spec.md §3 "Hash").
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"

	"syslua/internal/canonjson"
)

// Hash is a 20-character lowercase hex prefix of SHA-256 over a
// canonical-JSON definition.
type Hash string

const Length = 20

var validHash = regexp.MustCompile(`^[0-9a-f]{20}$`)

// Valid reports whether h has the expected shape. It does not verify that
// any object with this hash actually exists.
func (h Hash) Valid() bool { return validHash.MatchString(string(h)) }

func (h Hash) String() string { return string(h) }

// Of computes the truncated SHA-256 hash of v's canonical JSON form.
func Of(v any) (Hash, error) {
	raw, err := canonjson.Marshal(v)
	if err != nil {
		return "", err
	}
	return OfBytes(raw), nil
}

// OfBytes hashes raw bytes directly (used for file/content hashing outside
// of canonical-JSON definitions, e.g. naming a fetched artifact by its
// content).
func OfBytes(raw []byte) Hash {
	sum := sha256.Sum256(raw)
	return Hash(hex.EncodeToString(sum[:])[:Length])
}

// Hex256 returns the full, untruncated lowercase-hex SHA-256 of raw. Used
// for FetchUrl integrity verification, where the spec's sha256 field is a
// full digest, not a truncated content hash.
func Hex256(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
