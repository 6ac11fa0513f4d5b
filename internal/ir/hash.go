package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainQuery = "qnorm/query/v1"
	DomainMemo  = "qnorm/memo/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// QueryHash computes the content-addressed identity of a query tree.
// Trees that are Equal produce the same hash, except that an IRString and an
// IRToken with identical text also hash identically.
func QueryHash(v IRValue) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("QueryHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainQuery, canonical), nil
}

// MustQueryHash is like QueryHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustQueryHash(v IRValue) string {
	h, err := QueryHash(v)
	if err != nil {
		panic(err)
	}
	return h
}

// MemoHash computes the memoization key of a raw input. It hashes the tagged
// encoding, so inputs that QueryHash treats as identical but the normalizer
// treats differently (IRInt(10) and IRFloat(10), a string and a token, a
// timestamp and its text) get different keys.
func MemoHash(v IRValue) (string, error) {
	tagged, err := MarshalTagged(v)
	if err != nil {
		return "", fmt.Errorf("MemoHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainMemo, tagged), nil
}

// MustMemoHash is like MemoHash but panics on error.
func MustMemoHash(v IRValue) string {
	h, err := MemoHash(v)
	if err != nil {
		panic(err)
	}
	return h
}
