package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// ComputeOptionsHash computes a deterministic options hash using SHA256.
// Fields are sorted by name so map iteration order never leaks into the
// hash. Formula: SHA256(k1=v1|k2=v2|...)
// Returns hex-encoded hash (64 characters).
func ComputeOptionsHash(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])
}

// ComputeCacheKey computes a deterministic cache key for a detector call.
// Formula: SHA256(detector|identity|optionsHash), truncated to 32 hex chars.
func ComputeCacheKey(detector, identity, optionsHash string) string {
	data := fmt.Sprintf("%s|%s|%s", detector, identity, optionsHash)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}
