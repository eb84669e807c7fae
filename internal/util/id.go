// Package util holds small shared helpers.
package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a collision-resistant random identifier. Records created in
// the same process in rapid sequence must never collide, so ids are drawn
// from crypto/rand rather than the clock. The prefix marks the record kind
// ("dec" for decisions, "res" for resources).
func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}
