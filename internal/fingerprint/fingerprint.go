// Package fingerprint computes the content identity of a document: a
// whitespace-normalized form of its text, a stable content hash over that
// form, and a compact signature derived from its embedding.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
)

// Normalize collapses all runs of whitespace to single spaces and trims the
// ends. Case is preserved. Two byte-identical normalized texts always hash
// equal, and differing normalized texts practically never collide.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Hash returns the hex-encoded SHA-256 digest of the normalized text.
// Deterministic across calls and process restarts.
func Hash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Signature returns a compact hex sketch of an embedding: one bit per
// dimension, set when the component is non-negative. It is a stored
// breadcrumb for near-duplicate records; actual near-duplicate detection
// runs through the vector index.
func Signature(embedding []float32) string {
	if len(embedding) == 0 {
		return ""
	}
	bits := make([]byte, (len(embedding)+7)/8)
	for i, v := range embedding {
		if v >= 0 {
			bits[i/8] |= 1 << (uint(i) % 8)
		}
	}
	return hex.EncodeToString(bits)
}

// Cosine returns the cosine similarity of two vectors, or 0 when either has
// zero magnitude or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
