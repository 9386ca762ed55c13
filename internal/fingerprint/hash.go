// Package fingerprint computes perceptual fingerprints for video frames
// and the similarity scores between them. A fingerprint carries a pHash
// (DCT low-frequency hash, authoritative for grouping), a dHash
// (gradient-sign hash, kept for diagnostics) and an intensity histogram
// used only for coarse triage.
package fingerprint

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"strconv"
)

// DefaultHashSize is the side length of the hash grid; the resulting
// hashes are DefaultHashSize^2 = 64 bits.
const DefaultHashSize = 8

// Hash is a perceptual hash of up to 64 bits. The bit length travels
// with the value so that hashes produced under different configurations
// cannot be silently compared.
type Hash struct {
	bits   uint64
	length int
}

// NewHash builds a hash from raw bits and an explicit bit length.
func NewHash(bits uint64, length int) Hash {
	return Hash{bits: bits, length: length}
}

// Bits returns the raw hash bits.
func (h Hash) Bits() uint64 { return h.bits }

// BitLength returns the number of significant bits.
func (h Hash) BitLength() int { return h.length }

// IsZero reports whether the hash is the zero value (no fingerprint).
func (h Hash) IsZero() bool { return h.length == 0 }

// String renders the hash as lowercase hex, one character per 4 bits,
// matching the on-disk metadata encoding.
func (h Hash) String() string {
	digits := (h.length + 3) / 4
	return fmt.Sprintf("%0*x", digits, h.bits)
}

// ParseHash parses a hex-encoded hash produced by String.
func ParseHash(s string) (Hash, error) {
	if s == "" {
		return Hash{}, fmt.Errorf("fingerprint: empty hash")
	}
	if len(s) > 16 {
		return Hash{}, fmt.Errorf("fingerprint: hash %q longer than 64 bits", s)
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return Hash{}, fmt.Errorf("fingerprint: invalid hash %q: %w", s, err)
	}
	return Hash{bits: v, length: len(s) * 4}, nil
}

// MarshalJSON encodes the hash as its hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a hex string hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HammingDistance counts differing bits between two equal-length hashes.
func HammingDistance(a, b Hash) (int, error) {
	if a.length != b.length {
		return 0, fmt.Errorf("fingerprint: hash length mismatch (%d vs %d bits)", a.length, b.length)
	}
	return bits.OnesCount64(a.bits ^ b.bits), nil
}

// HammingSimilarity maps Hamming distance to [0, 1]: identical hashes
// score 1. It is symmetric; comparing hashes of different lengths is a
// configuration error and returns a non-nil error.
func HammingSimilarity(a, b Hash) (float64, error) {
	dist, err := HammingDistance(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - float64(dist)/float64(a.length), nil
}
