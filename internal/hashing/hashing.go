// v0
// internal/hashing/hashing.go

// Package hashing provides the digest functions used to link and sign ledger
// records. Any single-argument byte-to-digest function can be plugged in.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
	"lukechampine.com/blake3"
)

// Func maps arbitrary bytes to a fixed-width digest.
type Func func(data []byte) []byte

const (
	// AlgorithmSHA256 selects crypto/sha256.
	AlgorithmSHA256 = "sha256"
	// AlgorithmBLAKE2b selects BLAKE2b with a 256-bit output.
	AlgorithmBLAKE2b = "blake2b"
	// AlgorithmBLAKE3 selects BLAKE3 with a 256-bit output.
	AlgorithmBLAKE3 = "blake3"
)

// GenesisMarker is the sentinel hashed to produce the first record's link.
const GenesisMarker = "genesis_block"

// SHA256 returns the SHA-256 digest of data.
func SHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// BLAKE2b returns the 256-bit BLAKE2b digest of data.
func BLAKE2b(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

// BLAKE3 returns the 256-bit BLAKE3 digest of data.
func BLAKE3(data []byte) []byte {
	sum := blake3.Sum256(data)
	return sum[:]
}

// Hex renders the digest of data as lowercase hex.
func Hex(f Func, data []byte) string {
	return hex.EncodeToString(f(data))
}

// HexString is Hex for string input.
func HexString(f Func, s string) string {
	return Hex(f, []byte(s))
}

// Genesis returns the hex digest of GenesisMarker under f.
func Genesis(f Func) string {
	return HexString(f, GenesisMarker)
}

// Lookup resolves a configured algorithm name. An empty name selects SHA-256.
func Lookup(name string) (Func, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", AlgorithmSHA256:
		return SHA256, nil
	case AlgorithmBLAKE2b:
		return BLAKE2b, nil
	case AlgorithmBLAKE3:
		return BLAKE3, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", name)
	}
}
