// Package hash computes the content-address identifiers used throughout the
// codec: a fixed 32-byte digest rendered as a URL-safe alphanumeric string,
// suitable as both a symbol identifier and a file name.
package hash

import (
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2s"
)

// Sum returns the content-address identifier for data: a blake2s-256 digest
// rendered in base58. The encoding has no path-separator characters and is
// well under the 64-character bound the identifier format requires.
func Sum(data []byte) string {
	digest := blake2s.Sum256(data)
	return base58.Encode(digest[:])
}
