//
// # Licensing
//
// This file is part of the GAuth project and is licensed under the Apache License 2.0.
// It incorporates code and concepts from:
//   - OAuth 2.0 and OpenID Connect (Apache 2.0 License)
//   - Model Context Protocol (MIT License)
// See the LICENSE file in the project root for details.

// Package tokensign computes the keyed digest that authenticates a
// token's category, identifier, and expiration against a shared secret.
//
// The digest is SHA-1, kept for wire compatibility with already-issued
// tokens (see the design notes on signing-algorithm upgrades). It is
// used strictly as a keyed MAC over its inputs; collision resistance of
// SHA-1 itself is not relied upon.
package tokensign

import (
	"crypto/sha1" //nolint:gosec // kept for wire compatibility with already-issued tokens; see package doc
	"crypto/subtle"
	"strconv"

	"github.com/google/uuid"

	"github.com/gimelauth/tokensvc/pkg/tokencategory"
)

// Size is the digest length in bytes.
const Size = sha1.Size

// NoExpiration is the sentinel written in place of an absolute
// expiration for categories that don't carry one.
const NoExpiration int64 = 1<<63 - 1 // math.MaxInt64, spelled out to avoid an import for one constant

// Sign computes the 20-byte keyed digest over, in order with no
// delimiter: the category's text prefix, the canonical 36-character
// UUID string, the secret salt, and the decimal string form of
// expires (NoExpiration when the category carries none).
func Sign(category tokencategory.Category, id uuid.UUID, salt string, expires int64) [Size]byte {
	h := sha1.New() //nolint:gosec // see package doc
	h.Write([]byte(category.TextPrefix()))
	h.Write([]byte(id.String()))
	h.Write([]byte(salt))
	h.Write([]byte(strconv.FormatInt(expires, 10)))

	var out [Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Verify reports whether sig is the correct digest for the given
// inputs, using a constant-time comparison.
func Verify(category tokencategory.Category, id uuid.UUID, salt string, expires int64, sig []byte) bool {
	expected := Sign(category, id, salt, expires)
	return len(sig) == Size && subtle.ConstantTimeCompare(expected[:], sig) == 1
}

// SignV2 is the forward-compatible signing form called for in the
// design notes: it inserts a single 0x00 separator between fields so
// the signed string can never be reinterpreted as a different
// (uuid, salt) pair. No category in the current registry requests it;
// it exists so a future versioned category can opt in without a new
// package.
func SignV2(category tokencategory.Category, id uuid.UUID, salt string, expires int64) [Size]byte {
	h := sha1.New() //nolint:gosec // see package doc
	sep := []byte{0}
	h.Write([]byte(category.TextPrefix()))
	h.Write(sep)
	h.Write([]byte(id.String()))
	h.Write(sep)
	h.Write([]byte(salt))
	h.Write(sep)
	h.Write([]byte(strconv.FormatInt(expires, 10)))

	var out [Size]byte
	copy(out[:], h.Sum(nil))
	return out
}
