//
// # Licensing
//
// This file is part of the GAuth project and is licensed under the Apache License 2.0.
// It incorporates code and concepts from:
//   - OAuth 2.0 and OpenID Connect (Apache 2.0 License)
//   - Model Context Protocol (MIT License)
// See the LICENSE file in the project root for details.

// Package tokencategory enumerates the recognized token kinds.
//
// Each Category carries a two-character text prefix (used as input to
// the signature), a two-character base64 prefix (the first bytes of
// the wire-format string, which must be the base64-url encoding of the
// text prefix), and a flag saying whether tokens of this kind embed an
// absolute expiration.
package tokencategory

import "errors"

// Category identifies one of the four recognized token kinds.
type Category uint8

const (
	// Access tokens carry an absolute expiration.
	Access Category = iota
	// Refresh tokens do not carry an absolute expiration in the wire format.
	Refresh
	// Email tokens do not carry an absolute expiration in the wire format.
	Email
	// Offline tokens do not carry an absolute expiration in the wire format.
	Offline
)

// base64PrefixLength is the number of bytes of base64-url text that
// precede the encoded body in a wire-format token string.
const base64PrefixLength = 2

// ErrUnknownPrefix is returned when a string's leading two bytes match
// no registered category.
var ErrUnknownPrefix = errors.New("tokencategory: unrecognized prefix")

type descriptor struct {
	category          Category
	textPrefix        string
	base64Prefix      string
	carriesExpiration bool
}

// registry is built once; ordering matches the closed set in the spec.
var registry = [...]descriptor{
	{Access, "ac", "YW", true},
	{Refresh, "re", "cm", false},
	{Email, "em", "ZW", false},
	{Offline, "of", "b2", false},
}

var byBase64Prefix = func() map[string]descriptor {
	m := make(map[string]descriptor, len(registry))
	for _, d := range registry {
		m[d.base64Prefix] = d
	}
	return m
}()

// TextPrefix returns the two-byte prefix signed as part of the token.
func (c Category) TextPrefix() string {
	return registry[c].textPrefix
}

// Base64Prefix returns the two leading bytes of the encoded wire string.
func (c Category) Base64Prefix() string {
	return registry[c].base64Prefix
}

// CarriesExpiration reports whether tokens of this category embed an
// absolute expiration in the wire format.
func (c Category) CarriesExpiration() bool {
	return registry[c].carriesExpiration
}

// String implements fmt.Stringer with the category's text prefix.
func (c Category) String() string {
	if int(c) >= len(registry) {
		return "unknown"
	}
	return registry[c].textPrefix
}

// FromBase64String determines the category from the first two bytes of
// a wire-format token string.
func FromBase64String(s string) (Category, error) {
	if len(s) < base64PrefixLength {
		return 0, ErrUnknownPrefix
	}
	d, ok := byBase64Prefix[s[:base64PrefixLength]]
	if !ok {
		return 0, ErrUnknownPrefix
	}
	return d.category, nil
}

// Base64PrefixLength is the constant width of a category's base64
// prefix, used by the codec to locate where the encoded body starts.
const Base64PrefixLength = base64PrefixLength
