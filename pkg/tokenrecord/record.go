//
// # Licensing
//
// This file is part of the GAuth project and is licensed under the Apache License 2.0.
// It incorporates code and concepts from:
//   - OAuth 2.0 and OpenID Connect (Apache 2.0 License)
//   - Model Context Protocol (MIT License)
// See the LICENSE file in the project root for details.

// Package tokenrecord holds the persistent TokenInfo record and the
// Adapter translating it to and from an internal/columnstore.Store.
package tokenrecord

import (
	"encoding/binary"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// PrincipalType is the closed set of principal kinds a token can be
// issued for.
type PrincipalType string

const (
	AdminUser       PrincipalType = "adminuser"
	ApplicationUser PrincipalType = "applicationuser"
	Organization    PrincipalType = "organization"
	Application     PrincipalType = "application"
)

// Principal identifies who a token was issued for. The zero value
// (Present == false) means the token carries no principal.
type Principal struct {
	Present       bool
	Type          PrincipalType
	EntityID      uuid.UUID
	ApplicationID uuid.UUID
}

// TokenInfo is the persistent record addressed by a token's embedded
// identifier.
type TokenInfo struct {
	UUID      uuid.UUID
	Type      string
	Created   int64 // milliseconds since epoch
	Accessed  int64 // milliseconds since epoch
	Inactive  int64 // milliseconds; longest observed gap between validations
	Principal Principal
	State     map[string]any
}

// TimestampFromUUID returns the milliseconds-since-epoch encoded in a
// version-1 time-ordered UUID.
func TimestampFromUUID(id uuid.UUID) int64 {
	sec, nsec := id.Time().UnixTime()
	return sec*1000 + nsec/1_000_000
}

func principalTypeFromString(s string) (PrincipalType, bool) {
	switch PrincipalType(strings.ToLower(s)) {
	case AdminUser:
		return AdminUser, true
	case ApplicationUser:
		return ApplicationUser, true
	case Organization:
		return Organization, true
	case Application:
		return Application, true
	default:
		// Unrecognized principal-type strings are silently treated as
		// an absent principal; this preserves the reference behavior
		// rather than failing the read.
		return "", false
	}
}

func putInt64(columns map[string][]byte, name string, v int64) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	columns[name] = buf
}

func getInt64(columns map[string][]byte, name string) (int64, bool) {
	buf, ok := columns[name]
	if !ok || len(buf) != 8 {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(buf)), true
}

func marshalState(state map[string]any) ([]byte, error) {
	if len(state) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(state)
}

func unmarshalState(raw []byte) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var state map[string]any
	if err := json.Unmarshal(raw, &state); err != nil {
		return map[string]any{}
	}
	if state == nil {
		state = map[string]any{}
	}
	return state
}
