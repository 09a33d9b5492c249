package tokenrecord

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gimelauth/tokensvc/internal/columnstore"
	"github.com/gimelauth/tokensvc/pkg/tokenerrors"
)

const (
	columnUUID        = "uuid"
	columnType        = "type"
	columnCreated     = "created"
	columnAccessed    = "accessed"
	columnInactive    = "inactive"
	columnPrincipal   = "principal"
	columnEntity      = "entity"
	columnApplication = "application"
	columnState       = "state"
)

var requiredColumns = []string{columnUUID, columnType, columnCreated, columnAccessed, columnInactive}

// Adapter translates between a TokenInfo and a column map in a
// columnstore.Store, holding the TTL every write uses.
type Adapter struct {
	store             columnstore.Store
	maxPersistenceAge time.Duration
}

// NewAdapter builds an Adapter writing every column with TTL
// maxPersistenceAge.
func NewAdapter(store columnstore.Store, maxPersistenceAge time.Duration) *Adapter {
	return &Adapter{store: store, maxPersistenceAge: maxPersistenceAge}
}

// Put writes the full record as a single batch.
func (a *Adapter) Put(ctx context.Context, info TokenInfo) error {
	columns := make(map[string][]byte, 9)
	columns[columnUUID] = mustMarshalBinary(info.UUID)
	columns[columnType] = []byte(info.Type)
	putInt64(columns, columnCreated, info.Created)
	putInt64(columns, columnAccessed, info.Accessed)
	putInt64(columns, columnInactive, info.Inactive)

	if info.Principal.Present {
		columns[columnPrincipal] = []byte(string(info.Principal.Type))
		columns[columnEntity] = mustMarshalBinary(info.Principal.EntityID)
		columns[columnApplication] = mustMarshalBinary(info.Principal.ApplicationID)
	}

	state, err := marshalState(info.State)
	if err != nil {
		return tokenerrors.Wrap(tokenerrors.StoreError, "marshal token state", err)
	}
	columns[columnState] = state

	if err := a.store.SetColumns(ctx, rowKey(info.UUID), columns, a.maxPersistenceAge); err != nil {
		return tokenerrors.Wrap(tokenerrors.StoreError, "write token record", err)
	}
	return nil
}

// Get reads a record. Absence of any required column (including the
// whole row having expired out of the store) yields InvalidToken.
func (a *Adapter) Get(ctx context.Context, id uuid.UUID) (TokenInfo, error) {
	names := append(append([]string{}, requiredColumns...), columnPrincipal, columnEntity, columnApplication, columnState)

	columns, err := a.store.GetColumns(ctx, rowKey(id), names)
	if err != nil {
		if errors.Is(err, columnstore.ErrNotFound) {
			return TokenInfo{}, tokenerrors.New(tokenerrors.InvalidToken, "not found")
		}
		return TokenInfo{}, tokenerrors.Wrap(tokenerrors.StoreError, "read token record", err)
	}

	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return TokenInfo{}, tokenerrors.New(tokenerrors.InvalidToken, "not found")
		}
	}

	created, _ := getInt64(columns, columnCreated)
	accessed, _ := getInt64(columns, columnAccessed)
	inactive, _ := getInt64(columns, columnInactive)

	info := TokenInfo{
		UUID:     id,
		Type:     string(columns[columnType]),
		Created:  created,
		Accessed: accessed,
		Inactive: inactive,
		State:    unmarshalState(columns[columnState]),
	}

	if rawType, ok := columns[columnPrincipal]; ok {
		if principalType, recognized := principalTypeFromString(string(rawType)); recognized {
			var entityID, applicationID uuid.UUID
			if raw, ok := columns[columnEntity]; ok {
				_ = entityID.UnmarshalBinary(raw)
			}
			if raw, ok := columns[columnApplication]; ok {
				_ = applicationID.UnmarshalBinary(raw)
			}
			info.Principal = Principal{
				Present:       true,
				Type:          principalType,
				EntityID:      entityID,
				ApplicationID: applicationID,
			}
		}
	}

	return info, nil
}

// Touch updates accessed (always) and inactive (when a new maximum
// gap is observed), as a single batch write. It returns the inactive
// value the caller should reflect into the record it returns to its
// own caller.
func (a *Adapter) Touch(ctx context.Context, id uuid.UUID, now, previousAccessed, previousInactive int64) (int64, error) {
	inactive := previousInactive
	columns := map[string][]byte{}
	putInt64(columns, columnAccessed, now)

	if now-previousAccessed > previousInactive {
		inactive = now - previousAccessed
		putInt64(columns, columnInactive, inactive)
	}

	if err := a.store.SetColumns(ctx, rowKey(id), columns, a.maxPersistenceAge); err != nil {
		return previousInactive, tokenerrors.Wrap(tokenerrors.StoreError, "touch token record", err)
	}
	return inactive, nil
}

func rowKey(id uuid.UUID) [16]byte {
	var key [16]byte
	copy(key[:], id[:])
	return key
}

func mustMarshalBinary(id uuid.UUID) []byte {
	b, _ := id.MarshalBinary() // uuid.UUID.MarshalBinary never errors
	return b
}
