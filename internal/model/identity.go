package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Identity is an authenticated portal user as returned by the auth endpoint
// and as persisted in the session record.
type Identity struct {
	ID          int64   `json:"id"`
	DisplayName string  `json:"name"`
	Email       string  `json:"email"`
	Roles       RoleSet `json:"roles"`
}

// ErrMalformedIdentity is returned when a session record cannot be used.
var ErrMalformedIdentity = errors.New("malformed identity record")

// Tier returns the identity's privilege tier.
func (i Identity) Tier() Tier {
	return i.Roles.Tier()
}

func (i Identity) IsAdmin() bool {
	return i.Roles.Has(RoleAdmin)
}

// WellFormed reports whether the identity can back a session.
func (i Identity) WellFormed() bool {
	return i.ID > 0
}

// EncodeIdentity serializes an identity into the persisted record format.
func EncodeIdentity(i Identity) ([]byte, error) {
	data, err := json.Marshal(i)
	if err != nil {
		return nil, fmt.Errorf("encoding identity: %w", err)
	}
	return data, nil
}

// DecodeIdentity parses a persisted record. Any decode failure or a record
// without a positive id yields ErrMalformedIdentity.
func DecodeIdentity(data []byte) (Identity, error) {
	var i Identity
	if err := json.Unmarshal(data, &i); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrMalformedIdentity, err)
	}
	if !i.WellFormed() {
		return Identity{}, fmt.Errorf("%w: missing id", ErrMalformedIdentity)
	}
	return i, nil
}
