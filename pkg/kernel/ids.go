package kernel

import "github.com/google/uuid"

// Entity identifiers are string-backed so they cross package and wire
// boundaries without casts; all are UUIDs underneath.

type UserID string

func NewUserID() UserID { return UserID(uuid.NewString()) }
func (u UserID) String() string { return string(u) }
func (u UserID) IsEmpty() bool { return string(u) == "" }

type RoleID string

func NewRoleID() RoleID { return RoleID(uuid.NewString()) }
func (r RoleID) String() string { return string(r) }
func (r RoleID) IsEmpty() bool { return string(r) == "" }

type SessionID string

func NewSessionID() SessionID { return SessionID(uuid.NewString()) }
func (s SessionID) String() string { return string(s) }
func (s SessionID) IsEmpty() bool { return string(s) == "" }

// KeyID identifies a signing key. It doubles as the token's kid header and
// jti claim, so it must always be a well-formed UUID.
type KeyID string

func NewKeyID() KeyID { return KeyID(uuid.NewString()) }
func (k KeyID) String() string { return string(k) }
func (k KeyID) IsEmpty() bool { return string(k) == "" }

// ParseKeyID validates that raw is a well-formed key identifier.
func ParseKeyID(raw string) (KeyID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", err
	}
	return KeyID(id.String()), nil
}
