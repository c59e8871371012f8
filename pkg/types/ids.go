package types

import (
	"strings"

	"github.com/google/uuid"
)

// Origin tells where a record's id was issued.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// LocalIDPrefix marks ids minted by the local store. Server ids are bare
// UUIDs and never start with it.
const LocalIDPrefix = "local_"

// NewLocalID returns a locally unique id: the local prefix followed by a
// UUID v7, which encodes the creation time in milliseconds plus a random
// suffix.
func NewLocalID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return LocalIDPrefix + uuid.New().String()
	}
	return LocalIDPrefix + id.String()
}

// NewServerID returns an id in the server's format (random UUID).
func NewServerID() string {
	return uuid.New().String()
}

// OriginOf reports which side issued id.
func OriginOf(id string) Origin {
	if strings.HasPrefix(id, LocalIDPrefix) {
		return OriginLocal
	}
	return OriginRemote
}

// IsLocalID reports whether id was minted by the local store.
func IsLocalID(id string) bool {
	return OriginOf(id) == OriginLocal
}
