package uid

import "github.com/google/uuid"

// UUID generates time-ordered RFC 9562 version 7 strings. If the v7 source
// fails a random version 4 value is returned instead.
type UUID struct {
	v7 func() (uuid.UUID, error)
}

func NewUUID() *UUID {
	return &UUID{v7: uuid.NewV7}
}

func (u *UUID) Generate() string {
	if id, err := u.v7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
