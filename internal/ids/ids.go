package ids

import (
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// New returns a sortable identifier for sessions and stored objects.
func New() string {
	return ksuid.New().String()
}

// NewUUID returns the identifier used for affiliators, customers and payments.
func NewUUID() string {
	return uuid.NewString()
}

func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
