// Package identity supplies ids and timestamps to the domain layer.
package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/lhtc/classpoint/internal/domain/shared"
)

// UUIDStamper stamps records with random UUIDs and the current UTC time,
// truncated to the millisecond precision of stored dates.
type UUIDStamper struct {
	clock func() time.Time
}

var _ shared.Stamper = (*UUIDStamper)(nil)

// NewUUIDStamper creates a stamper using the wall clock.
func NewUUIDStamper() *UUIDStamper {
	return &UUIDStamper{clock: time.Now}
}

// WithClock returns a copy that reads time from clock.
func (s *UUIDStamper) WithClock(clock func() time.Time) *UUIDStamper {
	return &UUIDStamper{clock: clock}
}

// Now implements shared.Stamper.
func (s *UUIDStamper) Now() time.Time {
	return s.clock().UTC().Truncate(time.Millisecond)
}

// NewID implements shared.Stamper.
func (s *UUIDStamper) NewID() string {
	return uuid.NewString()
}

// IsID reports whether id has the UUID shape produced by NewID.
func IsID(id string) bool {
	return uuid.Validate(id) == nil
}
