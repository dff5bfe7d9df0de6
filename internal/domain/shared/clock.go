package shared

import (
	"strconv"
	"sync/atomic"
	"time"
)

// Stamper hands out timestamps and IDs so domain code never reads the
// clock itself.
type Stamper interface {
	Now() time.Time
	NewID() string
}

// FixedStamper always returns At and numbers IDs Prefix1, Prefix2, ...
type FixedStamper struct {
	At     time.Time
	Prefix string
	seq    atomic.Int64
}

func (s *FixedStamper) Now() time.Time { return s.At }
func (s *FixedStamper) NewID() string  { return s.Prefix + strconv.FormatInt(s.seq.Add(1), 10) }

// TimeRange is the half-open window [From, To). The zero value is
// unbounded.
type TimeRange struct {
	From time.Time
	To   time.Time
}

func (t TimeRange) IsZero() bool { return t.From.IsZero() && t.To.IsZero() }

// Contains reports whether tm falls inside the window.
func (t TimeRange) Contains(tm time.Time) bool {
	return t.IsZero() || (!tm.Before(t.From) && tm.Before(t.To))
}
