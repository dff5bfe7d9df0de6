package classroom

import "context"

// Repository persists the full classroom snapshot. Save always writes every
// collection; there is no incremental persistence.
type Repository interface {
	// Load returns the stored state, or the default state when nothing has
	// been stored yet. A snapshot that cannot be decoded yields an error
	// matching shared.ErrCorruptSnapshot, returned together with the state
	// decoded from the parts that were still readable.
	Load(ctx context.Context) (State, error)

	// Save stores the complete state.
	Save(ctx context.Context, state State) error
}
