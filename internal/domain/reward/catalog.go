package reward

import "github.com/lhtc/classpoint/internal/domain/shared"

// Catalog is an ordered list of rewards. Operations return a new slice.
type Catalog []Reward

// Find returns the reward with the given id.
func (c Catalog) Find(id string) (Reward, error) {
	for _, r := range c {
		if r.ID == id {
			return r, nil
		}
	}
	return Reward{}, shared.NotFound("reward", "Find", "reward", id)
}

// Add appends r after validating it. r.ID must be set by the caller.
func (c Catalog) Add(r Reward) (Catalog, error) {
	r = r.Normalize()
	if err := r.Validate(); err != nil {
		return c, err
	}
	if r.ID == "" {
		return c, shared.NewDomainError("reward", "Add", shared.ErrInvalidID, "reward id is required")
	}
	if _, err := c.Find(r.ID); err == nil {
		return c, shared.NewDomainError("reward", "Add", shared.ErrAlreadyExists, "reward already exists")
	}
	out := make(Catalog, 0, len(c)+1)
	out = append(out, c...)
	return append(out, r), nil
}

// Update replaces the reward with the same id.
func (c Catalog) Update(r Reward) (Catalog, error) {
	r = r.Normalize()
	if err := r.Validate(); err != nil {
		return c, err
	}
	out := make(Catalog, len(c))
	copy(out, c)
	for i := range out {
		if out[i].ID == r.ID {
			out[i] = r
			return out, nil
		}
	}
	return c, shared.NotFound("reward", "Update", "reward", r.ID)
}

// Delete removes the reward with the given id.
func (c Catalog) Delete(id string) (Catalog, error) {
	out := make(Catalog, 0, len(c))
	found := false
	for _, r := range c {
		if r.ID == id {
			found = true
			continue
		}
		out = append(out, r)
	}
	if !found {
		return c, shared.NotFound("reward", "Delete", "reward", id)
	}
	return out, nil
}

// Replace validates every entry and returns the new catalog.
func Replace(rewards []Reward) (Catalog, error) {
	out := make(Catalog, 0, len(rewards))
	seen := make(map[string]struct{}, len(rewards))
	for _, r := range rewards {
		r = r.Normalize()
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[r.ID]; dup || r.ID == "" {
			return nil, shared.Invalid("reward", "Replace", "reward ids must be unique and non-empty")
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}
