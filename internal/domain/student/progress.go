package student

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS TOWARD THE NEXT LEVEL
// ══════════════════════════════════════════════════════════════════════════════

// Progress describes how far a point total is from the next tier.
type Progress struct {
	// Current - tier of the total.
	Current Level

	// Next - next tier; empty at the top tier.
	Next Level

	// Percent - completion of the current band, 0..100.
	Percent float64

	// Remaining - points still needed to reach Next.
	Remaining int
}

// IsMax reports whether the total is already in the top tier.
func (p Progress) IsMax() bool {
	return p.Next == ""
}

// NextName returns the display name of the next tier, or "Max Level".
func (p Progress) NextName() string {
	if p.IsMax() {
		return "Max Level"
	}
	return p.Next.Name()
}

// ProgressOf computes the progress of a point total toward the next tier.
func ProgressOf(points int) Progress {
	current := Classify(points)
	rank := current.Rank()
	if rank == len(tiers)-1 {
		return Progress{Current: current, Percent: 100}
	}

	cur, next := tiers[rank], tiers[rank+1]
	percent := float64(points-cur.Min) / float64(next.Min-cur.Min) * 100
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	return Progress{
		Current:   current,
		Next:      next.Level,
		Percent:   percent,
		Remaining: next.Min - points,
	}
}
