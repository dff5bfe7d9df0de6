package student

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL TIERS
// ══════════════════════════════════════════════════════════════════════════════

// Level is a growth tier derived purely from a point total.
// The string values are the persisted wire names.
type Level string

const (
	// LevelSeed - 0 to 19 points.
	LevelSeed Level = "hat"
	// LevelSprout - 20 to 49 points.
	LevelSprout Level = "nay-mam"
	// LevelSapling - 50 to 99 points.
	LevelSapling Level = "cay-con"
	// LevelTree - 100 points and more.
	LevelTree Level = "cay-to"
)

// Tier describes one band of the classifier. Max is exclusive; the top
// tier has Max == 0 meaning unbounded.
type Tier struct {
	Level Level
	Min   int
	Max   int
	Name  string
	Icon  string
}

// tiers are ordered by rank and contiguous: each Min equals the previous Max.
var tiers = []Tier{
	{Level: LevelSeed, Min: 0, Max: 20, Name: "Hạt", Icon: "🌰"},
	{Level: LevelSprout, Min: 20, Max: 50, Name: "Nảy mầm", Icon: "🌱"},
	{Level: LevelSapling, Min: 50, Max: 100, Name: "Cây con", Icon: "🌿"},
	{Level: LevelTree, Min: 100, Max: 0, Name: "Cây to", Icon: "🌳"},
}

// Tiers returns the tier table in rank order.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// Classify maps a point total to its tier. Boundaries belong to the higher
// tier. Negative totals classify as LevelSeed.
func Classify(points int) Level {
	for i := len(tiers) - 1; i > 0; i-- {
		if points >= tiers[i].Min {
			return tiers[i].Level
		}
	}
	return LevelSeed
}

// IsValid reports whether l is one of the four known tiers.
func (l Level) IsValid() bool {
	return l.Rank() >= 0
}

// Rank returns 0 for the lowest tier up to 3 for the highest, or -1 for an
// unknown level.
func (l Level) Rank() int {
	for i, t := range tiers {
		if t.Level == l {
			return i
		}
	}
	return -1
}

// Tier returns the tier description of l.
func (l Level) Tier() Tier {
	if r := l.Rank(); r >= 0 {
		return tiers[r]
	}
	return tiers[0]
}

// Name returns the display name of the level.
func (l Level) Name() string {
	return l.Tier().Name
}

// Icon returns the display glyph of the level.
func (l Level) Icon() string {
	return l.Tier().Icon
}

// Label returns icon and name together, e.g. "🌱 Nảy mầm".
func (l Level) Label() string {
	t := l.Tier()
	return t.Icon + " " + t.Name
}

// String implements fmt.Stringer.
func (l Level) String() string {
	return string(l)
}

// ParseLevel converts a wire name into a Level.
func ParseLevel(s string) (Level, bool) {
	l := Level(s)
	return l, l.IsValid()
}
