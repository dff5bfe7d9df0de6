package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Feature names. Each can be overridden with FEATURE_<NAME>, dots and
// dashes becoming underscores: "leaderboard.periods" is
// FEATURE_LEADERBOARD_PERIODS.
const (
	// Week and month leaderboards ranked by points gained in the period.
	FeatureLeaderboardPeriods = "leaderboard.periods"
	// Celebration log lines and counters on level-up.
	FeatureLevelUpCelebrations = "ledger.celebrations"
	// CSV export over HTTP and from the CLI.
	FeatureExport = "http.export"
	// Roster import endpoint.
	FeatureImport = "http.import"
	// Publish domain events to Redis pub/sub when Redis is enabled.
	FeatureRedisFanout = "events.redis_fanout"
)

var featureDefaults = map[string]bool{
	FeatureLeaderboardPeriods:  true,
	FeatureLevelUpCelebrations: true,
	FeatureExport:              true,
	FeatureImport:              true,
	FeatureRedisFanout:         false,
}

// FeatureFlags is a concurrency-safe set of named toggles.
type FeatureFlags struct {
	mu sync.RWMutex
	on map[string]bool
}

// LoadFeatureFlags applies FEATURE_* overrides to the defaults. Values
// that do not parse as booleans are ignored.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{on: make(map[string]bool, len(featureDefaults))}
	for name, def := range featureDefaults {
		ff.on[name] = def
		if b, err := strconv.ParseBool(os.Getenv(featureEnvKey(name))); err == nil {
			ff.on[name] = b
		}
	}
	return ff
}

func featureEnvKey(name string) string {
	return "FEATURE_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(name))
}

// IsEnabled reports whether a feature is on. Unknown features and a nil
// receiver are off.
func (ff *FeatureFlags) IsEnabled(name string) bool {
	if ff == nil {
		return false
	}
	ff.mu.RLock()
	defer ff.mu.RUnlock()
	return ff.on[name]
}

// Set toggles a known feature.
func (ff *FeatureFlags) Set(name string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	if _, ok := ff.on[name]; !ok {
		return fmt.Errorf("feature %q: unknown feature", name)
	}
	ff.on[name] = enabled
	return nil
}

// Names lists every known feature, sorted.
func (ff *FeatureFlags) Names() []string {
	ff.mu.RLock()
	defer ff.mu.RUnlock()
	names := make([]string, 0, len(ff.on))
	for n := range ff.on {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Enabled lists the features that are on, sorted.
func (ff *FeatureFlags) Enabled() []string {
	var out []string
	for _, n := range ff.Names() {
		if ff.IsEnabled(n) {
			out = append(out, n)
		}
	}
	return out
}
