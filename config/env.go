package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func lookup(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// env reads typed variables and remembers the ones that fail to parse, so
// Load reports every bad value at once instead of silently using defaults.
type env struct {
	problems []string
}

func (e *env) str(key, def string) string { return lookup(key, def) }

func (e *env) bad(key, v, want string) {
	e.problems = append(e.problems, fmt.Sprintf("%s=%q is not a valid %s", key, v, want))
}

func (e *env) boolean(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.bad(key, v, "boolean")
		return def
	}
	return b
}

func (e *env) integer(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.bad(key, v, "integer")
		return def
	}
	return n
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.bad(key, v, "duration")
		return def
	}
	return d
}

// list splits a comma-separated value and drops empty items.
func (e *env) list(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
