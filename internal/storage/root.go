package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Root is a store root directory. It exclusively owns the layout below it:
//
//	<root>/<view>/meta.json
//	<root>/<view>/versions/<id>.json
//	<root>/.locks/<view>.lock
type Root struct {
	dir   string
	clock Clock
	loc   *time.Location
}

// Option configures a Root.
type Option func(*Root)

// WithClock overrides the clock used for ids and timestamps.
func WithClock(c Clock) Option {
	return func(r *Root) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithLocation sets the location version ids are formatted in.
func WithLocation(loc *time.Location) Option {
	return func(r *Root) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// Open creates dir if needed and returns a Root anchored at its resolved
// absolute path.
func Open(dir string, opts ...Option) (*Root, error) {
	if dir == "" {
		return nil, fmt.Errorf("store root is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve store root: %w", err)
	}
	if err := os.MkdirAll(abs, 0700); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve store root: %w", err)
	}

	r := &Root{dir: resolved, clock: RealClock{}, loc: time.Local}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Dir returns the absolute root directory.
func (r *Root) Dir() string { return r.dir }

// Now returns the root clock's current time.
func (r *Root) Now() time.Time { return r.clock.Now() }

// Location returns the location version ids are formatted and parsed in.
func (r *Root) Location() *time.Location { return r.loc }
