package view

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// IDLayout is the time layout of a version id: one-second resolution, sortable.
const IDLayout = "20060102-150405"

// idPattern matches a timestamp id with an optional collision suffix.
var idPattern = regexp.MustCompile(`^(\d{8}-\d{6})(?:-(\d+))?$`)

// FormatID mints a version id for t. A seq above 1 appends a collision
// suffix ("20240115-103000-2") for saves landing in the same second.
func FormatID(t time.Time, seq int) string {
	base := t.Format(IDLayout)
	if seq <= 1 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, seq)
}

// ParseID recovers the timestamp and collision sequence from an id,
// interpreting the timestamp in loc. ok is false for non-timestamp ids.
func ParseID(id string, loc *time.Location) (t time.Time, seq int, ok bool) {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return time.Time{}, 0, false
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(IDLayout, m[1], loc)
	if err != nil {
		return time.Time{}, 0, false
	}
	seq = 1
	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return time.Time{}, 0, false
		}
		seq = n
	}
	return t, seq, true
}

// Sequence returns the collision sequence of a timestamp id (1 when there is
// no suffix), or 0 for ids that are not timestamp ids.
func Sequence(id string) int {
	_, seq, ok := ParseID(id, time.UTC)
	if !ok {
		return 0
	}
	return seq
}
