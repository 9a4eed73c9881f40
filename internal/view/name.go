package view

import (
	"regexp"

	"github.com/hpungsan/vellum/internal/errors"
)

// MaxNameLength bounds view names and version ids.
const MaxNameLength = 128

// safePattern is shared by view names and version ids: first character
// alphanumeric, remainder alphanumeric, '_' or '-'.
var safePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidName reports whether s is usable as a view name or version id.
func ValidName(s string) bool {
	return len(s) <= MaxNameLength && safePattern.MatchString(s)
}

// ValidateName returns an INVALID_NAME error unless name is safe.
func ValidateName(name string) error {
	if !ValidName(name) {
		return errors.NewInvalidName(name)
	}
	return nil
}

// ValidateVersionID returns an INVALID_VERSION_ID error unless id is safe.
func ValidateVersionID(id string) error {
	if !ValidName(id) {
		return errors.NewInvalidVersionID(id)
	}
	return nil
}
