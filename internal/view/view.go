package view

import (
	"cmp"
	"slices"
	"time"
)

// Document is an opaque UI view document. The store only requires a string
// "root" entry-point reference and an "elements" node map; everything else
// belongs to the rendering layer.
type Document map[string]any

// Root returns the document's entry-point reference.
func (d Document) Root() string {
	s, _ := d["root"].(string)
	return s
}

// Elements returns the document's node map.
func (d Document) Elements() map[string]any {
	m, _ := d["elements"].(map[string]any)
	return m
}

// Provenance describes how and when a version was produced.
// ParentVersion is advisory and never validated.
type Provenance struct {
	ID            string    `json:"id"`
	Prompt        string    `json:"prompt,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	ParentVersion string    `json:"parentVersion,omitempty"`
}

// Meta is the persisted metadata record of a view (meta.json).
type Meta struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// ActiveVersion pins a version; nil tracks the latest one.
	ActiveVersion *string `json:"activeVersion"`

	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Versions  []Provenance `json:"versions"`
}

// NewMeta synthesizes a fresh metadata record for a view born at now.
func NewMeta(name string, now time.Time) *Meta {
	return &Meta{
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Versions:  []Provenance{},
	}
}

// Provenance returns the first provenance entry for id.
func (m *Meta) Provenance(id string) (Provenance, bool) {
	for _, p := range m.Versions {
		if p.ID == id {
			return p, true
		}
	}
	return Provenance{}, false
}

// HasVersion reports whether id appears in the provenance list.
func (m *Meta) HasVersion(id string) bool {
	_, ok := m.Provenance(id)
	return ok
}

// PutProvenance replaces the first entry with p.ID, or appends p.
func (m *Meta) PutProvenance(p Provenance) {
	for i := range m.Versions {
		if m.Versions[i].ID == p.ID {
			m.Versions[i] = p
			return
		}
	}
	m.Versions = append(m.Versions, p)
}

// RemoveVersion drops every provenance entry for id and clears the pin if it
// pointed at id. It reports whether anything changed.
func (m *Meta) RemoveVersion(id string) bool {
	changed := false
	kept := m.Versions[:0]
	for _, p := range m.Versions {
		if p.ID == id {
			changed = true
			continue
		}
		kept = append(kept, p)
	}
	m.Versions = kept
	if m.ActiveVersion != nil && *m.ActiveVersion == id {
		m.ActiveVersion = nil
		changed = true
	}
	return changed
}

// Version is one immutable document snapshot within a view.
type Version struct {
	ID            string    `json:"id"`
	Filename      string    `json:"filename"`
	Path          string    `json:"path"`
	CreatedAt     time.Time `json:"createdAt"`
	Content       Document  `json:"content"`
	Prompt        string    `json:"prompt,omitempty"`
	ParentVersion string    `json:"parentVersion,omitempty"`

	// Digest is the hex BLAKE3 hash of the version file bytes.
	Digest string `json:"digest"`
}

// View is a named collection of versions ordered by creation time.
type View struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Versions    []*Version `json:"versions"`
	Latest      *Version   `json:"latest"`
	Active      *Version   `json:"active"`
	Meta        *Meta      `json:"meta"`
}

// Version returns the version with the given id, or nil.
func (v *View) Version(id string) *Version {
	for _, ver := range v.Versions {
		if ver.ID == id {
			return ver
		}
	}
	return nil
}

// Pinned reports whether the active version comes from an explicit pin.
func (v *View) Pinned() bool {
	return v.Meta != nil && v.Meta.ActiveVersion != nil && v.Active != nil &&
		v.Active.ID == *v.Meta.ActiveVersion
}

// SortVersions orders versions ascending by creation time. Ties fall back to
// the id's collision suffix, then the id itself.
func SortVersions(versions []*Version) {
	slices.SortStableFunc(versions, func(a, b *Version) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if c := cmp.Compare(Sequence(a.ID), Sequence(b.ID)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
