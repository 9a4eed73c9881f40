package view

import "time"

// Summary is a view listing entry without document contents.
type Summary struct {
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	VersionCount int       `json:"version_count"`
	LatestID     string    `json:"latest_id"`
	ActiveID     string    `json:"active_id"`
	Pinned       bool      `json:"pinned"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ActiveDigest string    `json:"active_digest"`
}

// ToSummary converts a loaded view to its listing form.
func (v *View) ToSummary() Summary {
	s := Summary{
		Name:         v.Name,
		Description:  v.Description,
		VersionCount: len(v.Versions),
		Pinned:       v.Pinned(),
	}
	if v.Latest != nil {
		s.LatestID = v.Latest.ID
	}
	if v.Active != nil {
		s.ActiveID = v.Active.ID
		s.ActiveDigest = v.Active.Digest
	}
	if v.Meta != nil {
		s.CreatedAt = v.Meta.CreatedAt
		s.UpdatedAt = v.Meta.UpdatedAt
	}
	return s
}
