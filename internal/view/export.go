package view

import "time"

// ExportSchemaVersion is written to the header of every export file.
const ExportSchemaVersion = "1.0"

// ExportRecord is one line of a JSONL export: either the header or a version.
type ExportRecord struct {
	// Header detection field - true only for header line
	VellumExport bool `json:"_vellum_export,omitempty"`

	// Header fields (only present in header line)
	SchemaVersion string `json:"schema_version,omitempty"`
	ExportedAt    int64  `json:"exported_at,omitempty"`

	// Version fields
	View          string    `json:"view,omitempty"`
	Description   string    `json:"description,omitempty"`
	ActiveVersion *string   `json:"active_version,omitempty"`
	ID            string    `json:"id,omitempty"`
	Prompt        string    `json:"prompt,omitempty"`
	ParentVersion string    `json:"parent_version,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitzero"`
	Content       Document  `json:"content,omitempty"`
}

// VersionToExportRecord converts a version of v to its export line.
func VersionToExportRecord(v *View, ver *Version) *ExportRecord {
	rec := &ExportRecord{
		View:          v.Name,
		Description:   v.Description,
		ID:            ver.ID,
		Prompt:        ver.Prompt,
		ParentVersion: ver.ParentVersion,
		CreatedAt:     ver.CreatedAt,
		Content:       ver.Content,
	}
	if v.Meta != nil && v.Meta.ActiveVersion != nil {
		pin := *v.Meta.ActiveVersion
		rec.ActiveVersion = &pin
	}
	return rec
}

// ToProvenance builds the provenance entry an import writes for this record.
func (r *ExportRecord) ToProvenance() Provenance {
	return Provenance{
		ID:            r.ID,
		Prompt:        r.Prompt,
		CreatedAt:     r.CreatedAt.UTC(),
		ParentVersion: r.ParentVersion,
	}
}
