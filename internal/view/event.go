package view

// Journal actions.
const (
	ActionSave          = "save"
	ActionActivate      = "activate"
	ActionDeleteVersion = "delete_version"
	ActionDeleteView    = "delete_view"
	ActionImport        = "import"
)

// Event is one journal entry describing a completed store mutation.
type Event struct {
	ID        string `json:"id"`
	View      string `json:"view"`
	VersionID string `json:"version_id,omitempty"`
	Action    string `json:"action"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt int64  `json:"created_at"`
}
