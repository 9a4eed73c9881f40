package mcp

import "github.com/mark3labs/mcp-go/mcp"

var listToolDef = mcp.NewTool("view_list",
	mcp.WithDescription("List stored views with their latest and active version ids, sorted by name."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var loadToolDef = mcp.NewTool("view_load",
	mcp.WithDescription("Load a view with every version, the latest and the active one."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("name", mcp.Required(), mcp.Description("View name")),
)

var treeToolDef = mcp.NewTool("view_tree",
	mcp.WithDescription("Return the document of the view's active version."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("name", mcp.Required(), mcp.Description("View name")),
)

var saveToolDef = mcp.NewTool("view_save",
	mcp.WithDescription("Save a new version of a view, creating the view on first save. "+
		"The new version becomes active and any pin is cleared."),
	mcp.WithString("name", mcp.Required(), mcp.Description("View name (letters, digits, '_' or '-')")),
	mcp.WithObject("content", mcp.Required(),
		mcp.Description("UI document with a string 'root' and an 'elements' object")),
	mcp.WithString("prompt", mcp.Description("Prompt that produced this version")),
	mcp.WithString("description", mcp.Description("Replace the view description")),
	mcp.WithString("parent_version", mcp.Description("Version this one was derived from")),
)

var activateToolDef = mcp.NewTool("view_activate",
	mcp.WithDescription("Pin a version as active, or omit version_id to track the latest version again."),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithString("name", mcp.Required(), mcp.Description("View name")),
	mcp.WithString("version_id", mcp.Description("Version to pin; omit to clear the pin")),
)

var getVersionToolDef = mcp.NewTool("view_get_version",
	mcp.WithDescription("Fetch one version of a view by id."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("name", mcp.Required(), mcp.Description("View name")),
	mcp.WithString("version_id", mcp.Required(), mcp.Description("Version id")),
)

var deleteVersionToolDef = mcp.NewTool("view_delete_version",
	mcp.WithDescription("Delete one version. Deleting the pinned version reverts the view to latest; "+
		"deleting the last version removes the view."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithString("name", mcp.Required(), mcp.Description("View name")),
	mcp.WithString("version_id", mcp.Required(), mcp.Description("Version id")),
)

var deleteToolDef = mcp.NewTool("view_delete",
	mcp.WithDescription("Delete a view and all of its versions."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithString("name", mcp.Required(), mcp.Description("View name")),
)

var resolveToolDef = mcp.NewTool("view_resolve",
	mcp.WithDescription("Resolve the document to render: pinned_version, then override, "+
		"then the stored active version, then fallback."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("name", mcp.Required(), mcp.Description("View name")),
	mcp.WithString("pinned_version", mcp.Description("Session pin, used only if the version still exists")),
	mcp.WithObject("override", mcp.Description("Document that bypasses the store")),
	mcp.WithObject("fallback", mcp.Description("Document used when nothing is stored")),
)

var historyToolDef = mcp.NewTool("view_history",
	mcp.WithDescription("List journal entries of store mutations, newest first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("view", mcp.Description("Only entries for this view")),
	mcp.WithString("action", mcp.Description("Only this action"),
		mcp.Enum("save", "activate", "delete_version", "delete_view", "import")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 50, max 500)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var exportToolDef = mcp.NewTool("view_export",
	mcp.WithDescription("Export views to a JSONL file in the exports directory."),
	mcp.WithString("path", mcp.Description("Destination .jsonl file (default: exports dir)")),
	mcp.WithString("name", mcp.Description("Export only this view")),
)

var importToolDef = mcp.NewTool("view_import",
	mcp.WithDescription("Import versions from a JSONL export file, preserving version ids."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Source .jsonl file")),
	mcp.WithString("mode", mcp.Description("Collision handling (default error)"),
		mcp.Enum("error", "skip", "replace")),
)
