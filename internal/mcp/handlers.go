package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/vellum/internal/errors"
	"github.com/hpungsan/vellum/internal/ops"
	"github.com/hpungsan/vellum/internal/view"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	env *ops.Env
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(env *ops.Env) *Handlers {
	return &Handlers{env: env}
}

// Request types for each tool

// NameRequest addresses a view by name.
type NameRequest struct {
	Name string `json:"name"`
}

// VersionRequest addresses one version of a view.
type VersionRequest struct {
	Name      string `json:"name"`
	VersionID string `json:"version_id"`
}

// ListRequest represents the arguments for view_list.
type ListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// SaveRequest represents the arguments for view_save.
type SaveRequest struct {
	Name          string        `json:"name"`
	Content       view.Document `json:"content"`
	Prompt        string        `json:"prompt,omitempty"`
	Description   *string       `json:"description,omitempty"`
	ParentVersion string        `json:"parent_version,omitempty"`
}

// ActivateRequest represents the arguments for view_activate.
type ActivateRequest struct {
	Name      string  `json:"name"`
	VersionID *string `json:"version_id,omitempty"`
}

// ResolveRequest represents the arguments for view_resolve.
type ResolveRequest struct {
	Name          string        `json:"name"`
	PinnedVersion string        `json:"pinned_version,omitempty"`
	Override      view.Document `json:"override,omitempty"`
	Fallback      view.Document `json:"fallback,omitempty"`
}

// HistoryRequest represents the arguments for view_history.
type HistoryRequest struct {
	View   string `json:"view,omitempty"`
	Action string `json:"action,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// ExportRequest represents the arguments for view_export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
	Name string `json:"name,omitempty"`
}

// ImportRequest represents the arguments for view_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// Handler implementations

// HandleList handles the view_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListSummaries(ctx, h.env, ops.ListInput{Limit: input.Limit, Offset: input.Offset})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleLoad handles the view_load tool call.
func (h *Handlers) HandleLoad(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NameRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	v, err := ops.LoadView(ctx, h.env, input.Name)
	if err != nil {
		return errorResult(err), nil
	}
	if v == nil {
		return errorResult(errors.NewViewNotFound(input.Name)), nil
	}
	return successResult(v)
}

// HandleTree handles the view_tree tool call.
func (h *Handlers) HandleTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NameRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	tree, err := ops.LoadActiveTree(ctx, h.env, input.Name)
	if err != nil {
		return errorResult(err), nil
	}
	if tree == nil {
		return errorResult(errors.NewViewNotFound(input.Name)), nil
	}
	return successResult(tree)
}

// HandleSave handles the view_save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.SaveVersion(ctx, h.env, ops.SaveInput{
		Name:          input.Name,
		Content:       input.Content,
		Prompt:        input.Prompt,
		Description:   input.Description,
		ParentVersion: input.ParentVersion,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleActivate handles the view_activate tool call.
func (h *Handlers) HandleActivate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ActivateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	// An empty id from a client that always sends the field means "latest".
	if input.VersionID != nil && *input.VersionID == "" {
		input.VersionID = nil
	}

	result, err := ops.SetActiveVersion(ctx, h.env, ops.ActivateInput{Name: input.Name, VersionID: input.VersionID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleGetVersion handles the view_get_version tool call.
func (h *Handlers) HandleGetVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[VersionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.LoadVersion(ctx, h.env, ops.LoadVersionInput{Name: input.Name, VersionID: input.VersionID})
	if err != nil {
		return errorResult(err), nil
	}
	if result == nil {
		return errorResult(errors.NewVersionNotFound(input.Name, input.VersionID)), nil
	}
	return successResult(result)
}

// HandleDeleteVersion handles the view_delete_version tool call.
func (h *Handlers) HandleDeleteVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[VersionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.DeleteVersion(ctx, h.env, ops.DeleteVersionInput{Name: input.Name, VersionID: input.VersionID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDelete handles the view_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NameRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.DeleteView(ctx, h.env, ops.DeleteViewInput{Name: input.Name})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleResolve handles the view_resolve tool call.
func (h *Handlers) HandleResolve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ResolveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ResolveTree(ctx, h.env, ops.ResolveInput{
		Name:          input.Name,
		PinnedVersion: input.PinnedVersion,
		Override:      input.Override,
		Fallback:      input.Fallback,
	})
	if err != nil {
		return errorResult(err), nil
	}
	if result == nil {
		return errorResult(errors.NewViewNotFound(input.Name)), nil
	}
	return successResult(result)
}

// HandleHistory handles the view_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.History(ctx, h.env, ops.HistoryInput{
		View:   input.View,
		Action: input.Action,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExport handles the view_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.env, ops.ExportInput{Path: input.Path, Name: input.Name})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleImport handles the view_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	mode := ops.ImportModeError
	if input.Mode != "" {
		mode = ops.ImportMode(input.Mode)
	}

	result, err := ops.Import(ctx, h.env, ops.ImportInput{Path: input.Path, Mode: mode})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Internal error details are never exposed; wrapping context is kept in the message.
func errorResult(err error) *mcp.CallToolResult {
	errorObj := map[string]any{
		"code":    string(errors.ErrInternal),
		"message": "an internal error occurred",
		"status":  500,
	}

	if vErr, ok := errors.As(err); ok && vErr.Code != errors.ErrInternal {
		msg := vErr.Message
		if prefix, found := strings.CutSuffix(err.Error(), vErr.Error()); found && prefix != "" {
			msg = prefix + msg
		}
		errorObj["code"] = string(vErr.Code)
		errorObj["message"] = msg
		errorObj["status"] = vErr.Status
		if vErr.Details != nil {
			errorObj["details"] = vErr.Details
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
