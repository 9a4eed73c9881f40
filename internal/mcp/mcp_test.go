package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/vellum/internal/config"
	"github.com/hpungsan/vellum/internal/db"
	"github.com/hpungsan/vellum/internal/errors"
	"github.com/hpungsan/vellum/internal/ops"
	"github.com/hpungsan/vellum/internal/storage"
)

// testSetup creates a store root, journal and config for testing.
func testSetup(t *testing.T) *ops.Env {
	t.Helper()

	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	root, err := storage.Open(filepath.Join(tmpDir, "views"), storage.WithLocation(time.UTC))
	if err != nil {
		t.Fatalf("failed to open root: %v", err)
	}

	cfg := config.DefaultConfig()
	return &ops.Env{
		Root:       root,
		Config:     cfg,
		DB:         database,
		ExportsDir: filepath.Join(tmpDir, "exports"),
	}
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// testDoc returns a minimal valid document as decoded tool arguments.
func testDoc(root string) map[string]any {
	return map[string]any{
		"root": root,
		"elements": map[string]any{
			root: map[string]any{"type": "Text", "props": map[string]any{"text": root}},
		},
	}
}

func saveView(t *testing.T, h *Handlers, name, root string) string {
	t.Helper()
	result, err := h.HandleSave(context.Background(), makeRequest(map[string]any{
		"name":    name,
		"content": testDoc(root),
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return parseOutput(t, result)["id"].(string)
}

func TestHandleSave(t *testing.T) {
	h := NewHandlers(testSetup(t))
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		errorCode string
	}{
		{
			name: "save valid document",
			args: map[string]any{
				"name":    "dashboard",
				"content": testDoc("main"),
				"prompt":  "a dashboard",
			},
		},
		{
			name:      "save without content",
			args:      map[string]any{"name": "dashboard"},
			wantError: true,
			errorCode: "INVALID_DOCUMENT",
		},
		{
			name: "save without root",
			args: map[string]any{
				"name":    "dashboard",
				"content": map[string]any{"elements": map[string]any{}},
			},
			wantError: true,
			errorCode: "INVALID_DOCUMENT",
		},
		{
			name: "save with unsafe name",
			args: map[string]any{
				"name":    "../escape",
				"content": testDoc("main"),
			},
			wantError: true,
			errorCode: "INVALID_NAME",
		},
		{
			name: "save with content of wrong type",
			args: map[string]any{
				"name":    "dashboard",
				"content": "not an object",
			},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleSave(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}

			if tt.wantError {
				if !result.IsError {
					t.Errorf("expected error result, got success")
				}
				if tt.errorCode != "" {
					assertErrorCode(t, result, tt.errorCode)
				}
			} else if result.IsError {
				t.Errorf("expected success, got error: %v", extractErrorMessage(result))
			}
		})
	}
}

func TestHandleLoadAndTree(t *testing.T) {
	h := NewHandlers(testSetup(t))
	ctx := context.Background()
	id := saveView(t, h, "dashboard", "main")

	result, err := h.HandleLoad(ctx, makeRequest(map[string]any{"name": "dashboard"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	out := parseOutput(t, result)
	if out["name"] != "dashboard" {
		t.Errorf("name = %v, want dashboard", out["name"])
	}
	active := out["active"].(map[string]any)
	if active["id"] != id {
		t.Errorf("active id = %v, want %s", active["id"], id)
	}

	result, _ = h.HandleTree(ctx, makeRequest(map[string]any{"name": "dashboard"}))
	tree := parseOutput(t, result)
	if tree["root"] != "main" {
		t.Errorf("tree root = %v, want main", tree["root"])
	}

	for _, handler := range []func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){h.HandleLoad, h.HandleTree} {
		result, _ := handler(ctx, makeRequest(map[string]any{"name": "missing"}))
		if !result.IsError {
			t.Fatal("expected error for missing view")
		}
		assertErrorCode(t, result, "NOT_FOUND")
	}
}

func TestHandleList(t *testing.T) {
	h := NewHandlers(testSetup(t))
	ctx := context.Background()
	for _, name := range []string{"charlie", "alpha", "bravo"} {
		saveView(t, h, name, "main")
	}

	result, err := h.HandleList(ctx, makeRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	out := parseOutput(t, result)
	items := out["items"].([]any)
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	if first := items[0].(map[string]any)["name"]; first != "alpha" {
		t.Errorf("first item = %v, want alpha", first)
	}

	result, _ = h.HandleList(ctx, makeRequest(map[string]any{"limit": 1, "offset": 1}))
	out = parseOutput(t, result)
	pagination := out["pagination"].(map[string]any)
	if pagination["has_more"] != true {
		t.Errorf("has_more = %v, want true", pagination["has_more"])
	}
	if items := out["items"].([]any); len(items) != 1 || items[0].(map[string]any)["name"] != "bravo" {
		t.Errorf("page = %v, want [bravo]", items)
	}
}

func TestHandleActivate(t *testing.T) {
	env := testSetup(t)
	h := NewHandlers(env)
	ctx := context.Background()
	first := saveView(t, h, "dashboard", "one")
	saveView(t, h, "dashboard", "two")

	tests := []struct {
		name       string
		args       map[string]any
		wantPinned bool
		wantRoot   string
		errorCode  string
	}{
		{
			name:       "pin first version",
			args:       map[string]any{"name": "dashboard", "version_id": first},
			wantPinned: true,
			wantRoot:   "one",
		},
		{
			name:     "empty id tracks latest",
			args:     map[string]any{"name": "dashboard", "version_id": ""},
			wantRoot: "two",
		},
		{
			name:      "unknown version",
			args:      map[string]any{"name": "dashboard", "version_id": "19990101-000000"},
			errorCode: "NOT_FOUND",
		},
		{
			name:      "unknown view",
			args:      map[string]any{"name": "missing"},
			errorCode: "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleActivate(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if tt.errorCode != "" {
				assertErrorCode(t, result, tt.errorCode)
				return
			}
			out := parseOutput(t, result)
			if out["pinned"] != tt.wantPinned {
				t.Errorf("pinned = %v, want %v", out["pinned"], tt.wantPinned)
			}
			tree, err := ops.LoadActiveTree(ctx, env, "dashboard")
			if err != nil {
				t.Fatalf("LoadActiveTree: %v", err)
			}
			if tree.Root() != tt.wantRoot {
				t.Errorf("active root = %q, want %q", tree.Root(), tt.wantRoot)
			}
		})
	}
}

func TestHandleGetAndDeleteVersion(t *testing.T) {
	h := NewHandlers(testSetup(t))
	ctx := context.Background()
	id := saveView(t, h, "dashboard", "main")

	result, _ := h.HandleGetVersion(ctx, makeRequest(map[string]any{"name": "dashboard", "version_id": id}))
	out := parseOutput(t, result)
	if out["id"] != id {
		t.Errorf("id = %v, want %s", out["id"], id)
	}

	result, _ = h.HandleGetVersion(ctx, makeRequest(map[string]any{"name": "dashboard", "version_id": "nope"}))
	assertErrorCode(t, result, "NOT_FOUND")

	result, _ = h.HandleGetVersion(ctx, makeRequest(map[string]any{"name": "dashboard", "version_id": "../meta"}))
	assertErrorCode(t, result, "INVALID_VERSION_ID")

	result, _ = h.HandleDeleteVersion(ctx, makeRequest(map[string]any{"name": "dashboard", "version_id": id}))
	out = parseOutput(t, result)
	if out["view_removed"] != true {
		t.Errorf("view_removed = %v, want true after deleting the only version", out["view_removed"])
	}

	result, _ = h.HandleLoad(ctx, makeRequest(map[string]any{"name": "dashboard"}))
	assertErrorCode(t, result, "NOT_FOUND")
}

func TestHandleDelete(t *testing.T) {
	h := NewHandlers(testSetup(t))
	ctx := context.Background()
	saveView(t, h, "dashboard", "main")

	result, _ := h.HandleDelete(ctx, makeRequest(map[string]any{"name": "dashboard"}))
	if out := parseOutput(t, result); out["deleted"] != true {
		t.Errorf("deleted = %v, want true", out["deleted"])
	}

	// Deleting again is not an error.
	result, _ = h.HandleDelete(ctx, makeRequest(map[string]any{"name": "dashboard"}))
	if out := parseOutput(t, result); out["deleted"] != false {
		t.Errorf("second delete = %v, want false", out["deleted"])
	}

	result, _ = h.HandleDelete(ctx, makeRequest(map[string]any{"name": "bad/name"}))
	assertErrorCode(t, result, "INVALID_NAME")
}

func TestHandleResolve(t *testing.T) {
	h := NewHandlers(testSetup(t))
	ctx := context.Background()
	first := saveView(t, h, "dashboard", "one")
	saveView(t, h, "dashboard", "two")

	tests := []struct {
		name       string
		args       map[string]any
		wantSource string
		wantRoot   string
	}{
		{
			name:       "session pin wins",
			args:       map[string]any{"name": "dashboard", "pinned_version": first, "override": testDoc("over")},
			wantSource: "pinned",
			wantRoot:   "one",
		},
		{
			name:       "stale pin falls through to override",
			args:       map[string]any{"name": "dashboard", "pinned_version": "19990101-000000", "override": testDoc("over")},
			wantSource: "override",
			wantRoot:   "over",
		},
		{
			name:       "active version",
			args:       map[string]any{"name": "dashboard", "fallback": testDoc("fb")},
			wantSource: "active",
			wantRoot:   "two",
		},
		{
			name:       "fallback for missing view",
			args:       map[string]any{"name": "missing", "fallback": testDoc("fb")},
			wantSource: "fallback",
			wantRoot:   "fb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleResolve(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			out := parseOutput(t, result)
			if out["source"] != tt.wantSource {
				t.Errorf("source = %v, want %s", out["source"], tt.wantSource)
			}
			if root := out["content"].(map[string]any)["root"]; root != tt.wantRoot {
				t.Errorf("root = %v, want %s", root, tt.wantRoot)
			}
		})
	}

	result, _ := h.HandleResolve(ctx, makeRequest(map[string]any{"name": "missing"}))
	assertErrorCode(t, result, "NOT_FOUND")
}

func TestHandleHistory(t *testing.T) {
	h := NewHandlers(testSetup(t))
	ctx := context.Background()
	saveView(t, h, "alpha", "main")
	saveView(t, h, "bravo", "main")
	h.HandleDelete(ctx, makeRequest(map[string]any{"name": "alpha"}))

	result, _ := h.HandleHistory(ctx, makeRequest(map[string]any{"view": "alpha"}))
	out := parseOutput(t, result)
	items := out["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("got %d entries for alpha, want 2", len(items))
	}

	result, _ = h.HandleHistory(ctx, makeRequest(map[string]any{"action": "save"}))
	if items := parseOutput(t, result)["items"].([]any); len(items) != 2 {
		t.Errorf("got %d save entries, want 2", len(items))
	}

	result, _ = h.HandleHistory(ctx, makeRequest(map[string]any{"action": "rename"}))
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleHistory_JournalDisabled(t *testing.T) {
	env := testSetup(t)
	env.DB = nil
	h := NewHandlers(env)

	saveView(t, h, "alpha", "main")
	result, _ := h.HandleHistory(context.Background(), makeRequest(nil))
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleExportImport(t *testing.T) {
	env := testSetup(t)
	h := NewHandlers(env)
	ctx := context.Background()
	saveView(t, h, "dashboard", "main")

	exportPath := filepath.Join(env.ExportsDir, "backup.jsonl")
	result, _ := h.HandleExport(ctx, makeRequest(map[string]any{"path": exportPath}))
	out := parseOutput(t, result)
	if out["count"] != float64(1) {
		t.Errorf("count = %v, want 1", out["count"])
	}

	h.HandleDelete(ctx, makeRequest(map[string]any{"name": "dashboard"}))

	result, _ = h.HandleImport(ctx, makeRequest(map[string]any{"path": exportPath}))
	out = parseOutput(t, result)
	if out["imported"] != float64(1) {
		t.Errorf("imported = %v, want 1", out["imported"])
	}

	result, _ = h.HandleImport(ctx, makeRequest(map[string]any{"path": exportPath, "mode": "skip"}))
	out = parseOutput(t, result)
	if out["skipped"] != float64(1) {
		t.Errorf("skipped = %v, want 1", out["skipped"])
	}

	result, _ = h.HandleImport(ctx, makeRequest(map[string]any{"path": exportPath, "mode": "merge"}))
	assertErrorCode(t, result, "INVALID_REQUEST")

	result, _ = h.HandleExport(ctx, makeRequest(map[string]any{"path": filepath.Join(t.TempDir(), "x.jsonl")}))
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestServerRegistration(t *testing.T) {
	s := NewServer(testSetup(t), "test")
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	expectedTools := []string{
		"view_list",
		"view_load",
		"view_tree",
		"view_save",
		"view_activate",
		"view_get_version",
		"view_delete_version",
		"view_delete",
		"view_resolve",
		"view_history",
		"view_export",
		"view_import",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}
	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	env := testSetup(t)
	env.Config.DisabledTools = []string{"view_delete", "view_delete_version", "view_delete"}
	tools := NewServer(env, "test").ListTools()

	if len(tools) != 10 {
		t.Errorf("registered tool count = %d, want 10", len(tools))
	}
	for _, name := range []string{"view_delete", "view_delete_version"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
	if _, ok := tools["view_save"]; !ok {
		t.Error("view_save should be registered")
	}
}

func TestServerRegistration_DisabledType(t *testing.T) {
	env := testSetup(t)
	env.Config.DisabledTypes = []string{"view"}

	if tools := NewServer(env, "test").ListTools(); len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0", len(tools))
	}
}

func TestValidateDisabled(t *testing.T) {
	if unknown := ValidateDisabledTools([]string{"view_save", "widget_render"}); len(unknown) != 1 || unknown[0] != "widget_render" {
		t.Errorf("ValidateDisabledTools = %v, want [widget_render]", unknown)
	}
	if unknown := ValidateDisabledTools(AllToolNames()); len(unknown) != 0 {
		t.Errorf("AllToolNames returned unknown names: %v", unknown)
	}
	if unknown := ValidateDisabledTypes([]string{"view", "widget"}); len(unknown) != 1 {
		t.Errorf("ValidateDisabledTypes = %v, want 1 unknown", unknown)
	}
	if got := GetTypeForTool("view_delete_version"); got != "view" {
		t.Errorf("GetTypeForTool = %q, want view", got)
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("open /srv/views/.lock: permission denied")))
	errObj := errorObject(t, r)

	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_PlainErrorIsInternal(t *testing.T) {
	errObj := errorObject(t, errorResult(fmt.Errorf("disk full")))
	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want INTERNAL", errObj["code"])
	}
	if strings.Contains(errObj["message"].(string), "disk full") {
		t.Error("plain error text should not leak")
	}
}

func TestErrorResult_WrappedErrorPreservesContext(t *testing.T) {
	r := errorResult(fmt.Errorf("line 3: %w", errors.NewInvalidName("a/b")))
	errObj := errorObject(t, r)

	if errObj["code"] != string(errors.ErrInvalidName) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrInvalidName)
	}
	if msg := errObj["message"].(string); !strings.HasPrefix(msg, "line 3: ") {
		t.Errorf("message should keep wrapper context, got: %s", msg)
	}
	if _, ok := errObj["details"]; !ok {
		t.Error("expected non-INTERNAL errors to include details")
	}
}

// Helper functions

func errorObject(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if !result.IsError {
		t.Fatal("expected IsError=true")
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	return payload["error"].(map[string]any)
}

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if !result.IsError {
		t.Errorf("expected error %s, got success: %s", expectedCode, extractErrorMessage(result))
		return
	}
	if code := errorObject(t, result)["code"]; code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}
	return text.Text
}
