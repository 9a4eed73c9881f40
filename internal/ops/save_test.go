package ops

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hpungsan/vellum/internal/errors"
	"github.com/hpungsan/vellum/internal/storage"
)

func TestSaveVersion_CreatesView(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()

	ver, err := SaveVersion(ctx, env, SaveInput{
		Name:          "dash",
		Content:       testDoc("a"),
		Prompt:        "initial layout",
		Description:   strPtr("Ops dashboard"),
		ParentVersion: "draft-0",
	})
	if err != nil {
		t.Fatalf("SaveVersion failed: %v", err)
	}

	if ver.ID != "20240115-103000" {
		t.Errorf("ID = %q, want %q", ver.ID, "20240115-103000")
	}
	if ver.Filename != "20240115-103000.json" {
		t.Errorf("Filename = %q", ver.Filename)
	}
	wantPath := filepath.Join(env.Root.Dir(), "dash", storage.VersionsDir, ver.Filename)
	if ver.Path != wantPath {
		t.Errorf("Path = %q, want %q", ver.Path, wantPath)
	}
	if !ver.CreatedAt.Equal(testEpoch) {
		t.Errorf("CreatedAt = %v, want %v", ver.CreatedAt, testEpoch)
	}
	if ver.Prompt != "initial layout" || ver.ParentVersion != "draft-0" {
		t.Errorf("provenance = %q / %q", ver.Prompt, ver.ParentVersion)
	}
	if len(ver.Digest) != 64 {
		t.Errorf("Digest = %q, want 64 hex chars", ver.Digest)
	}

	data, err := os.ReadFile(filepath.Join(env.Root.Dir(), "dash", storage.MetaFile))
	if err != nil {
		t.Fatalf("read meta.json: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("meta.json is not JSON: %v", err)
	}
	if v, ok := raw["activeVersion"]; !ok || v != nil {
		t.Errorf("activeVersion = %v (present %v), want explicit null", v, ok)
	}
	if raw["description"] != "Ops dashboard" || raw["name"] != "dash" {
		t.Errorf("meta.json = %s", data)
	}
	versions, _ := raw["versions"].([]any)
	if len(versions) != 1 {
		t.Fatalf("versions = %v, want one entry", raw["versions"])
	}
	entry := versions[0].(map[string]any)
	if entry["id"] != ver.ID || entry["prompt"] != "initial layout" || entry["parentVersion"] != "draft-0" {
		t.Errorf("provenance entry = %v", entry)
	}
}

func TestSaveVersion_ClearsPinAndKeepsDescription(t *testing.T) {
	env, clock := newTestEnv(t)
	ctx := context.Background()

	if _, err := SaveVersion(ctx, env, SaveInput{Name: "dash", Content: testDoc("a"), Description: strPtr("kept")}); err != nil {
		t.Fatal(err)
	}
	first := "20240115-103000"
	if _, err := SetActiveVersion(ctx, env, ActivateInput{Name: "dash", VersionID: &first}); err != nil {
		t.Fatal(err)
	}

	clock.Advance(time.Second)
	if _, err := SaveVersion(ctx, env, SaveInput{Name: "dash", Content: testDoc("b")}); err != nil {
		t.Fatal(err)
	}

	v, err := LoadView(ctx, env, "dash")
	if err != nil || v == nil {
		t.Fatalf("LoadView = %v, %v", v, err)
	}
	if v.Meta.ActiveVersion != nil {
		t.Errorf("ActiveVersion = %q, want nil after a new save", *v.Meta.ActiveVersion)
	}
	if v.Active.ID != v.Latest.ID {
		t.Errorf("Active = %s, want latest %s", v.Active.ID, v.Latest.ID)
	}
	if v.Description != "kept" {
		t.Errorf("Description = %q, want %q", v.Description, "kept")
	}
	if v.Meta.UpdatedAt.Before(v.Meta.CreatedAt) || !v.Meta.UpdatedAt.Equal(testEpoch.Add(time.Second)) {
		t.Errorf("UpdatedAt = %v, want %v", v.Meta.UpdatedAt, testEpoch.Add(time.Second))
	}
}

func TestSaveVersion_SameSecondCollision(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()

	// The stub clock never advances: all three saves land in the same second.
	v1 := mustSave(t, env, "dash", "a")
	v2 := mustSave(t, env, "dash", "b")
	v3 := mustSave(t, env, "dash", "c")

	if v1.ID != "20240115-103000" || v2.ID != "20240115-103000-2" || v3.ID != "20240115-103000-3" {
		t.Fatalf("ids = %s, %s, %s; want suffixed ids", v1.ID, v2.ID, v3.ID)
	}

	v, err := LoadView(ctx, env, "dash")
	if err != nil || v == nil {
		t.Fatalf("LoadView = %v, %v", v, err)
	}
	if len(v.Versions) != 3 {
		t.Fatalf("len(Versions) = %d, want 3 (no data lost)", len(v.Versions))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got := v.Versions[i].Content.Root(); got != want {
			t.Errorf("Versions[%d].root = %q, want %q", i, got, want)
		}
	}
	if v.Latest.ID != v3.ID {
		t.Errorf("Latest = %s, want %s", v.Latest.ID, v3.ID)
	}
	if len(v.Meta.Versions) != 3 {
		t.Errorf("provenance entries = %d, want 3", len(v.Meta.Versions))
	}
}

func TestSaveVersion_Validation(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input SaveInput
		code  errors.ErrorCode
	}{
		{"traversal name", SaveInput{Name: "../escape", Content: testDoc("a")}, errors.ErrInvalidName},
		{"slash name", SaveInput{Name: "a/b", Content: testDoc("a")}, errors.ErrInvalidName},
		{"nil content", SaveInput{Name: "dash"}, errors.ErrInvalidDocument},
		{"missing root", SaveInput{Name: "dash", Content: map[string]any{"elements": map[string]any{}}}, errors.ErrInvalidDocument},
		{"missing elements", SaveInput{Name: "dash", Content: map[string]any{"root": "a"}}, errors.ErrInvalidDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SaveVersion(ctx, env, tt.input)
			if !errors.Is(err, tt.code) {
				t.Errorf("SaveVersion() error = %v, want %s", err, tt.code)
			}
		})
	}

	// Nothing was written for any rejected call.
	entries, err := os.ReadDir(env.Root.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("root has %d entries after rejected saves, want 0", len(entries))
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(env.Root.Dir()), "escape")); !os.IsNotExist(err) {
		t.Error("traversal name created a directory outside the root")
	}
}

func TestSaveVersion_DocumentTooLarge(t *testing.T) {
	env, _ := newTestEnv(t)
	env.Config.MaxDocumentBytes = 64

	doc := testDoc("a")
	doc["padding"] = strings.Repeat("x", 200)

	_, err := SaveVersion(context.Background(), env, SaveInput{Name: "dash", Content: doc})
	if !errors.Is(err, errors.ErrDocumentTooLarge) {
		t.Fatalf("SaveVersion() error = %v, want DOCUMENT_TOO_LARGE", err)
	}
	vErr, _ := errors.As(err)
	if vErr.Details["max_bytes"] != 64 {
		t.Errorf("Details[max_bytes] = %v, want 64", vErr.Details["max_bytes"])
	}
}

func TestSaveVersion_ConcurrentNoLostUpdates(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()

	const n = 12
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := SaveVersion(ctx, env, SaveInput{Name: "dash", Content: testDoc("a")})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent SaveVersion failed: %v", err)
		}
	}

	v, err := LoadView(ctx, env, "dash")
	if err != nil || v == nil {
		t.Fatalf("LoadView = %v, %v", v, err)
	}
	if len(v.Versions) != n {
		t.Errorf("versions = %d, want %d", len(v.Versions), n)
	}
	if len(v.Meta.Versions) != n {
		t.Errorf("provenance entries = %d, want %d (lost update)", len(v.Meta.Versions), n)
	}
}

func TestSaveVersion_IDUsesRootLocation(t *testing.T) {
	tmp := t.TempDir()
	loc := time.FixedZone("UTC+9", 9*60*60)
	clock := &stubClock{now: testEpoch}
	root, err := storage.Open(tmp, storage.WithClock(clock), storage.WithLocation(loc))
	if err != nil {
		t.Fatal(err)
	}
	env := &Env{Root: root}

	ver := mustSave(t, env, "dash", "a")
	if ver.ID != "20240115-193000" {
		t.Errorf("ID = %q, want id formatted in UTC+9", ver.ID)
	}
	if !ver.CreatedAt.Equal(testEpoch) {
		t.Errorf("CreatedAt = %v, want %v", ver.CreatedAt, testEpoch)
	}
}
