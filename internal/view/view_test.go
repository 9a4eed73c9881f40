package view

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestSortVersions(t *testing.T) {
	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	versions := []*Version{
		{ID: "20240115-103002", CreatedAt: base.Add(2 * time.Second)},
		{ID: "20240115-103000-10", CreatedAt: base},
		{ID: "20240115-103000-2", CreatedAt: base},
		{ID: "20240115-103000", CreatedAt: base},
	}

	SortVersions(versions)

	want := []string{"20240115-103000", "20240115-103000-2", "20240115-103000-10", "20240115-103002"}
	for i, id := range want {
		if versions[i].ID != id {
			t.Errorf("versions[%d] = %s, want %s", i, versions[i].ID, id)
		}
	}
}

func TestMeta_RemoveVersion(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	m := NewMeta("dash", now)
	m.Versions = append(m.Versions,
		Provenance{ID: "v1", CreatedAt: now},
		Provenance{ID: "v2", CreatedAt: now},
		Provenance{ID: "v1", CreatedAt: now},
	)
	m.ActiveVersion = strPtr("v1")

	if !m.RemoveVersion("v1") {
		t.Fatal("RemoveVersion(v1) = false, want true")
	}
	if len(m.Versions) != 1 || m.Versions[0].ID != "v2" {
		t.Errorf("Versions = %+v, want only v2", m.Versions)
	}
	if m.ActiveVersion != nil {
		t.Errorf("ActiveVersion = %v, want nil after deleting pinned version", *m.ActiveVersion)
	}
	if m.RemoveVersion("missing") {
		t.Error("RemoveVersion(missing) = true, want false")
	}
}

func TestView_PinnedAndSummary(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	v1 := &Version{ID: "v1", CreatedAt: now, Digest: "d1"}
	v2 := &Version{ID: "v2", CreatedAt: now.Add(time.Second), Digest: "d2"}
	meta := NewMeta("dash", now)
	meta.Description = "Ops dashboard"

	v := &View{Name: "dash", Description: meta.Description, Versions: []*Version{v1, v2}, Latest: v2, Active: v2, Meta: meta}
	if v.Pinned() {
		t.Error("Pinned() = true, want false without a pin")
	}

	meta.ActiveVersion = strPtr("v1")
	v.Active = v1
	if !v.Pinned() {
		t.Error("Pinned() = false, want true")
	}

	s := v.ToSummary()
	if s.VersionCount != 2 || s.LatestID != "v2" || s.ActiveID != "v1" || !s.Pinned {
		t.Errorf("ToSummary() = %+v", s)
	}
	if s.ActiveDigest != "d1" {
		t.Errorf("ActiveDigest = %q, want %q", s.ActiveDigest, "d1")
	}
	if v.Version("v2") != v2 || v.Version("nope") != nil {
		t.Error("Version() lookup mismatch")
	}
}
