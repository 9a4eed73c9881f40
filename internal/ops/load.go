package ops

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/hpungsan/vellum/internal/storage"
	"github.com/hpungsan/vellum/internal/view"
)

// LoadView loads view name with all of its versions. It returns nil when the
// view does not exist, has no readable metadata, or has no readable versions.
func LoadView(ctx context.Context, env *Env, name string) (*view.View, error) {
	if err := view.ValidateName(name); err != nil {
		return nil, err
	}
	return loadView(env.Root, name)
}

// LoadActiveTree returns the active document of view name, or nil.
func LoadActiveTree(ctx context.Context, env *Env, name string) (view.Document, error) {
	v, err := LoadView(ctx, env, name)
	if err != nil || v == nil {
		return nil, err
	}
	return v.Active.Content, nil
}

func loadView(root *storage.Root, name string) (*view.View, error) {
	exists, err := root.ViewExists(name)
	if err != nil || !exists {
		return nil, err
	}

	meta, err := root.ReadMeta(name)
	if err != nil {
		if stderrors.Is(err, storage.ErrCorrupt) {
			return nil, nil
		}
		return nil, err
	}
	if meta == nil {
		return nil, nil
	}

	files, err := root.ReadVersionFiles(name)
	if err != nil {
		return nil, err
	}

	// Safe stems keep their ids; minted ids must not reuse any of them.
	taken := make(map[string]bool, len(files))
	for _, f := range files {
		if view.ValidName(f.Stem) {
			taken[f.Stem] = true
		}
	}

	versions := make([]*view.Version, 0, len(files))
	for _, f := range files {
		if ver := buildVersion(root, meta, f, taken); ver != nil {
			versions = append(versions, ver)
		}
	}
	if len(versions) == 0 {
		return nil, nil
	}
	view.SortVersions(versions)

	v := &view.View{
		Name:        name,
		Description: meta.Description,
		Versions:    versions,
		Latest:      versions[len(versions)-1],
		Meta:        meta,
	}
	v.Active = v.Latest
	if meta.ActiveVersion != nil {
		if pinned := v.Version(*meta.ActiveVersion); pinned != nil {
			v.Active = pinned
		}
	}
	return v, nil
}

// buildVersion reconciles one version file with its provenance entry.
// Unparseable payloads yield nil. Ids minted for unsafe stems are recorded
// in taken.
func buildVersion(root *storage.Root, meta *view.Meta, f storage.VersionFile, taken map[string]bool) *view.Version {
	doc, err := view.ParseDocument(f.Data)
	if err != nil {
		return nil
	}

	id := f.Stem
	if !view.ValidName(id) {
		id = mintFileID(f.ModTime.In(root.Location()), taken)
	}

	ver := &view.Version{
		ID:       id,
		Filename: f.Stem + storage.VersionExt,
		Path:     f.Path,
		Content:  doc,
		Digest:   view.Digest(f.Data),
	}

	prov, hasProv := meta.Provenance(id)
	switch {
	case hasProv && !prov.CreatedAt.IsZero():
		ver.CreatedAt = prov.CreatedAt
	default:
		if t, _, ok := view.ParseID(id, root.Location()); ok {
			ver.CreatedAt = t
		} else {
			ver.CreatedAt = f.ModTime
		}
	}
	ver.CreatedAt = ver.CreatedAt.UTC()
	if hasProv {
		ver.Prompt = prov.Prompt
		ver.ParentVersion = prov.ParentVersion
	}
	return ver
}

// mintFileID returns the first timestamp id for t not present in taken and
// marks it used. Files are visited in name order, so the result is stable
// across loads.
func mintFileID(t time.Time, taken map[string]bool) string {
	seq := 1
	id := view.FormatID(t, seq)
	for taken[id] {
		seq++
		id = view.FormatID(t, seq)
	}
	taken[id] = true
	return id
}
