package ops

import (
	"context"

	"github.com/hpungsan/vellum/internal/errors"
	"github.com/hpungsan/vellum/internal/storage"
	"github.com/hpungsan/vellum/internal/view"
)

// DeleteVersionInput contains parameters for the DeleteVersion operation.
type DeleteVersionInput struct {
	Name      string
	VersionID string
}

// DeleteVersionOutput contains the result of the DeleteVersion operation.
type DeleteVersionOutput struct {
	Name        string `json:"name"`
	VersionID   string `json:"version_id"`
	Deleted     bool   `json:"deleted"`
	ViewRemoved bool   `json:"view_removed"`
}

// DeleteVersion removes one version file and its provenance entry, clearing
// the pin if it pointed there. A missing id is not an error. When no version
// file remains, the whole view directory is removed.
func DeleteVersion(ctx context.Context, env *Env, input DeleteVersionInput) (*DeleteVersionOutput, error) {
	if err := view.ValidateName(input.Name); err != nil {
		return nil, err
	}
	if err := view.ValidateVersionID(input.VersionID); err != nil {
		return nil, err
	}

	unlock, err := lockExisting(env, input.Name)
	if err != nil {
		return nil, err
	}
	defer unlock()

	meta, err := env.Root.ReadMeta(input.Name)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, errors.NewViewNotFound(input.Name)
	}

	// A version loaded from a file with an unsafe stem carries a minted id,
	// so the file to remove comes from the loaded view.
	filename := input.VersionID + storage.VersionExt
	v, err := loadView(env.Root, input.Name)
	if err != nil {
		return nil, err
	}
	if v != nil {
		if ver := v.Version(input.VersionID); ver != nil {
			filename = ver.Filename
		}
	}

	removed, err := env.Root.RemoveVersionFile(input.Name, filename)
	if err != nil {
		return nil, err
	}
	changed := meta.RemoveVersion(input.VersionID)

	out := &DeleteVersionOutput{
		Name:      input.Name,
		VersionID: input.VersionID,
		Deleted:   removed || changed,
	}

	remaining, err := env.Root.ReadVersionFiles(input.Name)
	if err != nil {
		return nil, err
	}
	if len(remaining) == 0 {
		if err := env.Root.RemoveView(input.Name); err != nil {
			return nil, err
		}
		out.ViewRemoved = true
	} else if out.Deleted {
		meta.UpdatedAt = env.Root.Now().UTC()
		if err := env.Root.WriteMeta(meta); err != nil {
			return nil, err
		}
	}

	if out.Deleted {
		e := view.Event{View: input.Name, VersionID: input.VersionID, Action: view.ActionDeleteVersion}
		if out.ViewRemoved {
			e.Detail = "last version; view removed"
		}
		record(ctx, env, e)
	}
	return out, nil
}
