package ops

import (
	"context"
	stderrors "errors"
	"io/fs"

	"github.com/hpungsan/vellum/internal/errors"
	"github.com/hpungsan/vellum/internal/view"
)

// ActivateInput contains parameters for the SetActiveVersion operation.
type ActivateInput struct {
	Name      string  // required
	VersionID *string // nil tracks the latest version
}

// ActivateOutput contains the result of the SetActiveVersion operation.
type ActivateOutput struct {
	Name          string  `json:"name"`
	ActiveVersion *string `json:"active_version"`
	Pinned        bool    `json:"pinned"`
}

// SetActiveVersion pins a version of view name, or clears the pin when
// VersionID is nil. The id must appear in the view's provenance list.
func SetActiveVersion(ctx context.Context, env *Env, input ActivateInput) (*ActivateOutput, error) {
	if err := view.ValidateName(input.Name); err != nil {
		return nil, err
	}
	if input.VersionID != nil {
		if err := view.ValidateVersionID(*input.VersionID); err != nil {
			return nil, err
		}
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
	if input.VersionID != nil && !meta.HasVersion(*input.VersionID) {
		return nil, errors.NewVersionNotFound(input.Name, *input.VersionID)
	}

	meta.ActiveVersion = input.VersionID
	meta.UpdatedAt = env.Root.Now().UTC()
	if err := env.Root.WriteMeta(meta); err != nil {
		return nil, err
	}

	e := view.Event{View: input.Name, Action: view.ActionActivate, Detail: "latest"}
	if input.VersionID != nil {
		e.VersionID = *input.VersionID
		e.Detail = "pinned"
	}
	record(ctx, env, e)

	return &ActivateOutput{
		Name:          input.Name,
		ActiveVersion: input.VersionID,
		Pinned:        input.VersionID != nil,
	}, nil
}

// lockExisting locks view name, reporting NOT_FOUND when its directory is
// missing or disappears while waiting.
func lockExisting(env *Env, name string) (func(), error) {
	exists, err := env.Root.ViewExists(name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NewViewNotFound(name)
	}
	unlock, err := env.Root.LockView(name)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewViewNotFound(name)
		}
		return nil, err
	}
	return unlock, nil
}
