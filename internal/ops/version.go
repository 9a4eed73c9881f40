package ops

import (
	"context"

	"github.com/hpungsan/vellum/internal/view"
)

// LoadVersionInput contains parameters for the LoadVersion operation.
type LoadVersionInput struct {
	Name      string
	VersionID string
}

// LoadVersion returns one version of view name, or nil. It goes through the
// full view load so provenance is reconciled the same way.
func LoadVersion(ctx context.Context, env *Env, input LoadVersionInput) (*view.Version, error) {
	if err := view.ValidateVersionID(input.VersionID); err != nil {
		return nil, err
	}
	v, err := LoadView(ctx, env, input.Name)
	if err != nil || v == nil {
		return nil, err
	}
	return v.Version(input.VersionID), nil
}
