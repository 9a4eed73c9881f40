package ops

import (
	"context"

	"github.com/hpungsan/vellum/internal/view"
)

// Resolution sources, highest priority first.
const (
	SourcePinned   = "pinned"
	SourceOverride = "override"
	SourceActive   = "active"
	SourceFallback = "fallback"
)

// ResolveInput contains parameters for the ResolveTree operation.
type ResolveInput struct {
	Name string // required

	// PinnedVersion is a caller-held session pin; it is never persisted.
	PinnedVersion string

	// Override bypasses the store entirely when set.
	Override view.Document

	// Fallback is the caller's computed default.
	Fallback view.Document
}

// ResolveOutput describes which document to render and where it came from.
type ResolveOutput struct {
	Source    string        `json:"source"`
	VersionID string        `json:"version_id,omitempty"`
	Content   view.Document `json:"content"`
}

// ResolveTree picks the document to render for view name: session pin, then
// override document, then the store's active version, then the fallback.
// A pin that no longer resolves falls through. It returns nil when no tier
// yields a document.
func ResolveTree(ctx context.Context, env *Env, input ResolveInput) (*ResolveOutput, error) {
	if err := view.ValidateName(input.Name); err != nil {
		return nil, err
	}

	if input.PinnedVersion != "" {
		ver, err := LoadVersion(ctx, env, LoadVersionInput{Name: input.Name, VersionID: input.PinnedVersion})
		if err != nil {
			return nil, err
		}
		if ver != nil {
			return &ResolveOutput{Source: SourcePinned, VersionID: ver.ID, Content: ver.Content}, nil
		}
	}

	if input.Override != nil {
		_, doc, err := view.EncodeDocument(input.Override)
		if err != nil {
			return nil, err
		}
		return &ResolveOutput{Source: SourceOverride, Content: doc}, nil
	}

	v, err := LoadView(ctx, env, input.Name)
	if err != nil {
		return nil, err
	}
	if v != nil {
		return &ResolveOutput{Source: SourceActive, VersionID: v.Active.ID, Content: v.Active.Content}, nil
	}

	if input.Fallback != nil {
		_, doc, err := view.EncodeDocument(input.Fallback)
		if err != nil {
			return nil, err
		}
		return &ResolveOutput{Source: SourceFallback, Content: doc}, nil
	}
	return nil, nil
}
