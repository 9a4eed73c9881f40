package ops

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/hpungsan/vellum/internal/errors"
	"github.com/hpungsan/vellum/internal/storage"
	"github.com/hpungsan/vellum/internal/view"
)

// SaveInput contains parameters for the SaveVersion operation.
type SaveInput struct {
	Name          string        // required
	Content       view.Document // required
	Prompt        string
	Description   *string // nil keeps the existing description
	ParentVersion string  // advisory, never validated
}

// SaveVersion appends a new version to view name, creating the view on
// first save. The new version becomes the tracked latest: any pin is cleared.
func SaveVersion(ctx context.Context, env *Env, input SaveInput) (*view.Version, error) {
	if err := view.ValidateName(input.Name); err != nil {
		return nil, err
	}
	data, doc, err := view.EncodeDocument(input.Content)
	if err != nil {
		return nil, err
	}
	if maxBytes := env.maxDocumentBytes(); len(data) > maxBytes {
		return nil, errors.NewDocumentTooLarge(maxBytes, len(data))
	}

	unlock, err := lockForWrite(env.Root, input.Name)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := env.Root.Now()
	meta, err := env.Root.ReadMeta(input.Name)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		meta = view.NewMeta(input.Name, now.UTC())
	}

	id, err := mintID(env.Root, meta, now)
	if err != nil {
		return nil, err
	}
	path, err := env.Root.WriteVersion(input.Name, id, data)
	if err != nil {
		return nil, err
	}

	prov := view.Provenance{
		ID:            id,
		Prompt:        input.Prompt,
		CreatedAt:     now.UTC(),
		ParentVersion: input.ParentVersion,
	}
	meta.Versions = append(meta.Versions, prov)
	if input.Description != nil {
		meta.Description = *input.Description
	}
	meta.UpdatedAt = now.UTC()
	meta.ActiveVersion = nil

	if err := env.Root.WriteMeta(meta); err != nil {
		return nil, err
	}

	record(ctx, env, view.Event{View: input.Name, VersionID: id, Action: view.ActionSave, Detail: input.Prompt})

	return &view.Version{
		ID:            id,
		Filename:      id + storage.VersionExt,
		Path:          path,
		CreatedAt:     prov.CreatedAt,
		Content:       doc,
		Prompt:        prov.Prompt,
		ParentVersion: prov.ParentVersion,
		Digest:        view.Digest(data),
	}, nil
}

// ensureView is the only place a view comes into existence: it creates the
// view's directory tree when the name is new.
func ensureView(root *storage.Root, name string) (bool, error) {
	return root.EnsureView(name)
}

// lockForWrite ensures view name exists and takes its lock, retrying when a
// concurrent delete removes the directory in between.
func lockForWrite(root *storage.Root, name string) (func(), error) {
	var err error
	for range 3 {
		if _, err = ensureView(root, name); err != nil {
			return nil, err
		}
		var unlock func()
		unlock, err = root.LockView(name)
		if err == nil {
			return unlock, nil
		}
		if !stderrors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, err
}

// maxIDSequence bounds collision suffixes within one second.
const maxIDSequence = 10000

// mintID returns the first id for now that neither has a file nor appears in
// meta. Callers must hold the view lock.
func mintID(root *storage.Root, meta *view.Meta, now time.Time) (string, error) {
	local := now.In(root.Location())
	for seq := 1; seq <= maxIDSequence; seq++ {
		id := view.FormatID(local, seq)
		if meta.HasVersion(id) {
			continue
		}
		exists, err := root.VersionExists(meta.Name, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", errors.NewConflict(fmt.Sprintf("too many versions saved in one second for view %s", meta.Name))
}
