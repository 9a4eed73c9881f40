package storage

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/hpungsan/vellum/internal/view"
)

// ErrCorrupt marks a metadata file that exists but cannot be decoded.
var ErrCorrupt = stderrors.New("corrupt metadata")

// ReadMeta reads the metadata record of view name. A missing file yields
// (nil, nil); a corrupt one yields an error wrapping ErrCorrupt.
func (r *Root) ReadMeta(name string) (*view.Meta, error) {
	path, err := r.MetaPath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read meta %s: %w", path, err)
	}

	var m view.Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parse meta %s: %v", ErrCorrupt, path, err)
	}
	if m.Versions == nil {
		m.Versions = []view.Provenance{}
	}
	return &m, nil
}

// WriteMeta replaces the metadata record of m.Name wholesale.
func (r *Root) WriteMeta(m *view.Meta) error {
	path, err := r.MetaPath(m.Name)
	if err != nil {
		return err
	}
	if m.Versions == nil {
		m.Versions = []view.Provenance{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode meta %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := writeFileAtomic(path, data, 0600); err != nil {
		return fmt.Errorf("write meta %s: %w", path, err)
	}
	return nil
}
