package ops

import (
	"context"

	"github.com/hpungsan/vellum/internal/errors"
	"github.com/hpungsan/vellum/internal/view"
)

// DeleteViewInput contains parameters for the DeleteView operation.
type DeleteViewInput struct {
	Name string
}

// DeleteViewOutput contains the result of the DeleteView operation.
type DeleteViewOutput struct {
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
}

// DeleteView removes view name with every version and its metadata.
// Deleting a missing view succeeds with Deleted=false.
func DeleteView(ctx context.Context, env *Env, input DeleteViewInput) (*DeleteViewOutput, error) {
	if err := view.ValidateName(input.Name); err != nil {
		return nil, err
	}

	unlock, err := lockExisting(env, input.Name)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return &DeleteViewOutput{Name: input.Name}, nil
		}
		return nil, err
	}
	defer unlock()

	if err := env.Root.RemoveView(input.Name); err != nil {
		return nil, err
	}
	record(ctx, env, view.Event{View: input.Name, Action: view.ActionDeleteView})

	return &DeleteViewOutput{Name: input.Name, Deleted: true}, nil
}
