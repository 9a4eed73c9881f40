package ops

import (
	"context"

	"github.com/hpungsan/vellum/internal/db"
	"github.com/hpungsan/vellum/internal/errors"
	"github.com/hpungsan/vellum/internal/view"
)

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	View   string // optional filter
	Action string // optional filter
	Limit  int    // default: 50, max: 500
	Offset int
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Items      []view.Event `json:"items"`
	Pagination Pagination   `json:"pagination"`
}

var knownActions = map[string]bool{
	view.ActionSave:          true,
	view.ActionActivate:      true,
	view.ActionDeleteVersion: true,
	view.ActionDeleteView:    true,
	view.ActionImport:        true,
}

// History lists journal entries newest first.
func History(ctx context.Context, env *Env, input HistoryInput) (*HistoryOutput, error) {
	if env.DB == nil {
		return nil, errors.NewInvalidRequest("journal is disabled")
	}
	if input.View != "" {
		if err := view.ValidateName(input.View); err != nil {
			return nil, err
		}
	}
	if input.Action != "" && !knownActions[input.Action] {
		return nil, errors.NewInvalidRequest("action must be one of: save, activate, delete_version, delete_view, import")
	}

	limit := clampLimit(input.Limit, DefaultHistoryLimit, MaxHistoryLimit)
	offset := max(input.Offset, 0)

	events, total, err := db.ListEvents(ctx, env.DB, db.EventFilters{View: input.View, Action: input.Action}, limit, offset)
	if err != nil {
		return nil, err
	}
	return &HistoryOutput{
		Items:      events,
		Pagination: paginate(limit, offset, total),
	}, nil
}
