package ops

import (
	"context"

	"github.com/hpungsan/vellum/internal/errors"
	"github.com/hpungsan/vellum/internal/view"
)

// ListViews loads every view under the root, sorted by name. Views that fail
// to load are skipped; only a root read failure is an error.
func ListViews(ctx context.Context, env *Env) ([]*view.View, error) {
	names, err := env.Root.ListViewNames()
	if err != nil {
		return nil, err
	}

	views := make([]*view.View, 0, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("list")
		}
		v, err := loadView(env.Root, name)
		if err != nil || v == nil {
			continue
		}
		views = append(views, v)
	}
	return views, nil
}

// ListInput contains parameters for the ListSummaries operation.
type ListInput struct {
	Limit  int // default: 20, max: 100
	Offset int // default: 0
}

// ListOutput contains the result of the ListSummaries operation.
type ListOutput struct {
	Items      []view.Summary `json:"items"`
	Pagination Pagination     `json:"pagination"`
	Sort       string         `json:"sort"`
}

// ListSummaries returns a page of view summaries ordered by name.
func ListSummaries(ctx context.Context, env *Env, input ListInput) (*ListOutput, error) {
	limit := clampLimit(input.Limit, DefaultListLimit, MaxListLimit)
	offset := max(input.Offset, 0)

	views, err := ListViews(ctx, env)
	if err != nil {
		return nil, err
	}

	items := []view.Summary{}
	for i := offset; i < len(views) && i < offset+limit; i++ {
		items = append(items, views[i].ToSummary())
	}

	return &ListOutput{
		Items:      items,
		Pagination: paginate(limit, offset, len(views)),
		Sort:       "name_asc",
	}, nil
}
