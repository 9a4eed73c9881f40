package ops

import (
	"context"

	"github.com/hpungsan/vellum/internal/db"
	"github.com/hpungsan/vellum/internal/view"
)

// record appends a journal entry for a completed mutation. Journal failures
// never fail the mutation; they are logged and dropped.
func record(ctx context.Context, env *Env, e view.Event) {
	if env.DB == nil {
		return
	}
	e.CreatedAt = env.Root.Now().Unix()
	if err := db.InsertEvent(context.WithoutCancel(ctx), env.DB, &e); err != nil {
		env.logger().Warn("journal write failed",
			"view", e.View, "action", e.Action, "version_id", e.VersionID, "error", err)
	}
}
