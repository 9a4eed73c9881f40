package db

import (
	"context"
	"database/sql"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/vellum/internal/errors"
	"github.com/hpungsan/vellum/internal/view"
)

// EventFilters narrows ListEvents. Zero values match everything.
type EventFilters struct {
	View   string
	Action string
}

// InsertEvent appends a journal entry. An empty e.ID is filled with a new ULID.
func InsertEvent(ctx context.Context, db *sql.DB, e *view.Event) error {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}

	query := `
		INSERT INTO events (id, view, version_id, action, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		e.ID, e.View, toNullString(e.VersionID), e.Action, toNullString(e.Detail), e.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListEvents returns journal entries newest first, plus the total number of
// entries matching filters.
func ListEvents(ctx context.Context, db *sql.DB, filters EventFilters, limit, offset int) ([]view.Event, int, error) {
	where := " WHERE 1=1"
	var args []any
	if filters.View != "" {
		where += " AND view = ?"
		args = append(args, filters.View)
	}
	if filters.Action != "" {
		where += " AND action = ?"
		args = append(args, filters.Action)
	}

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `SELECT id, view, version_id, action, detail, created_at FROM events` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	events := []view.Event{}
	for rows.Next() {
		var e view.Event
		var versionID, detail sql.NullString
		if err := rows.Scan(&e.ID, &e.View, &versionID, &e.Action, &detail, &e.CreatedAt); err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		e.VersionID = versionID.String
		e.Detail = detail.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return events, total, nil
}

// toNullString maps "" to NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
