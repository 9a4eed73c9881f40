package ops

import (
	"database/sql"
	"log/slog"

	"github.com/hpungsan/vellum/internal/config"
	"github.com/hpungsan/vellum/internal/storage"
)

// Pagination limits
const (
	DefaultListLimit    = 20
	MaxListLimit        = 100
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Env bundles what every operation runs against.
type Env struct {
	Root   *storage.Root
	Config *config.Config

	// DB is the mutation journal. Nil disables journaling and History.
	DB *sql.DB

	// ExportsDir is the default directory for export files.
	ExportsDir string

	Logger *slog.Logger
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

func (e *Env) maxDocumentBytes() int {
	if e.Config == nil || e.Config.MaxDocumentBytes <= 0 {
		return config.DefaultMaxDocumentBytes
	}
	return e.Config.MaxDocumentBytes
}

// clampLimit applies a default and an upper bound to a page size.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

func paginate(limit, offset, total int) Pagination {
	return Pagination{
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
		Total:   total,
	}
}
