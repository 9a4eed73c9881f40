package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/vellum/internal/config"
	"github.com/hpungsan/vellum/internal/db"
	"github.com/hpungsan/vellum/internal/mcp"
	"github.com/hpungsan/vellum/internal/ops"
	"github.com/hpungsan/vellum/internal/storage"
)

// envOptions are the global overrides accepted on the command line.
type envOptions struct {
	Root     string // store root, overrides views_root
	LogLevel string // debug, info, warn or error
}

// openEnv loads config from ~/.vellum and the nearest repo .vellum, then
// opens the store root and, unless disabled, the journal. The returned
// closer releases the journal.
func openEnv(opts envOptions) (*ops.Env, func(), error) {
	logger, err := newLogger(opts.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	baseDir, err := config.DefaultBaseDir()
	if err != nil {
		return nil, nil, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("get working directory: %w", err)
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if opts.Root != "" {
		cfg.ViewsRoot = opts.Root
	}

	rootDir, err := cfg.ResolveViewsRoot(baseDir)
	if err != nil {
		return nil, nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	root, err := storage.Open(rootDir, storage.WithLocation(loc))
	if err != nil {
		return nil, nil, fmt.Errorf("open store root: %w", err)
	}
	exportsDir, err := cfg.ResolveExportsDir(baseDir)
	if err != nil {
		return nil, nil, err
	}

	env := &ops.Env{
		Root:       root,
		Config:     cfg,
		ExportsDir: exportsDir,
		Logger:     logger,
	}
	closer := func() {}

	if !cfg.DisableJournal {
		database, err := db.Init(baseDir)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize journal: %w", err)
		}
		db.ConfigurePool(database, cfg)
		env.DB = database
		closer = func() { database.Close() }
	}

	logger.Debug("environment ready", "root", root.Dir(), "journal", env.DB != nil, "exports_dir", exportsDir)
	return env, closer, nil
}

// newLogger builds the stderr text logger; stdout is reserved for command
// output and the MCP transport.
func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q", level)
		}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

// warnUnknownDisabled logs disabled_tools and disabled_types entries that
// match nothing.
func warnUnknownDisabled(env *ops.Env) {
	for _, name := range mcp.ValidateDisabledTools(env.Config.DisabledTools) {
		env.Logger.Warn("unknown tool in disabled_tools", "tool", name)
	}
	for _, name := range mcp.ValidateDisabledTypes(env.Config.DisabledTypes) {
		env.Logger.Warn("unknown type in disabled_types", "type", name)
	}
}

// session opens the environment on first use so help and version never
// touch the filesystem.
type session struct {
	env    *ops.Env
	closer func()
}

func (s *session) open(c *cli.Context) (*ops.Env, error) {
	if s.env != nil {
		return s.env, nil
	}
	env, closer, err := openEnv(envOptions{Root: c.String("root"), LogLevel: c.String("log-level")})
	if err != nil {
		return nil, err
	}
	s.env, s.closer = env, closer
	return env, nil
}

func (s *session) close(*cli.Context) error {
	if s.closer != nil {
		s.closer()
		s.closer = nil
	}
	return nil
}
