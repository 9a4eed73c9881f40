package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/vellum/internal/config"
	"github.com/hpungsan/vellum/internal/errors"
	"github.com/hpungsan/vellum/internal/ops"
	"github.com/hpungsan/vellum/internal/view"
	"github.com/hpungsan/vellum/internal/web"
)

// newCLIApp creates the CLI application with all commands. A nil env is
// opened from config on the first command that needs it.
func newCLIApp(env *ops.Env) *cli.App {
	s := &session{env: env}
	app := &cli.App{
		Name:    "vellum",
		Usage:   "Versioned store for generated UI view documents",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Usage: "Store root directory (overrides views_root)", EnvVars: []string{"VELLUM_ROOT"}},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "Log level: debug|info|warn|error"},
		},
		Commands: []*cli.Command{
			listCmd(s),
			showCmd(s),
			treeCmd(s),
			saveCmd(s),
			activateCmd(s),
			getCmd(s),
			deleteCmd(s),
			dropCmd(s),
			resolveCmd(s),
			historyCmd(s),
			exportCmd(s),
			importCmd(s),
			serveCmd(s),
		},
		After: s.close,
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// listCmd creates the list command.
func listCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List views",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max items"},
			&cli.IntFlag{Name: "offset", Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			env, err := s.open(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.ListSummaries(c.Context, env, ops.ListInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a view with all of its versions",
		ArgsUsage: "<name>",
		Action: func(c *cli.Context) error {
			args, err := requireArgs(c, 1)
			if err != nil {
				return outputError(err)
			}
			env, err := s.open(c)
			if err != nil {
				return outputError(err)
			}
			v, err := ops.LoadView(c.Context, env, args[0])
			if err != nil {
				return outputError(err)
			}
			if v == nil {
				return outputError(errors.NewViewNotFound(args[0]))
			}
			return outputJSON(v)
		},
	}
}

// treeCmd creates the tree command.
func treeCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "tree",
		Usage:     "Print the active document of a view",
		ArgsUsage: "<name>",
		Action: func(c *cli.Context) error {
			args, err := requireArgs(c, 1)
			if err != nil {
				return outputError(err)
			}
			env, err := s.open(c)
			if err != nil {
				return outputError(err)
			}
			tree, err := ops.LoadActiveTree(c.Context, env, args[0])
			if err != nil {
				return outputError(err)
			}
			if tree == nil {
				return outputError(errors.NewViewNotFound(args[0]))
			}
			return outputJSON(tree)
		},
	}
}

// saveCmd creates the save command.
func saveCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "Save a new version (reads the document from stdin)",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "prompt", Aliases: []string{"p"}, Usage: "Prompt that produced the document"},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Replace the view description"},
			&cli.StringFlag{Name: "parent", Usage: "Version this one derives from"},
		},
		Action: func(c *cli.Context) error {
			args, err := requireArgs(c, 1)
			if err != nil {
				return outputError(err)
			}
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("document must be piped via stdin"))
			}
			env, err := s.open(c)
			if err != nil {
				return outputError(err)
			}

			data, err := readStdin(stdinLimit(env.Config))
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}
			doc, err := view.ParseDocument(data)
			if err != nil {
				return outputError(err)
			}

			input := ops.SaveInput{
				Name:          args[0],
				Content:       doc,
				Prompt:        c.String("prompt"),
				ParentVersion: c.String("parent"),
			}
			if c.IsSet("description") {
				desc := c.String("description")
				input.Description = &desc
			}

			output, err := ops.SaveVersion(c.Context, env, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// activateCmd creates the activate command.
func activateCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "activate",
		Usage:     "Pin a version as active, or track the latest with --latest",
		ArgsUsage: "<name> [version-id]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "latest", Usage: "Clear the pin and track the latest version"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 || c.NArg() > 2 {
				return outputError(errors.NewInvalidRequest("usage: vellum activate <name> [version-id]"))
			}
			input := ops.ActivateInput{Name: c.Args().Get(0)}
			switch {
			case c.NArg() == 2 && c.Bool("latest"):
				return outputError(errors.NewInvalidRequest("a version id and --latest are mutually exclusive"))
			case c.NArg() == 2:
				id := c.Args().Get(1)
				input.VersionID = &id
			case !c.Bool("latest"):
				return outputError(errors.NewInvalidRequest("a version id or --latest is required"))
			}

			env, err := s.open(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.SetActiveVersion(c.Context, env, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// getCmd creates the get command.
func getCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Print one version of a view",
		ArgsUsage: "<name> <version-id>",
		Action: func(c *cli.Context) error {
			args, err := requireArgs(c, 2)
			if err != nil {
				return outputError(err)
			}
			env, err := s.open(c)
			if err != nil {
				return outputError(err)
			}
			ver, err := ops.LoadVersion(c.Context, env, ops.LoadVersionInput{Name: args[0], VersionID: args[1]})
			if err != nil {
				return outputError(err)
			}
			if ver == nil {
				return outputError(errors.NewVersionNotFound(args[0], args[1]))
			}
			return outputJSON(ver)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete one version of a view",
		ArgsUsage: "<name> <version-id>",
		Action: func(c *cli.Context) error {
			args, err := requireArgs(c, 2)
			if err != nil {
				return outputError(err)
			}
			env, err := s.open(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.DeleteVersion(c.Context, env, ops.DeleteVersionInput{Name: args[0], VersionID: args[1]})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// dropCmd creates the drop command.
func dropCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "drop",
		Usage:     "Delete a view and all of its versions",
		ArgsUsage: "<name>",
		Action: func(c *cli.Context) error {
			args, err := requireArgs(c, 1)
			if err != nil {
				return outputError(err)
			}
			env, err := s.open(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.DeleteView(c.Context, env, ops.DeleteViewInput{Name: args[0]})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// resolveCmd creates the resolve command.
func resolveCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve the document to render: pin, override, active, then fallback",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "pin", Usage: "Session-pinned version id"},
			&cli.StringFlag{Name: "override-file", Usage: "Document file that bypasses the store"},
			&cli.StringFlag{Name: "fallback-file", Usage: "Document file used when nothing is stored"},
		},
		Action: func(c *cli.Context) error {
			args, err := requireArgs(c, 1)
			if err != nil {
				return outputError(err)
			}
			input := ops.ResolveInput{Name: args[0], PinnedVersion: c.String("pin")}
			if input.Override, err = readDocumentFile(c.String("override-file")); err != nil {
				return outputError(err)
			}
			if input.Fallback, err = readDocumentFile(c.String("fallback-file")); err != nil {
				return outputError(err)
			}

			env, err := s.open(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.ResolveTree(c.Context, env, input)
			if err != nil {
				return outputError(err)
			}
			if output == nil {
				return outputError(errors.NewViewNotFound(args[0]))
			}
			return outputJSON(output)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List journal entries, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "view", Usage: "Filter by view name"},
			&cli.StringFlag{Name: "action", Usage: "Filter by action: save|activate|delete_version|delete_view|import"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultHistoryLimit, Usage: "Max items"},
			&cli.IntFlag{Name: "offset", Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			env, err := s.open(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.History(c.Context, env, ops.HistoryInput{
				View:   c.String("view"),
				Action: c.String("action"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export views to JSONL",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Usage: "Output file path (default: exports dir)"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Export only this view"},
		},
		Action: func(c *cli.Context) error {
			env, err := s.open(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Export(c.Context, env, ops.ExportInput{
				Path: c.String("path"),
				Name: c.String("name"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import versions from JSONL",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|skip|replace"},
		},
		Action: func(c *cli.Context) error {
			args, err := requireArgs(c, 1)
			if err != nil {
				return outputError(err)
			}
			env, err := s.open(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Import(c.Context, env, ops.ImportInput{
				Path: args[0],
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the web UI and JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Bind address (default from config, 127.0.0.1)"},
			&cli.IntFlag{Name: "port", Usage: "Port (default from config, 8787)"},
		},
		Action: func(c *cli.Context) error {
			env, err := s.open(c)
			if err != nil {
				return outputError(err)
			}
			bind, port := env.Config.HTTPBind, env.Config.HTTPPort
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			if c.IsSet("port") {
				port = c.Int("port")
			}
			if port < 1 || port > 65535 {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("invalid port %d", port)))
			}

			srv, err := web.NewServer(env, Version, bind, port)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(srv, env.Logger)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if vErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", vErr.Code, vErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// requireArgs returns exactly n positional arguments.
func requireArgs(c *cli.Context, n int) ([]string, error) {
	if c.NArg() != n {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("usage: vellum %s %s", c.Command.Name, c.Command.ArgsUsage))
	}
	return c.Args().Slice(), nil
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// stdinLimit leaves headroom over the document limit for indentation; the
// exact check happens on the encoded form.
func stdinLimit(cfg *config.Config) int64 {
	limit := int64(config.DefaultMaxDocumentBytes)
	if cfg != nil && cfg.MaxDocumentBytes > 0 {
		limit = int64(cfg.MaxDocumentBytes)
	}
	return 4 * limit
}

// readStdin reads up to maxBytes from stdin.
func readStdin(maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("stdin exceeds %d bytes", maxBytes)
	}
	return data, nil
}

// readDocumentFile parses a document file; an empty path yields nil.
func readDocumentFile(path string) (view.Document, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, errors.NewInternal(err)
	}
	return view.ParseDocument(data)
}
