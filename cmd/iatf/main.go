package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/winds-ai/iatf/internal"
	pkgconfig "github.com/winds-ai/iatf/pkg/config"
)

func newApp(cmd *cli.Command) (*internal.App, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return internal.NewApp(internal.WithConfig(cfg))
}

func fileArg(cmd *cli.Command) (string, error) {
	path := cmd.Args().Get(0)
	if path == "" {
		return "", fmt.Errorf("missing required argument: FILE")
	}
	return path, nil
}

// signalContext derives a context cancelled by SIGINT or SIGTERM, for the
// long-running watch commands.
func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func main() {
	cmd := &cli.Command{
		Name:  "iatf",
		Usage: "Maintain the self-describing index of IATF documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: ".iatf.yaml",
				Value:       ".iatf.yaml",
				Sources:     cli.EnvVars("IATF_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "rebuild",
				Usage:     "Regenerate the INDEX of a document",
				ArgsUsage: "FILE",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					app, err := newApp(cmd)
					if err != nil {
						return err
					}
					path, err := fileArg(cmd)
					if err != nil {
						return err
					}
					return app.Rebuild(path)
				},
			},
			{
				Name:      "rebuild-all",
				Usage:     "Regenerate the INDEX of every document under a directory",
				ArgsUsage: "DIR",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					app, err := newApp(cmd)
					if err != nil {
						return err
					}
					dir := cmd.Args().Get(0)
					if dir == "" {
						dir = "."
					}
					return app.RebuildAll(dir)
				},
			},
			{
				Name:      "validate",
				Usage:     "Check a document without modifying it",
				ArgsUsage: "FILE",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					app, err := newApp(cmd)
					if err != nil {
						return err
					}
					path, err := fileArg(cmd)
					if err != nil {
						return err
					}
					return app.Validate(path)
				},
			},
			{
				Name:      "index",
				Usage:     "Print the INDEX block of a document",
				ArgsUsage: "FILE",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					app, err := newApp(cmd)
					if err != nil {
						return err
					}
					path, err := fileArg(cmd)
					if err != nil {
						return err
					}
					return app.Index(path)
				},
			},
			{
				Name:      "read",
				Usage:     "Print one section of a document",
				ArgsUsage: "FILE [SECTION_ID]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "title",
						Aliases: []string{"t"},
						Usage:   "Resolve the section by title instead of id",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					app, err := newApp(cmd)
					if err != nil {
						return err
					}
					path, err := fileArg(cmd)
					if err != nil {
						return err
					}
					if title := cmd.String("title"); title != "" {
						return app.ReadByTitle(path, title)
					}
					id := cmd.Args().Get(1)
					if id == "" {
						return fmt.Errorf("missing required argument: SECTION_ID (or use --title)")
					}
					return app.Read(path, id)
				},
			},
			{
				Name:      "graph",
				Usage:     "Print the section reference graph of a document",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "show-incoming",
						Usage: "Show incoming references instead of outgoing",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					app, err := newApp(cmd)
					if err != nil {
						return err
					}
					path, err := fileArg(cmd)
					if err != nil {
						return err
					}
					return app.Graph(path, cmd.Bool("show-incoming"))
				},
			},
			{
				Name:      "watch",
				Usage:     "Watch a document and rebuild its INDEX on change",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "list",
						Aliases: []string{"l"},
						Usage:   "List all watched files",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					app, err := newApp(cmd)
					if err != nil {
						return err
					}
					if cmd.Bool("list") {
						return app.ListWatched()
					}
					path, err := fileArg(cmd)
					if err != nil {
						return err
					}
					wctx, stop := signalContext(ctx)
					defer stop()
					return app.Watch(wctx, path)
				},
			},
			{
				Name:      "watch-dir",
				Usage:     "Watch a directory tree and rebuild changed documents",
				ArgsUsage: "DIR",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					app, err := newApp(cmd)
					if err != nil {
						return err
					}
					dir := cmd.Args().Get(0)
					if dir == "" {
						dir = "."
					}
					wctx, stop := signalContext(ctx)
					defer stop()
					return app.WatchDir(wctx, dir)
				},
			},
			{
				Name:  "unwatch",
				Usage: "Stop watching a document",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					app, err := newApp(cmd)
					if err != nil {
						return err
					}
					path, err := fileArg(cmd)
					if err != nil {
						return err
					}
					return app.Unwatch(path)
				},
				ArgsUsage: "FILE",
			},
			{
				Name:  "mcp",
				Usage: "Serve the document tools over MCP on stdio",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					app, err := newApp(cmd)
					if err != nil {
						return err
					}
					return app.MCP()
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("iatf error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
