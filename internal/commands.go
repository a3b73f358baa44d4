package internal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/winds-ai/iatf/internal/apperr"
	"github.com/winds-ai/iatf/internal/document"
	"github.com/winds-ai/iatf/internal/mcpserver"
	"github.com/winds-ai/iatf/internal/registry"
	"github.com/winds-ai/iatf/internal/storage"
	"github.com/winds-ai/iatf/internal/validate"
	"github.com/winds-ai/iatf/internal/watch"
)

// App executes the CLI commands. Every command re-reads its document from
// disk, so no state is carried between invocations beyond the registry.
type App struct {
	config      *Config
	logger      *slog.Logger
	store       registry.Store
	stdout      io.Writer
	stderr      io.Writer
	stdin       io.Reader
	interactive func() bool
}

// NewApp builds an App from options, filling in production defaults.
func NewApp(opts ...Option) (*App, error) {
	a := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
		stdin:  os.Stdin,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.config == nil {
		a.config = NewDefaultConfig()
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: a.config.App.LogLevel,
		}))
	}
	if a.store == nil {
		path := a.config.Registry.Path
		if path == "" {
			var err error
			path, err = registry.DefaultPath()
			if err != nil {
				return nil, err
			}
		}
		a.store = registry.NewFileStore(path)
	}
	if a.interactive == nil {
		a.interactive = stdinIsTerminal
	}
	return a, nil
}

// Rebuild regenerates the INDEX of one document, consulting the watch
// registry first: a live watcher on the same path would rebuild the file a
// second time, so the user is asked to confirm (declined by default, and
// automatically when no terminal is attached).
func (a *App) Rebuild(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file %w: %s", apperr.ErrNotFound, path)
	}

	if !a.confirmAgainstWatcher(path) {
		fmt.Fprintln(a.stdout, "Rebuild cancelled, no changes made.")
		return fmt.Errorf("rebuild cancelled")
	}

	fmt.Fprintf(a.stdout, "Rebuilding index: %s\n", path)
	if err := a.rebuildFile(path); err != nil {
		a.reportStructural(err)
		return fmt.Errorf("failed to rebuild index: %w", err)
	}
	fmt.Fprintln(a.stdout, "[OK] Index rebuilt successfully")
	return nil
}

// RebuildAll regenerates every document under dir.
func (a *App) RebuildAll(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("directory %w: %s", apperr.ErrNotFound, dir)
	}

	ext := a.config.Documents.Extension
	docs, err := storage.FindDocuments(dir, ext)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Fprintf(a.stdout, "No %s files found in %s\n", ext, dir)
		return nil
	}

	fmt.Fprintf(a.stdout, "Found %d %s file(s)\n", len(docs), ext)

	success := 0
	for _, p := range docs {
		fmt.Fprintf(a.stdout, "\nProcessing: %s\n", p)
		if err := a.rebuildFile(p); err != nil {
			a.reportStructural(err)
			fmt.Fprintf(a.stdout, "  [ERROR] Failed: %v\n", err)
			continue
		}
		fmt.Fprintln(a.stdout, "  [OK] Success")
		success++
	}

	fmt.Fprintf(a.stdout, "\nCompleted: %d/%d files rebuilt successfully\n", success, len(docs))
	if success != len(docs) {
		return fmt.Errorf("%d file(s) failed", len(docs)-success)
	}
	return nil
}

// Validate runs the read-only check battery and reports every error and
// warning. Warnings alone leave the exit status at zero.
func (a *App) Validate(path string) error {
	raw, err := storage.ReadDocument(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Validating: %s\n\n", path)

	r := validate.Check(document.Parse(raw))
	for _, line := range r.Passed {
		fmt.Fprintf(a.stdout, "[OK] %s\n", line)
	}

	fmt.Fprintln(a.stdout)
	if len(r.Errors) > 0 {
		fmt.Fprintf(a.stdout, "[ERROR] %d error(s) found:\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(a.stdout, "  - %s\n", e)
		}
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(a.stdout, "[WARN] %d warning(s):\n", len(r.Warnings))
		for _, w := range r.Warnings {
			fmt.Fprintf(a.stdout, "  - %s\n", w)
		}
	}

	switch {
	case r.Valid() && len(r.Warnings) == 0:
		fmt.Fprintln(a.stdout, "[OK] File is valid!")
		return nil
	case r.Valid():
		fmt.Fprintln(a.stdout, "\n[WARN] File is valid (with warnings)")
		return nil
	default:
		fmt.Fprintln(a.stdout, "\n[ERROR] File is invalid")
		return fmt.Errorf("file is invalid")
	}
}

// Index prints the INDEX block of a document, markers excluded.
func (a *App) Index(path string) error {
	doc, err := a.loadDocument(path)
	if err != nil {
		return err
	}
	if !doc.HasIndex() || !doc.HasContent() {
		return fmt.Errorf("%w: INDEX not generated", apperr.ErrInvalidFormat)
	}
	if err := doc.ValidateNesting(); err != nil {
		return fmt.Errorf("invalid section nesting: %w", err)
	}

	lines, err := doc.IndexText()
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(a.stdout, line)
	}
	return nil
}

// Read prints the lines the INDEX publishes for the section with the given
// id, delimiters included.
func (a *App) Read(path, id string) error {
	doc, err := a.loadDocument(path)
	if err != nil {
		return err
	}
	if err := doc.ValidateNesting(); err != nil {
		return fmt.Errorf("invalid section nesting: %w", err)
	}

	lines, err := doc.ReadSection(id)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(a.stdout, line)
	}
	return nil
}

// ReadByTitle resolves a human title against the INDEX-declared titles
// (exact match first, then substring, both case-insensitive) and delegates
// to Read.
func (a *App) ReadByTitle(path, title string) error {
	doc, err := a.loadDocument(path)
	if err != nil {
		return err
	}
	id, err := doc.ResolveTitle(title)
	if err != nil {
		return err
	}
	return a.Read(path, id)
}

// Graph prints the reference graph, one line per section in document
// order. With showIncoming the output is the exact transpose of the
// default outgoing form.
func (a *App) Graph(path string, showIncoming bool) error {
	doc, err := a.loadDocument(path)
	if err != nil {
		return err
	}
	if !doc.HasContent() {
		return fmt.Errorf("no %s section found", document.ContentMarker)
	}
	if err := doc.ValidateNesting(); err != nil {
		return fmt.Errorf("invalid section nesting: %w", err)
	}

	sections := doc.ParseSections()
	if len(sections) == 0 {
		return fmt.Errorf("no sections found in CONTENT")
	}

	fmt.Fprintf(a.stdout, "@graph: %s\n\n", filepath.Base(path))
	for _, line := range document.GraphLines(sections, doc.References(), showIncoming) {
		fmt.Fprintln(a.stdout, line)
	}
	return nil
}

// Watch registers path in the shared registry and polls it for changes,
// rebuilding after the configured debounce. Runs until ctx is cancelled or
// the registry entry disappears.
func (a *App) Watch(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("file %w: %s", apperr.ErrNotFound, path)
	}

	fmt.Fprintf(a.stdout, "Watching: %s\n", path)
	fmt.Fprintf(a.stdout, "To stop: iatf unwatch %s\n", path)

	c := watch.NewCoordinator(a.store, a.watchRebuild, a.logger,
		a.config.Watch.PollInterval, a.config.Watch.Debounce)
	return c.Run(ctx, abs)
}

// WatchDir validates every document under dir, then watches the tree and
// rebuilds changed documents until ctx is cancelled.
func (a *App) WatchDir(ctx context.Context, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("directory %w: %s", apperr.ErrNotFound, dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	ext := a.config.Documents.Extension
	docs, err := storage.FindDocuments(abs, ext)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Fprintf(a.stdout, "No %s files found in directory\n", ext)
		return nil
	}

	fmt.Fprintln(a.stdout, "Watching:")
	for _, p := range docs {
		fmt.Fprintf(a.stdout, "  %s\n", p)
	}

	// Initial pass: surface documents that would fail an auto-rebuild.
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range docs {
		g.Go(func() error {
			raw, err := storage.ReadDocument(p)
			if err != nil {
				a.logger.Warn("watch-dir: read failed", slog.String("path", p), slog.String("error", err.Error()))
				return nil
			}
			if r := validate.Check(document.Parse(raw)); !r.Valid() {
				a.logger.Warn("watch-dir: document invalid",
					slog.String("path", p), slog.Int("errors", len(r.Errors)))
			}
			return nil
		})
	}
	_ = g.Wait()

	return watch.WatchDir(ctx, abs, ext, a.config.Watch.Debounce, a.watchRebuild, a.logger)
}

// Unwatch unconditionally removes the path's registry entry; the owning
// watch loop observes the removal on its next poll tick and exits.
func (a *App) Unwatch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	removed, err := a.store.Deregister(abs)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Fprintf(a.stdout, "File is not being watched: %s\n", path)
		return apperr.ErrNotWatched
	}
	fmt.Fprintf(a.stdout, "Stopped watching: %s\n", path)
	return nil
}

// ListWatched prints every registry entry.
func (a *App) ListWatched() error {
	state, err := a.store.List()
	if err != nil {
		return err
	}
	if len(state) == 0 {
		fmt.Fprintln(a.stdout, "No files are being watched")
		return nil
	}

	paths := make([]string, 0, len(state))
	for p := range state {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	fmt.Fprintf(a.stdout, "Watching %d file(s):\n\n", len(state))
	for _, p := range paths {
		fmt.Fprintf(a.stdout, "  %s\n", p)
		fmt.Fprintf(a.stdout, "    Since: %s\n", state[p].Started)
	}
	return nil
}

// MCP serves the read-only document tools over stdio until the client
// disconnects.
func (a *App) MCP() error {
	return mcpserver.New().ServeStdio()
}

// loadDocument reads and parses one document.
func (a *App) loadDocument(path string) (*document.Document, error) {
	raw, err := storage.ReadDocument(path)
	if err != nil {
		return nil, err
	}
	return document.Parse(raw), nil
}

// rebuildFile runs the full rebuild pipeline and writes the result
// atomically. Failure conditions are detected before any write.
func (a *App) rebuildFile(path string) error {
	raw, err := storage.ReadDocument(path)
	if err != nil {
		return err
	}
	out, err := document.Parse(raw).Rebuild(time.Now())
	if err != nil {
		return err
	}
	return storage.WriteDocument(path, out)
}

// watchRebuild is the RebuildFunc the watch loops run: validate first,
// skip invalid documents rather than failing mid-edit saves loudly.
func (a *App) watchRebuild(path string) error {
	raw, err := storage.ReadDocument(path)
	if err != nil {
		return err
	}
	doc := document.Parse(raw)
	if r := validate.Check(doc); !r.Valid() {
		return fmt.Errorf("validation failed: %d error(s), first: %s", len(r.Errors), r.Errors[0])
	}
	out, err := doc.Rebuild(time.Now())
	if err != nil {
		return err
	}
	return storage.WriteDocument(path, out)
}

// reportStructural itemizes the problems of a StructuralError to stderr.
func (a *App) reportStructural(err error) {
	var se *document.StructuralError
	if errors.As(err, &se) {
		for _, p := range se.Problems {
			fmt.Fprintf(a.stderr, "  - %s\n", p)
		}
	}
}

// confirmAgainstWatcher returns false when the user declines to rebuild a
// path that a live process is watching.
func (a *App) confirmAgainstWatcher(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return true
	}
	entry, ok, err := a.store.Get(abs)
	if err != nil || !ok {
		return true
	}
	if entry.PID == 0 || !registry.Alive(entry.PID) {
		return true
	}

	fmt.Fprintf(a.stdout, "\nWarning: This file is being watched by another process (PID %d)\n", entry.PID)
	fmt.Fprintln(a.stdout, "A manual rebuild will trigger an automatic rebuild from the watch process.")
	fmt.Fprintln(a.stdout, "This will cause the file to be rebuilt twice.")
	fmt.Fprintln(a.stdout)
	fmt.Fprintf(a.stdout, "Run 'iatf unwatch %s' to stop watching first.\n", path)
	fmt.Fprintln(a.stdout)

	return a.promptConfirm("Continue with manual rebuild", false)
}

// promptConfirm asks a yes/no question. Without an interactive terminal
// the default answer is taken, so scripts and CI never hang.
func (a *App) promptConfirm(message string, def bool) bool {
	suffix := "[y/N]"
	if def {
		suffix = "[Y/n]"
	}
	if !a.interactive() {
		return def
	}

	fmt.Fprintf(a.stdout, "%s %s: ", message, suffix)
	resp, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil {
		fmt.Fprintln(a.stdout)
		return false
	}
	resp = strings.ToLower(strings.TrimSpace(resp))
	if resp == "" {
		return def
	}
	return resp == "y" || resp == "yes"
}

func stdinIsTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice != 0
}
