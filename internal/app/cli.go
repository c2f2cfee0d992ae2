package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"exdform/internal/apperror"
	"exdform/internal/config"
	"exdform/internal/export"
	"exdform/internal/schema"
	"exdform/internal/tui"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

type runFunc func(ctx context.Context, a *App, args []string) error

type command struct {
	name    string
	summary string
	// bind registers the command flags and returns the command body
	bind func(fs *flag.FlagSet, cfg *config.Config) runFunc
	// store and schema requirements, checked at startup
	needStore  bool
	needSchema bool
}

func commands() []command {
	return []command{
		{name: "entry", summary: "enter records interactively", bind: entryCommand, needStore: true, needSchema: true},
		{name: "export", summary: "export records to CSV", bind: exportCommand, needStore: true},
		{name: "report", summary: "print the analysis report", bind: reportCommand, needStore: true},
		{name: "reset", summary: "delete every stored record", bind: resetCommand, needStore: true},
		{name: "lint", summary: "check a schema file", bind: lintCommand},
		{name: "mcp", summary: "serve the form to agents over stdio", bind: mcpCommand, needStore: true},
	}
}

// Run executes the command named by args[0] and returns the process exit code.
func Run(ctx context.Context, args []string, env Env) int {
	env = env.withDefaults()
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(env.Stderr)
		if len(args) == 0 {
			return ExitUsage
		}
		return ExitOK
	}

	var cmd *command
	for _, c := range commands() {
		if c.name == args[0] {
			c := c
			cmd = &c
			break
		}
	}
	if cmd == nil {
		fmt.Fprintf(env.Stderr, "unknown command %q\n\n", args[0])
		usage(env.Stderr)
		return ExitUsage
	}

	var cfg *config.Config
	if env.Getenv != nil {
		cfg = config.FromEnv(env.Getenv)
	} else {
		cfg = config.Load()
	}

	fs := flag.NewFlagSet(cmd.name, flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	cfg.RegisterFlags(fs)
	run := cmd.bind(fs, cfg)
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}

	a, err := newApp(cfg, env)
	if err != nil {
		fmt.Fprintln(env.Stderr, "error:", err)
		return ExitError
	}
	defer a.Shutdown()

	if cmd.needStore {
		if err := a.Startup(ctx, cmd.needSchema); err != nil {
			return a.fail(err)
		}
	}
	if err := run(ctx, a, fs.Args()); err != nil {
		return a.fail(err)
	}
	return ExitOK
}

func (a *App) fail(err error) int {
	if errors.Is(err, tui.ErrAborted) || errors.Is(err, context.Canceled) {
		fmt.Fprintln(a.env.Stderr, "aborted")
		return ExitError
	}
	if appErr, ok := apperror.AsAppError(err); ok {
		fmt.Fprintf(a.env.Stderr, "error: %s\n", appErr.Message)
		if issues, ok := appErr.Details["issues"].(map[string]string); ok {
			for field, reason := range issues {
				fmt.Fprintf(a.env.Stderr, "  %s: %s\n", field, reason)
			}
		}
		if appErr.Err != nil {
			fmt.Fprintf(a.env.Stderr, "  cause: %v\n", appErr.Err)
		}
		return ExitError
	}
	fmt.Fprintln(a.env.Stderr, "error:", err)
	return ExitError
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: exdform <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, c := range commands() {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'exdform <command> -h' for the flags of a command.")
}

// ── entry ──────────────────────────────────────────────────

func entryCommand(_ *flag.FlagSet, _ *config.Config) runFunc { return runEntry }

func runEntry(ctx context.Context, a *App, _ []string) error {
	watcher, err := schema.NewWatcher(a.log)
	if err != nil {
		a.log.Warnw("schema reload disabled", "error", err)
	} else {
		defer watcher.Close()
		if err := watcher.Watch(a.cfg.SchemaPath); err != nil {
			a.log.Warnw("schema reload disabled", "error", err)
		}
	}

	hooks := tui.EntryHooks{
		BeforeRecord: func(ctx context.Context) error {
			if watcher == nil {
				return nil
			}
			for _, path := range watcher.Pending() {
				if _, err := a.form.LoadSchemaFile(ctx, path); err != nil {
					// keep entering with the previous schema
					a.log.Warnw("schema reload failed", "path", path, "error", err)
				}
			}
			return nil
		},
	}
	saved, err := a.ui.RunEntry(ctx, a.form, hooks)
	fmt.Fprintf(a.env.Stdout, "%d record(s) saved\n", saved)
	return err
}

// ── export ─────────────────────────────────────────────────

func exportCommand(fs *flag.FlagSet, cfg *config.Config) runFunc {
	var out, every string
	fs.StringVar(&out, "out", "", "output CSV file (default: timestamped file in the export dir)")
	fs.StringVar(&every, "every", cfg.Export.Schedule, "cron schedule; keep running and export at each tick")
	fs.StringVar(&cfg.Export.Dir, "dir", cfg.Export.Dir, "directory for timestamped exports")
	fs.BoolFunc("no-publish", "do not upload to object storage", func(string) error {
		cfg.Publish = export.PublishConfig{}
		return nil
	})
	return func(ctx context.Context, a *App, _ []string) error {
		return runExport(ctx, a, out, every)
	}
}

func runExport(ctx context.Context, a *App, out, expr string) error {
	if expr == "" {
		path := out
		if path == "" {
			path = export.TimestampedPath(a.cfg.Export.Dir, "records", time.Now())
		}
		res, err := a.form.Export(ctx, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.env.Stdout, "%d record(s) written to %s\n", res.Rows, res.Path)
		if res.ObjectKey != "" {
			fmt.Fprintf(a.env.Stdout, "published as %s\n", res.ObjectKey)
		}
		return nil
	}

	sched, err := export.ParseSchedule(expr)
	if err != nil {
		return apperror.NewValidation("invalid export schedule").WithCause(err)
	}
	fmt.Fprintf(a.env.Stdout, "exporting on schedule %q into %s, next run %s\n",
		sched, a.cfg.Export.Dir, sched.Next(time.Now()).Format(time.RFC3339))
	err = sched.Run(ctx, a.form.ScheduledExport(a.cfg.Export.Dir), func(err error) {
		a.log.Errorw("scheduled export failed", "error", err)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ── report ─────────────────────────────────────────────────

func reportCommand(fs *flag.FlagSet, _ *config.Config) runFunc {
	var asJSON bool
	fs.BoolVar(&asJSON, "json", false, "print the full report as JSON")
	return func(ctx context.Context, a *App, _ []string) error {
		return runReport(ctx, a, asJSON)
	}
}

func runReport(ctx context.Context, a *App, asJSON bool) error {
	r, err := a.form.Report(ctx)
	if err != nil {
		return err
	}
	if !asJSON {
		_, err = io.WriteString(a.env.Stdout, r.Summary)
		return err
	}
	enc := json.NewEncoder(a.env.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ── reset ──────────────────────────────────────────────────

func resetCommand(fs *flag.FlagSet, _ *config.Config) runFunc {
	var yes bool
	fs.BoolVar(&yes, "yes", false, "do not ask for confirmation")
	return func(ctx context.Context, a *App, _ []string) error {
		return runReset(ctx, a, yes)
	}
}

func runReset(ctx context.Context, a *App, yes bool) error {
	if !yes {
		ok, err := a.ui.Driver().Confirm(ctx, tui.ConfirmConfig{
			Message: "Are you sure you want to delete all data? This cannot be undone.",
		})
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(a.env.Stdout, "reset cancelled")
			return nil
		}
	}
	return a.form.Reset(ctx)
}

// ── lint ───────────────────────────────────────────────────

func lintCommand(_ *flag.FlagSet, _ *config.Config) runFunc { return runLint }

func runLint(ctx context.Context, a *App, args []string) error {
	path := a.cfg.SchemaPath
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return apperror.NewValidation("no schema file given")
	}
	st, err := a.form.LoadSchemaFile(ctx, path)
	if err != nil {
		return err
	}

	w := a.env.Stdout
	for _, f := range a.form.Session().Fields() {
		v := f.Variable()
		line := fmt.Sprintf("%-24s %-24s", v.Name(), v.Type())
		if v.MaxLength() > 0 {
			line += fmt.Sprintf(" max=%d", v.MaxLength())
		}
		if mods := v.Modalities(); len(mods) > 0 {
			labels := make([]string, len(mods))
			for i, m := range mods {
				labels[i] = fmt.Sprintf("%d=%s", m.Code, m.Label)
			}
			line += " [" + strings.Join(labels, ", ") + "]"
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	for _, s := range st.Skipped {
		fmt.Fprintf(w, "skipped row %d %q: %s\n", s.Row, s.Name, s.Reason)
	}
	for _, c := range st.Collisions {
		fmt.Fprintf(w, "collision on key %q: %s\n", c.Key, strings.Join(c.Variables, ", "))
	}
	if len(st.Skipped) > 0 || len(st.Collisions) > 0 {
		return apperror.NewSchema(fmt.Sprintf("%d skipped row(s), %d collision(s)", len(st.Skipped), len(st.Collisions)))
	}
	return nil
}

// ── mcp ────────────────────────────────────────────────────

func mcpCommand(_ *flag.FlagSet, _ *config.Config) runFunc { return runMCP }

func runMCP(ctx context.Context, a *App, _ []string) error {
	return ServeMCP(ctx, a)
}
