package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"exdform/internal/config"
	"exdform/internal/export"
	"exdform/internal/form"
	"exdform/internal/logger"
	"exdform/internal/schema"
	"exdform/internal/service"
	"exdform/internal/tui"
)

// schemaCacheSize bounds the parsed schema files kept by the loader.
const schemaCacheSize = 32

// Env is what a command needs from the process.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	// Getenv resolves configuration; nil loads .env and uses os.Getenv.
	Getenv func(string) string
	// Driver prompts the user; nil uses the terminal.
	Driver tui.PromptDriver
	// Logger overrides the configured logger.
	Logger *logger.Logger
}

func (e Env) withDefaults() Env {
	if e.Stdout == nil {
		e.Stdout = os.Stdout
	}
	if e.Stderr == nil {
		e.Stderr = os.Stderr
	}
	return e
}

// App holds the wired components shared by every command.
type App struct {
	cfg    *config.Config
	log    *logger.Logger
	env    Env
	loader *schema.Loader
	form   *service.FormService
	ui     *tui.Renderer
}

// newApp builds the components for cfg without touching the store.
func newApp(cfg *config.Config, env Env) (*App, error) {
	log := env.Logger
	if log == nil {
		l, err := logger.New(cfg.Log)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
		log = l
	}

	loader, err := schema.NewLoader(schemaCacheSize, log)
	if err != nil {
		return nil, err
	}

	opts := []service.FormOption{
		service.WithServiceLogger(log),
		service.WithEmitter(statusEmitter(env.Stderr, log)),
	}
	if cfg.Publish.Enabled() {
		pub, err := export.NewPublisher(cfg.Publish)
		if err != nil {
			return nil, fmt.Errorf("init publisher: %w", err)
		}
		opts = append(opts, service.WithPublisher(pub))
	}

	session := form.NewSession(form.WithLogger(log))
	return &App{
		cfg:    cfg,
		log:    log,
		env:    env,
		loader: loader,
		form:   service.NewFormService(session, loader, opts...),
		ui:     tui.New(tui.WithPromptDriver(env.Driver)),
	}, nil
}

// Startup opens the record store and, when configured, loads the schema.
func (a *App) Startup(ctx context.Context, needSchema bool) error {
	if err := a.form.OpenStore(ctx, a.cfg.Connection()); err != nil {
		return err
	}
	if a.cfg.SchemaPath == "" {
		if needSchema {
			return fmt.Errorf("no schema file given (use -schema or EXDFORM_SCHEMA)")
		}
		return nil
	}
	_, err := a.form.LoadSchemaFile(ctx, a.cfg.SchemaPath)
	return err
}

// Shutdown releases the record store.
func (a *App) Shutdown() {
	if err := a.form.Close(); err != nil {
		a.log.Warnw("close store", "error", err)
	}
	_ = a.log.Sync()
}

// statusEmitter prints status messages for the user and logs every event.
func statusEmitter(w io.Writer, log *logger.Logger) service.EventEmitter {
	logEvents := service.LogEmitter{Log: log}
	return service.EmitterFunc(func(ctx context.Context, event string, data any) {
		if event == service.EventStatus {
			fmt.Fprintln(w, data)
		}
		logEvents.Emit(ctx, event, data)
	})
}
