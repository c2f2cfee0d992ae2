package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"exdform/internal/analysis"
	"exdform/internal/apperror"
	"exdform/internal/domain"
	"exdform/internal/export"
	"exdform/internal/form"
	"exdform/internal/logger"
	"exdform/internal/schema"
	"exdform/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Form Service: the use cases behind the CLI and MCP surfaces
// ─────────────────────────────────────────────────────────────

// Events emitted by FormService.
const (
	EventStatus       = "status"
	EventSchemaLoaded = "schema:loaded"
	EventStoreOpened  = "store:opened"
	EventRecordSaved  = "record:saved"
	EventStoreReset   = "store:reset"
	EventExported     = "export:written"
)

// closeWait bounds how long Close waits for running exports.
const closeWait = 5 * time.Second

// StoreOpener opens the record store described by a connection.
type StoreOpener func(ctx context.Context, conn domain.DatabaseConnection) (domain.RecordStore, error)

// TablePublisher copies an exported table to remote storage.
type TablePublisher interface {
	Publish(ctx context.Context, t *export.Table) (string, error)
}

// SchemaStatus summarises a schema load.
type SchemaStatus struct {
	Source     string           `json:"source"`
	Variables  int              `json:"variables"`
	Skipped    []schema.Skipped `json:"skipped,omitempty"`
	Collisions []form.Collision `json:"collisions,omitempty"`
}

// ExportResult describes a written export.
type ExportResult struct {
	Path      string   `json:"path,omitempty"`
	Columns   []string `json:"columns"`
	Rows      int      `json:"rows"`
	ObjectKey string   `json:"objectKey,omitempty"`
}

// FormService drives one form session against one record store.
type FormService struct {
	id        string
	session   *form.Session
	loader    *schema.Loader
	open      StoreOpener
	publisher TablePublisher
	emitter   EventEmitter
	log       *logger.Logger
	exports   exportGuard
}

// FormOption configures a FormService.
type FormOption func(*FormService)

// WithStoreOpener replaces storage.Open.
func WithStoreOpener(open StoreOpener) FormOption {
	return func(s *FormService) { s.open = open }
}

// WithPublisher enables copying exports to object storage.
func WithPublisher(p TablePublisher) FormOption {
	return func(s *FormService) { s.publisher = p }
}

// WithEmitter sets the event sink.
func WithEmitter(e EventEmitter) FormOption {
	return func(s *FormService) { s.emitter = e }
}

// WithServiceLogger sets the logger.
func WithServiceLogger(l *logger.Logger) FormOption {
	return func(s *FormService) { s.log = l }
}

// NewFormService creates a FormService around session.
func NewFormService(session *form.Session, loader *schema.Loader, opts ...FormOption) *FormService {
	s := &FormService{
		id:      uuid.New().String(),
		session: session,
		loader:  loader,
		open:    storage.Open,
		emitter: noopEmitter{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.OrNop(s.log).WithComponent("form-service").With("session", s.id)
	return s
}

// ID identifies this service instance in logs and events.
func (s *FormService) ID() string { return s.id }

// Session returns the underlying form session.
func (s *FormService) Session() *form.Session { return s.session }

func (s *FormService) status(ctx context.Context, format string, args ...any) {
	s.emitter.Emit(ctx, EventStatus, fmt.Sprintf(format, args...))
}

// ── Schema ─────────────────────────────────────────────────

// LoadSchemaFile reads, imports and applies the schema file at path.
func (s *FormService) LoadSchemaFile(ctx context.Context, path string) (*SchemaStatus, error) {
	res, err := s.loader.Load(path)
	if err != nil {
		return nil, apperror.NewSchema("could not read schema file").WithCause(err).WithDetail("path", path)
	}
	return s.apply(ctx, path, res)
}

// LoadSchemaRows imports and applies rows given inline.
func (s *FormService) LoadSchemaRows(ctx context.Context, rows []schema.Row) (*SchemaStatus, error) {
	return s.apply(ctx, "inline", schema.Import(rows))
}

func (s *FormService) apply(ctx context.Context, source string, res schema.ImportResult) (*SchemaStatus, error) {
	if err := s.session.LoadSchema(res.Variables); err != nil {
		return nil, apperror.NewSchema("schema rejected").WithCause(err).WithDetail("source", source)
	}
	st := &SchemaStatus{
		Source:     source,
		Variables:  len(res.Variables),
		Skipped:    res.Skipped,
		Collisions: s.session.Collisions(),
	}
	s.log.Infow("schema applied", "source", source, "variables", st.Variables, "skipped", len(st.Skipped))
	s.emitter.Emit(ctx, EventSchemaLoaded, st)
	s.status(ctx, "Loaded %d variables from %s", st.Variables, source)
	return st, nil
}

// ── Store ──────────────────────────────────────────────────

// OpenStore opens conn and makes it the commit target.
func (s *FormService) OpenStore(ctx context.Context, conn domain.DatabaseConnection) error {
	if (conn.Driver == domain.DatabaseDriverSQLite || conn.Driver == "") && conn.Host != "" {
		conn.Host = storage.NormalizePath(conn.Host)
	}
	store, err := s.open(ctx, conn)
	if err != nil {
		return apperror.NewStore("open", err)
	}
	if err := s.session.AttachStore(store); err != nil {
		s.log.Warnw("previous store did not close cleanly", "error", err)
	}
	s.log.Infow("record store opened", "driver", string(conn.Driver))
	s.emitter.Emit(ctx, EventStoreOpened, map[string]any{"driver": conn.Driver})
	s.status(ctx, "Record store opened")
	return nil
}

func (s *FormService) store() (domain.RecordStore, error) {
	st := s.session.Store()
	if st == nil {
		return nil, apperror.NewPrecondition("no record store open").WithCause(form.ErrNoStore)
	}
	return st, nil
}

// ── Entry ──────────────────────────────────────────────────

// Commit validates the current form and saves it.
func (s *FormService) Commit(ctx context.Context) (int64, error) {
	id, err := s.session.Commit(ctx)
	if err != nil {
		return 0, s.commitError(ctx, err)
	}
	s.emitter.Emit(ctx, EventRecordSaved, map[string]any{"id": id})
	s.status(ctx, "Record saved with ID %d", id)
	return id, nil
}

// CommitValues fills the form from values keyed by variable name and saves
// it. Rejected input fails the commit.
func (s *FormService) CommitValues(ctx context.Context, values map[string]string) (int64, error) {
	if err := s.session.Fill(values); err != nil {
		if errors.Is(err, form.ErrNoSchema) {
			return 0, apperror.NewPrecondition("no schema loaded").WithCause(err)
		}
		s.session.Reset()
		return 0, apperror.NewValidation("input rejected").WithCause(err)
	}
	return s.Commit(ctx)
}

func (s *FormService) commitError(ctx context.Context, err error) error {
	var verr *form.ValidationError
	switch {
	case errors.Is(err, form.ErrNoStore):
		return apperror.NewPrecondition("no record store open").WithCause(err)
	case errors.Is(err, form.ErrNoSchema):
		return apperror.NewPrecondition("no schema loaded").WithCause(err)
	case errors.As(err, &verr):
		issues := make(map[string]string, len(verr.Issues))
		for _, is := range verr.Issues {
			issues[is.Field] = is.Reason()
		}
		s.status(ctx, "Please correct the highlighted fields")
		return apperror.NewValidation("invalid input").WithCause(err).WithDetail("issues", issues)
	default:
		s.log.Errorw("commit failed", "error", err)
		return apperror.NewStore("append", err)
	}
}

// Records returns every stored record in insertion order.
func (s *FormService) Records(ctx context.Context) ([]domain.StoredRecord, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	recs, err := st.ReadAll(ctx)
	if err != nil {
		return nil, apperror.NewStore("read", err)
	}
	return recs, nil
}

// Reset deletes every stored record.
func (s *FormService) Reset(ctx context.Context) error {
	st, err := s.store()
	if err != nil {
		return err
	}
	if err := st.Clear(ctx); err != nil {
		return apperror.NewStore("clear", err)
	}
	s.log.Infow("record store cleared")
	s.emitter.Emit(ctx, EventStoreReset, nil)
	s.status(ctx, "Database has been reset")
	return nil
}

// ── Export & analysis ──────────────────────────────────────

// Export writes the records as CSV to path, or only builds the table when
// path is empty, and publishes it when a publisher is configured.
func (s *FormService) Export(ctx context.Context, path string) (*ExportResult, error) {
	if !s.exports.Acquire(path) {
		return nil, apperror.NewPrecondition("an export to this destination is already running").WithDetail("path", path)
	}
	defer s.exports.Release(path)

	recs, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	table, err := export.Build(s.session.Schema(), recs)
	if err != nil {
		return nil, apperror.NewPrecondition("no records to export").WithCause(err)
	}

	res := &ExportResult{Path: path, Columns: table.Columns, Rows: len(table.Rows)}
	if path != "" {
		if err := export.WriteFile(path, table); err != nil {
			return nil, apperror.NewInternal(err).WithDetail("path", path)
		}
	}
	if s.publisher != nil {
		key, err := s.publisher.Publish(ctx, table)
		if err != nil {
			s.log.Errorw("publish export failed", "error", err)
			return res, apperror.NewStore("publish", err)
		}
		res.ObjectKey = key
	}
	s.log.Infow("records exported", "path", path, "rows", res.Rows, "object", res.ObjectKey)
	s.emitter.Emit(ctx, EventExported, res)
	s.status(ctx, "Data exported: %d records", res.Rows)
	return res, nil
}

// ExportTable builds the CSV table without writing it.
func (s *FormService) ExportTable(ctx context.Context) (*export.Table, error) {
	recs, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	table, err := export.Build(s.session.Schema(), recs)
	if err != nil {
		return nil, apperror.NewPrecondition("no records to export").WithCause(err)
	}
	return table, nil
}

// ScheduledExport writes a timestamped export into dir; it is the job run
// by export schedules.
func (s *FormService) ScheduledExport(dir string) func(context.Context, time.Time) error {
	return func(ctx context.Context, at time.Time) error {
		_, err := s.Export(ctx, export.TimestampedPath(dir, "records", at))
		return err
	}
}

// Report builds the analysis of the stored records.
func (s *FormService) Report(ctx context.Context) (*analysis.Report, error) {
	recs, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	r, err := analysis.Build(s.session.Schema(), recs)
	if err != nil {
		return nil, apperror.NewPrecondition("no data available for analysis").WithCause(err)
	}
	return r, nil
}

// Close waits briefly for running exports, then releases the record store.
func (s *FormService) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeWait)
	defer cancel()
	if err := s.exports.Wait(ctx); err != nil {
		s.log.Warnw("closing with exports still running", "error", err)
	}
	return s.session.Close()
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, string, any) {}
