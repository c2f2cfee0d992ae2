package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"exdform/internal/domain"
	"exdform/internal/logger"
)

// Precondition failures of Commit.
var (
	ErrNoStore  = errors.New("no record store open")
	ErrNoSchema = errors.New("no schema loaded")
)

// ErrInvalidVariable is returned by LoadSchema for unusable variables.
var ErrInvalidVariable = errors.New("invalid variable")

// State is the lifecycle stage of a Session.
type State int

const (
	// StateEmpty has no schema and no fields.
	StateEmpty State = iota
	// StateRendered has live fields ready for input.
	StateRendered
)

func (s State) String() string {
	if s == StateRendered {
		return "rendered"
	}
	return "empty"
}

// Collision is a record key written by more than one variable.
type Collision struct {
	Key       string   `json:"key"`
	Variables []string `json:"variables"`
}

// Session owns the active schema, its live fields and the record store that
// commits go to. It is not safe for concurrent use.
type Session struct {
	schema     []domain.Variable
	fields     []Field
	byName     map[string]Field
	collisions []Collision

	store domain.RecordStore
	clock func() time.Time
	log   *logger.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClock sets the time source used for DATE defaults.
func WithClock(clock func() time.Time) SessionOption {
	return func(s *Session) { s.clock = clock }
}

// WithLogger sets the session logger.
func WithLogger(l *logger.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

// WithStore attaches a record store at construction.
func WithStore(store domain.RecordStore) SessionOption {
	return func(s *Session) { s.store = store }
}

// NewSession creates an empty session.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.OrNop(s.log).WithComponent("form")
	return s
}

// State reports whether a schema is loaded.
func (s *Session) State() State {
	if len(s.fields) == 0 {
		return StateEmpty
	}
	return StateRendered
}

// LoadSchema replaces the schema and rebuilds every field from scratch.
// An empty list returns the session to StateEmpty. On error the previous
// schema stays in place.
func (s *Session) LoadSchema(vars []domain.Variable) error {
	fields := make([]Field, 0, len(vars))
	byName := make(map[string]Field, len(vars))
	for i, v := range vars {
		if v.Name() == "" {
			return fmt.Errorf("variable %d: %w: empty name", i, ErrInvalidVariable)
		}
		f, err := newField(v, s.clock)
		if err != nil {
			return fmt.Errorf("variable %d: %w", i, err)
		}
		fields = append(fields, f)
		if _, dup := byName[v.Name()]; !dup {
			byName[v.Name()] = f
		}
	}

	s.schema = append([]domain.Variable(nil), vars...)
	s.fields = fields
	s.byName = byName
	s.collisions = findCollisions(vars)

	for _, c := range s.collisions {
		s.log.Warnw("record key written by several variables",
			"key", c.Key, "variables", strings.Join(c.Variables, ","))
	}
	s.log.Infow("schema loaded", "variables", len(vars), "collisions", len(s.collisions))
	return nil
}

// findCollisions lists, in schema order, keys that more than one variable
// (or one multiselect twice) would write into a record.
func findCollisions(vars []domain.Variable) []Collision {
	owners := make(map[string][]string)
	var order []string
	for _, v := range vars {
		for _, k := range v.Keys() {
			if _, seen := owners[k]; !seen {
				order = append(order, k)
			}
			owners[k] = append(owners[k], v.Name())
		}
	}
	var out []Collision
	for _, k := range order {
		if len(owners[k]) > 1 {
			out = append(out, Collision{Key: k, Variables: owners[k]})
		}
	}
	return out
}

// Schema returns a copy of the loaded variables.
func (s *Session) Schema() []domain.Variable {
	return append([]domain.Variable(nil), s.schema...)
}

// Fields returns the live fields in schema order.
func (s *Session) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Field returns the field of the named variable.
func (s *Session) Field(name string) (Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Collisions returns the key collisions found by the last LoadSchema.
func (s *Session) Collisions() []Collision {
	return append([]Collision(nil), s.collisions...)
}

// AttachStore makes store the commit target, closing any previous store.
func (s *Session) AttachStore(store domain.RecordStore) error {
	var err error
	if s.store != nil && s.store != store {
		if cerr := s.store.Close(); cerr != nil {
			err = fmt.Errorf("close previous store: %w", cerr)
		}
	}
	s.store = store
	return err
}

// Store returns the attached store, or nil.
func (s *Session) Store() domain.RecordStore { return s.store }

// Close releases the attached store.
func (s *Session) Close() error {
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}

// Record validates every field and builds the record a commit would write.
// Failing fields are marked invalid; all failures are returned together as a
// *ValidationError.
func (s *Session) Record() (domain.Record, error) {
	if s.State() == StateEmpty {
		return nil, ErrNoSchema
	}
	rec := make(domain.Record, len(s.fields))
	var issues []Issue
	for _, f := range s.fields {
		err := f.collect(rec)
		f.setInvalid(err != nil)
		if err != nil {
			v := f.Variable()
			issues = append(issues, Issue{Field: v.Name(), Label: v.Label(), Err: err})
		}
	}
	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	return rec, nil
}

// Commit validates the form and appends the record. On success every field
// is reset for the next record. On any failure the input is kept.
func (s *Session) Commit(ctx context.Context) (int64, error) {
	if s.store == nil {
		return 0, ErrNoStore
	}
	rec, err := s.Record()
	if err != nil {
		return 0, err
	}
	id, err := s.store.Append(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("append record: %w", err)
	}
	s.log.Infow("record committed", "id", id, "keys", len(rec))
	s.Reset()
	return id, nil
}

// Reset restores every field to its empty or default input.
func (s *Session) Reset() {
	for _, f := range s.fields {
		f.Reset()
	}
}
