package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"exdform/internal/domain"
)

const recordTable = "data"

// RecordStore implements domain.RecordStore on a SQL table of
// (id, form_data) rows where form_data is the JSON-encoded record.
type RecordStore struct {
	db *DB
	sb sq.StatementBuilderType
}

// NewRecordStore creates a RecordStore over db.
func NewRecordStore(db *DB) *RecordStore {
	return &RecordStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(db.dialect.placeholder),
	}
}

var _ domain.RecordStore = (*RecordStore)(nil)

// ── Queries ────────────────────────────────────────────────

func (s *RecordStore) insertQuery(formData string) (string, []any, error) {
	q := s.sb.Insert(recordTable).Columns("form_data").Values(formData)
	if s.db.dialect.returning {
		q = q.Suffix("RETURNING id")
	}
	return q.ToSql()
}

func (s *RecordStore) selectQuery() (string, []any, error) {
	return s.sb.Select("id", "form_data").From(recordTable).OrderBy("id ASC").ToSql()
}

func (s *RecordStore) deleteQuery() (string, []any, error) {
	return s.sb.Delete(recordTable).ToSql()
}

// ── Record operations ──────────────────────────────────────

func (s *RecordStore) Append(ctx context.Context, r domain.Record) (int64, error) {
	data, err := domain.MarshalRecord(r)
	if err != nil {
		return 0, fmt.Errorf("encode record: %w", err)
	}
	query, args, err := s.insertQuery(string(data))
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	if s.db.dialect.returning {
		var id int64
		if err := s.db.conn.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("insert record: %w", err)
		}
		return id, nil
	}

	res, err := s.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read record id: %w", err)
	}
	return id, nil
}

func (s *RecordStore) ReadAll(ctx context.Context) ([]domain.StoredRecord, error) {
	query, args, err := s.selectQuery()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredRecord
	for rows.Next() {
		var (
			id   int64
			blob sql.NullString
		)
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec := domain.Record{}
		if blob.Valid && blob.String != "" {
			rec, err = domain.UnmarshalRecord([]byte(blob.String))
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", id, err)
			}
		}
		out = append(out, domain.StoredRecord{ID: id, Data: rec})
	}
	return out, rows.Err()
}

func (s *RecordStore) Clear(ctx context.Context) error {
	query, args, err := s.deleteQuery()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := s.db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	return nil
}

func (s *RecordStore) Close() error {
	return s.db.Close()
}

// Source returns where the records live.
func (s *RecordStore) Source() string {
	return s.db.Source()
}
