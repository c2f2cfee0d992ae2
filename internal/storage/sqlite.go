package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

// dialect captures what differs between the SQL engines a record store can
// live in.
type dialect struct {
	name        string // database/sql driver name
	placeholder sq.PlaceholderFormat
	createTable string
	returning   bool // INSERT ... RETURNING id instead of LastInsertId
}

var (
	sqliteDialect = dialect{
		name:        "sqlite",
		placeholder: sq.Question,
		createTable: `CREATE TABLE IF NOT EXISTS data (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			form_data TEXT
		)`,
	}
	postgresDialect = dialect{
		name:        "postgres",
		placeholder: sq.Dollar,
		createTable: `CREATE TABLE IF NOT EXISTS data (
			id BIGSERIAL PRIMARY KEY,
			form_data TEXT
		)`,
		returning: true,
	}
	mysqlDialect = dialect{
		name:        "mysql",
		placeholder: sq.Question,
		createTable: `CREATE TABLE IF NOT EXISTS data (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			form_data LONGTEXT
		) DEFAULT CHARSET=utf8mb4`,
	}
)

// DB wraps a SQL connection holding the record table.
type DB struct {
	conn    *sql.DB
	dialect dialect
	source  string // file path for sqlite, driver name otherwise
}

// New opens (or creates) the SQLite record file at dbPath.
func New(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, dialect: sqliteDialect, source: dbPath}
	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// openSQL connects to a networked SQL server and ensures the record table.
func openSQL(ctx context.Context, d dialect, dsn string) (*DB, error) {
	conn, err := sql.Open(d.name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", d.name, err)
	}

	db := &DB{conn: conn, dialect: d, source: d.name}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Source returns the file path (sqlite) or driver name the DB was opened from.
func (db *DB) Source() string {
	return db.source
}

func (db *DB) migrate(ctx context.Context) error {
	migrations := []string{
		db.dialect.createTable,
	}
	for _, m := range migrations {
		if _, err := db.conn.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %s: %w", strings.Join(strings.Fields(m)[:6], " "), err)
		}
	}
	return nil
}

// NormalizePath appends ".db" to paths that carry neither a .db nor a
// .sqlite extension.
func NormalizePath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".db" || ext == ".sqlite" {
		return path
	}
	return path + ".db"
}
