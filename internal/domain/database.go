package domain

import "context"

// DatabaseDriver represents the engine backing a record store.
type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverMySQL    DatabaseDriver = "mysql"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	DatabaseDriverMongoDB  DatabaseDriver = "mongodb"
)

// DatabaseConnection holds what is needed to open a record store.
// For sqlite, Host is the file path.
type DatabaseConnection struct {
	Driver   DatabaseDriver `json:"driver"`
	Host     string         `json:"host"`
	Port     int            `json:"port"`
	Database string         `json:"database"`
	Username string         `json:"username"`
	Password string         `json:"-"`
	SSLMode  string         `json:"sslMode"`
	URI      string         `json:"-"` // full connection string, overrides host fields
}

// RecordStore is append-only persistence for committed records.
type RecordStore interface {
	// Append stores r and returns its auto-assigned id.
	Append(ctx context.Context, r Record) (int64, error)
	// ReadAll returns every record ordered by id ascending.
	ReadAll(ctx context.Context) ([]StoredRecord, error)
	// Clear removes all records. Id numbering is not guaranteed to restart.
	Clear(ctx context.Context) error
	Close() error
}
