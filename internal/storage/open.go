package storage

import (
	"context"
	"fmt"

	"exdform/internal/domain"
)

// Open returns the record store described by conn. An empty driver means
// sqlite with conn.Host as the file path.
func Open(ctx context.Context, conn domain.DatabaseConnection) (domain.RecordStore, error) {
	switch conn.Driver {
	case domain.DatabaseDriverSQLite, "":
		if conn.Host == "" {
			return nil, fmt.Errorf("sqlite store needs a file path")
		}
		db, err := New(conn.Host)
		if err != nil {
			return nil, err
		}
		return NewRecordStore(db), nil
	case domain.DatabaseDriverPostgres:
		db, err := openSQL(ctx, postgresDialect, buildPostgresDSN(conn))
		if err != nil {
			return nil, err
		}
		return NewRecordStore(db), nil
	case domain.DatabaseDriverMySQL:
		db, err := openSQL(ctx, mysqlDialect, buildMySQLDSN(conn))
		if err != nil {
			return nil, err
		}
		return NewRecordStore(db), nil
	case domain.DatabaseDriverMongoDB:
		uri, dbName := buildMongoURI(conn)
		return NewMongoRecordStore(ctx, uri, dbName)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", conn.Driver)
	}
}
