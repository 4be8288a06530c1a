package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// MemorySQLiteDSN returns a DSN for a private in-memory SQLite database.
// Every call yields a distinct database; Open turns on foreign keys.
func MemorySQLiteDSN() string {
	return fmt.Sprintf("file:ledger_%s?mode=memory&cache=shared", uuid.NewString())
}

// OpenMemorySQLite opens a fresh in-memory SQLite database with the schema applied.
func OpenMemorySQLite(ctx context.Context) (*sql.DB, error) {
	sqlDB, err := Open(ctx, Config{Driver: DriverSQLite, DSN: MemorySQLiteDSN(), Pool: DefaultConnectionConfig()})
	if err != nil {
		return nil, err
	}
	if err := MigrateUp(ctx, sqlDB, DriverSQLite); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return sqlDB, nil
}
