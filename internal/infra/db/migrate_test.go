package db

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateUp_Postgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	for _, stmt := range postgresSchema {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	err = MigrateUp(context.Background(), db, DriverPostgres)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateUp_StopsAtFirstError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS attempts").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS responses").
		WillReturnError(sql.ErrConnDone)

	err = MigrateUp(context.Background(), db, DriverPostgres)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateUp_UnknownDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	err = MigrateUp(context.Background(), db, Driver("mysql"))
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateDown(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("DROP TABLE IF EXISTS delivery_records").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP TABLE IF EXISTS responses").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP TABLE IF EXISTS attempts").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, MigrateDown(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaReady_Postgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	ready, err := SchemaReady(context.Background(), db, DriverPostgres)
	require.NoError(t, err)
	assert.False(t, ready)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := Open(ctx, Config{Driver: DriverSQLite, DSN: MemorySQLiteDSN()})
	require.NoError(t, err)
	defer func() { _ = sqlDB.Close() }()

	ready, err := SchemaReady(ctx, sqlDB, DriverSQLite)
	require.NoError(t, err)
	assert.False(t, ready)

	require.NoError(t, MigrateUp(ctx, sqlDB, DriverSQLite))
	require.NoError(t, MigrateUp(ctx, sqlDB, DriverSQLite), "migrations must be idempotent")

	ready, err = SchemaReady(ctx, sqlDB, DriverSQLite)
	require.NoError(t, err)
	assert.True(t, ready)

	require.NoError(t, MigrateDown(ctx, sqlDB))
	ready, err = SchemaReady(ctx, sqlDB, DriverSQLite)
	require.NoError(t, err)
	assert.False(t, ready)
}

func TestMigrate_SQLiteEnforcesForeignKeys(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := OpenMemorySQLite(ctx)
	require.NoError(t, err)
	defer func() { _ = sqlDB.Close() }()

	_, err = sqlDB.ExecContext(ctx,
		`INSERT INTO delivery_records (id, feed_id, medium_id, status, parent_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		"child", "feed", "medium", "sent", "missing-parent", 1)
	assert.Error(t, err)
}
