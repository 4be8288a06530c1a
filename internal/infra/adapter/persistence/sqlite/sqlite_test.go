package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"feed-ledger/internal/infra/db"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

const feedURL = "https://rss-feed.com/feed.xml"

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := db.OpenMemorySQLite(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}
