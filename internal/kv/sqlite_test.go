package kv

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "attend.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	s := NewSQLiteStore(openTestDB(t))

	v, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSQLiteStore_SetThenOverwrite(t *testing.T) {
	ctx := context.Background()
	s := NewSQLiteStore(openTestDB(t))

	require.NoError(t, s.Set(ctx, KeySettings, []byte(`{"teacherName":"A"}`)))
	require.NoError(t, s.Set(ctx, KeySettings, []byte(`{"teacherName":"B"}`)))

	v, err := s.Get(ctx, KeySettings)
	require.NoError(t, err)
	assert.JSONEq(t, `{"teacherName":"B"}`, string(v))

	require.NoError(t, s.Set(ctx, KeyDeviceID, []byte(`"device_1"`)))
	v, err = s.Get(ctx, KeySettings)
	require.NoError(t, err)
	assert.JSONEq(t, `{"teacherName":"B"}`, string(v))
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, RunMigrations(context.Background(), db))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='kv'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_ClosedDB(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteStore(db)
	require.NoError(t, db.Close())

	_, err := s.Get(context.Background(), KeyAttendance)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get kv[attendanceData]")

	err = s.Set(context.Background(), KeyAttendance, []byte(`[]`))
	require.Error(t, err)
}
