package postgres

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/attendkeeper/internal/logging"
	"github.com/dmitrijs2005/attendkeeper/internal/remote"
)

const path = "schools/Lincoln/attendance"

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewStore(db, logging.NewDiscard())
	s.newID = func() string { return "00000000-0000-0000-0000-000000000001" }
	return s, mock
}

func TestProbe(t *testing.T) {
	q := regexp.QuoteMeta(`SELECT 1 FROM attendance_documents LIMIT 1`)

	t.Run("empty table is fine", func(t *testing.T) {
		s, mock := newStoreWithMock(t)
		mock.ExpectQuery(q).WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

		require.NoError(t, s.Probe(context.Background()))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient privilege", func(t *testing.T) {
		s, mock := newStoreWithMock(t)
		mock.ExpectQuery(q).WillReturnError(&pgconn.PgError{Code: "42501", Message: "permission denied for table"})

		err := s.Probe(context.Background())
		require.ErrorIs(t, err, remote.ErrPermissionDenied)
	})
}

func TestCreate(t *testing.T) {
	s, mock := newStoreWithMock(t)

	doc := remote.Document{
		StudentID: "S1", StudentName: "Ada", Timestamp: "2025-09-01T08:30:00.000Z",
		Date: "2025-09-01", Time: "8:30:00 AM", DeviceID: "device_1",
		TeacherName: "Ms. Park", ClassSubject: "Math", SchoolName: "Lincoln",
	}

	mock.ExpectExec(`INSERT INTO attendance_documents .* ON CONFLICT .* DO NOTHING`).
		WithArgs("00000000-0000-0000-0000-000000000001", path, "S1", "Ada", "2025-09-01T08:30:00.000Z",
			"2025-09-01", "8:30:00 AM", "device_1", "Ms. Park", "Math", "Lincoln").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Create(context.Background(), path, doc))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_ConnectionLost(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectExec(`INSERT INTO attendance_documents`).WillReturnError(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")})

	err := s.Create(context.Background(), path, remote.Document{StudentID: "S1"})
	require.ErrorIs(t, err, remote.ErrUnavailable)
}

func TestQuery(t *testing.T) {
	s, mock := newStoreWithMock(t)
	synced := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)

	cols := []string{"student_id", "student_name", "scanned_at", "scan_date", "scan_time",
		"device_id", "teacher_name", "class_subject", "school_name", "synced_at"}
	rows := sqlmock.NewRows(cols).
		AddRow("S2", "Bo", "2025-09-01T09:00:00.000Z", "2025-09-01", "9:00:00 AM", "d", "Ms. Park", "Math", "Lincoln", synced).
		AddRow("S1", "Ada", "2025-09-01T08:30:00.000Z", "2025-09-01", "8:30:00 AM", "d", "Ms. Park", "Math", "Lincoln", synced)

	mock.ExpectQuery(`SELECT .* FROM attendance_documents\s+WHERE collection_path = \$1 AND teacher_name = \$2\s+ORDER BY scanned_at DESC\s+LIMIT \$3`).
		WithArgs(path, "Ms. Park", remote.DefaultQueryLimit).
		WillReturnRows(rows)

	docs, err := s.Query(context.Background(), path, "Ms. Park", remote.DefaultQueryLimit)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "S2", docs[0].StudentID)
	assert.Equal(t, synced, docs[1].SyncedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_Error(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectQuery(`SELECT .* FROM attendance_documents`).
		WillReturnError(&pgconn.PgError{Code: "28P01", Message: "password authentication failed"})

	_, err := s.Query(context.Background(), path, "Ms. Park", 10)
	require.ErrorIs(t, err, remote.ErrUnauthenticated)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, remote.ErrUnavailable},
		{"connection failure", &pgconn.PgError{Code: "08006"}, remote.ErrUnavailable},
		{"invalid authorization", &pgconn.PgError{Code: "28000"}, remote.ErrUnauthenticated},
		{"deadline", context.DeadlineExceeded, remote.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.in), tt.want)
		})
	}

	other := mapError(&pgconn.PgError{Code: "23505"})
	assert.NotErrorIs(t, other, remote.ErrUnavailable)
	assert.NotErrorIs(t, other, remote.ErrPermissionDenied)

	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(sql.ErrConnDone), sql.ErrConnDone)
	assert.Error(t, mapError(errors.New("x")))
}
