// Package postgres stores attendance documents in a self-hosted PostgreSQL
// database, for schools that cannot use Firestore.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/attendkeeper/internal/dbx"
	"github.com/dmitrijs2005/attendkeeper/internal/logging"
	"github.com/dmitrijs2005/attendkeeper/internal/remote"
	"github.com/dmitrijs2005/attendkeeper/internal/remote/postgres/migrations"
)

type Store struct {
	db     dbx.DBTX
	newID  func() string
	logger logging.Logger
}

func NewStore(db dbx.DBTX, logger logging.Logger) *Store {
	return &Store{db: db, newID: uuid.NewString, logger: logger.With("module", "remote_postgres")}
}

// Open connects through pgx and applies pending migrations.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, mapError(err)
	}
	return db, nil
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

func (s *Store) Probe(ctx context.Context) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM attendance_documents LIMIT 1`).Scan(&one)
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return mapError(err)
}

func (s *Store) Create(ctx context.Context, path string, doc remote.Document) error {
	query := `
		INSERT INTO attendance_documents
			(id, collection_path, student_id, student_name, scanned_at, scan_date, scan_time,
			 device_id, teacher_name, class_subject, school_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (collection_path, student_id, scanned_at, device_id) DO NOTHING`

	_, err := s.db.ExecContext(ctx, query,
		s.newID(), path, doc.StudentID, doc.StudentName, doc.Timestamp, doc.Date, doc.Time,
		doc.DeviceID, doc.TeacherName, doc.ClassSubject, doc.SchoolName,
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, path, teacher string, limit int) ([]remote.Document, error) {
	query := `
		SELECT student_id, student_name, scanned_at, scan_date, scan_time,
		       device_id, teacher_name, class_subject, school_name, synced_at
		FROM attendance_documents
		WHERE collection_path = $1 AND teacher_name = $2
		ORDER BY scanned_at DESC
		LIMIT $3`

	rows, err := s.db.QueryContext(ctx, query, path, teacher, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []remote.Document
	for rows.Next() {
		var d remote.Document
		if err := rows.Scan(&d.StudentID, &d.StudentName, &d.Timestamp, &d.Date, &d.Time,
			&d.DeviceID, &d.TeacherName, &d.ClassSubject, &d.SchoolName, &d.SyncedAt); err != nil {
			return nil, fmt.Errorf("error scanning document row: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "42501":
			return fmt.Errorf("%w: %w", remote.ErrPermissionDenied, err)
		case pgErr.Code == "28000" || pgErr.Code == "28P01":
			return fmt.Errorf("%w: %w", remote.ErrUnauthenticated, err)
		case strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P"):
			return fmt.Errorf("%w: %w", remote.ErrUnavailable, err)
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) ||
		errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", remote.ErrUnavailable, err)
	}

	return fmt.Errorf("error performing sql request: %w", err)
}
