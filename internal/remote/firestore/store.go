// Package firestore stores attendance documents in Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	fs "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/attendkeeper/internal/logging"
	"github.com/dmitrijs2005/attendkeeper/internal/remote"
)

// probeCollection is read, never written, to test access rights.
const probeCollection = "test"

type document struct {
	StudentID    string    `firestore:"studentId"`
	StudentName  string    `firestore:"studentName"`
	Timestamp    string    `firestore:"timestamp"`
	Date         string    `firestore:"date"`
	Time         string    `firestore:"time"`
	DeviceID     string    `firestore:"deviceId"`
	TeacherName  string    `firestore:"teacherName"`
	ClassSubject string    `firestore:"classSubject"`
	SchoolName   string    `firestore:"schoolName"`
	SyncedAt     time.Time `firestore:"syncedAt,serverTimestamp"`
	Synced       bool      `firestore:"synced"`
}

type Store struct {
	client *fs.Client
	logger logging.Logger
}

// New opens a Firestore client through the Firebase Admin SDK. An empty
// credentialsFile falls back to Application Default Credentials.
func New(ctx context.Context, projectID, credentialsFile string, logger logging.Logger) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing firestore: %w", err)
	}

	return &Store{client: client, logger: logger.With("module", "firestore")}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Probe(ctx context.Context) error {
	iter := s.client.Collection(probeCollection).Limit(1).Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if err == nil || errors.Is(err, iterator.Done) {
		return nil
	}
	return mapError(err)
}

func (s *Store) Create(ctx context.Context, path string, doc remote.Document) error {
	ref, _, err := s.client.Collection(path).Add(ctx, toDocument(doc))
	if err != nil {
		return mapError(err)
	}
	s.logger.Debug(ctx, "document created", "path", path, "id", ref.ID, "student_id", doc.StudentID)
	return nil
}

func (s *Store) Query(ctx context.Context, path, teacher string, limit int) ([]remote.Document, error) {
	iter := s.client.Collection(path).
		Where("teacherName", "==", teacher).
		OrderBy("timestamp", fs.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var out []remote.Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, mapError(err)
		}

		var d document
		if err := snap.DataTo(&d); err != nil {
			s.logger.Warn(ctx, "skipping malformed document", "id", snap.Ref.ID, "error", err)
			continue
		}
		out = append(out, fromDocument(d))
	}
	return out, nil
}

func toDocument(d remote.Document) document {
	return document{
		StudentID:    d.StudentID,
		StudentName:  d.StudentName,
		Timestamp:    d.Timestamp,
		Date:         d.Date,
		Time:         d.Time,
		DeviceID:     d.DeviceID,
		TeacherName:  d.TeacherName,
		ClassSubject: d.ClassSubject,
		SchoolName:   d.SchoolName,
		Synced:       true,
	}
}

func fromDocument(d document) remote.Document {
	return remote.Document{
		StudentID:    d.StudentID,
		StudentName:  d.StudentName,
		Timestamp:    d.Timestamp,
		Date:         d.Date,
		Time:         d.Time,
		DeviceID:     d.DeviceID,
		TeacherName:  d.TeacherName,
		ClassSubject: d.ClassSubject,
		SchoolName:   d.SchoolName,
		SyncedAt:     d.SyncedAt,
	}
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", remote.ErrUnavailable, err)
	}

	switch status.Code(err) {
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %w", remote.ErrPermissionDenied, err)
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %w", remote.ErrUnauthenticated, err)
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %w", remote.ErrUnavailable, err)
	default:
		return fmt.Errorf("firestore error: %w", err)
	}
}
