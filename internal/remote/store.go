// Package remote describes the cloud document store that attendance records
// are pushed to and pulled from, independent of which backend provides it.
package remote

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/attendance"
)

var (
	ErrPermissionDenied = errors.New("remote store: permission denied")
	ErrUnavailable      = errors.New("remote store: service unavailable")
	ErrUnauthenticated  = errors.New("remote store: unauthenticated")
)

// DefaultQueryLimit caps a download.
const DefaultQueryLimit = 1000

// Document is an attendance record as stored remotely, annotated with where
// and by whom it was captured. SyncedAt is assigned by the server on Create.
type Document struct {
	StudentID    string
	StudentName  string
	Timestamp    string
	Date         string
	Time         string
	DeviceID     string
	TeacherName  string
	ClassSubject string
	SchoolName   string
	SyncedAt     time.Time
}

// Store is implemented by each remote backend.
type Store interface {
	// Probe performs a cheap read to find out whether the caller may access
	// the store at all.
	Probe(ctx context.Context) error
	Create(ctx context.Context, path string, doc Document) error
	// Query returns up to limit documents of teacher under path, newest
	// timestamp first.
	Query(ctx context.Context, path, teacher string, limit int) ([]Document, error)
}

// CollectionPath is where a school's records live. Every character outside
// [A-Za-z0-9] in the school name becomes '_'.
func CollectionPath(school string) string {
	var b strings.Builder
	for _, r := range school {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return "schools/" + b.String() + "/attendance"
}

// FromRecord annotates a ledger record for upload.
func FromRecord(r attendance.Record, deviceID, teacher, class, school string) Document {
	if class == "" {
		class = "Unknown"
	}
	return Document{
		StudentID:    r.StudentID,
		StudentName:  r.StudentName,
		Timestamp:    r.Timestamp,
		Date:         r.DateKey,
		Time:         r.Time,
		DeviceID:     deviceID,
		TeacherName:  teacher,
		ClassSubject: class,
		SchoolName:   school,
	}
}

// Record strips the annotations; downloaded records are synced by definition.
func (d Document) Record() attendance.Record {
	return attendance.Record{
		StudentID:   d.StudentID,
		StudentName: d.StudentName,
		Timestamp:   d.Timestamp,
		DateKey:     d.Date,
		Time:        d.Time,
		Synced:      true,
	}
}
