// Package attendance owns the canonical set of attendance records: who was
// scanned, when, and whether the record has reached the remote store.
package attendance

import (
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/scan"
)

const (
	// TimestampLayout is ISO-8601 UTC with millisecond precision.
	TimestampLayout = "2006-01-02T15:04:05.000Z"
	// DateLayout is the calendar-day key used for deduplication and filtering.
	DateLayout = "2006-01-02"
	// TimeLayout is the human-readable scan time shown in exports.
	TimeLayout = "3:04:05 PM"
)

// Record is one student marked present. Only Synced ever changes after
// creation, and only from false to true.
type Record struct {
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
	Timestamp   string `json:"timestamp"`
	DateKey     string `json:"date"`
	Time        string `json:"time"`
	Synced      bool   `json:"synced"`
}

// Key identifies a record across devices.
type Key struct {
	StudentID string
	Timestamp string
}

func (r Record) Key() Key {
	return Key{StudentID: r.StudentID, Timestamp: r.Timestamp}
}

// Instant parses Timestamp. Records from older exports may lack the
// millisecond part, so RFC 3339 is accepted too.
func (r Record) Instant() (time.Time, error) {
	t, err := time.Parse(TimestampLayout, r.Timestamp)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, r.Timestamp)
}

// NewRecord stamps a payload with now. DateKey and Time use now's location
// and are never recomputed.
func NewRecord(p scan.Payload, now time.Time) Record {
	return Record{
		StudentID:   p.ID,
		StudentName: p.DisplayName(),
		Timestamp:   now.UTC().Format(TimestampLayout),
		DateKey:     now.Format(DateLayout),
		Time:        now.Format(TimeLayout),
	}
}

// DateKeyOf formats t as a DateKey in t's location.
func DateKeyOf(t time.Time) string {
	return t.Format(DateLayout)
}
