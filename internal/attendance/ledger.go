package attendance

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/kv"
	"github.com/dmitrijs2005/attendkeeper/internal/logging"
	"github.com/dmitrijs2005/attendkeeper/internal/scan"
)

var (
	ErrPersistence = errors.New("attendance persistence failed")
	ErrCorruptData = errors.New("stored attendance data is corrupt")
)

// Reason explains a rejected scan.
type Reason string

const ReasonDuplicateForDay Reason = "duplicate_for_day"

// ScanResult reports what RecordScan did. A duplicate is not an error; Record
// then points at the record already held for that day.
type ScanResult struct {
	Accepted bool
	Record   *Record
	Reason   Reason
}

// Ledger is the in-memory record set mirrored to a kv.Store under
// kv.KeyAttendance. Every mutation persists the next state before it becomes
// visible; a failed write leaves the ledger as it was.
type Ledger struct {
	mu      sync.Mutex
	store   kv.Store
	records []Record
	logger  logging.Logger
}

func NewLedger(store kv.Store, logger logging.Logger) *Ledger {
	return &Ledger{store: store, logger: logger.With("module", "ledger")}
}

// Load replaces the in-memory state with what the store holds. A missing key
// is an empty ledger.
func (l *Ledger) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := l.store.Get(ctx, kv.KeyAttendance)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if len(data) == 0 {
		l.records = nil
		return nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptData, err)
	}
	l.records = records
	l.logger.Debug(ctx, "ledger loaded", "records", len(records))
	return nil
}

// RecordScan adds a record for p unless the student already has one for the
// calendar day of now.
func (l *Ledger) RecordScan(ctx context.Context, p scan.Payload, now time.Time) (ScanResult, error) {
	if p.ID == "" {
		return ScanResult{}, scan.ErrInvalidPayload
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	day := DateKeyOf(now)
	for i := range l.records {
		if l.records[i].StudentID == p.ID && l.records[i].DateKey == day {
			existing := l.records[i]
			l.logger.Debug(ctx, "duplicate scan", "student_id", p.ID, "date", day)
			return ScanResult{Accepted: false, Record: &existing, Reason: ReasonDuplicateForDay}, nil
		}
	}

	rec := NewRecord(p, now)
	next := append(slices.Clone(l.records), rec)
	if err := l.persist(ctx, next); err != nil {
		return ScanResult{}, err
	}
	l.records = next

	l.logger.Info(ctx, "attendance recorded", "student_id", rec.StudentID, "date", rec.DateKey)
	return ScanResult{Accepted: true, Record: &rec}, nil
}

// RecordsForDate returns the records of one day, most recent first.
func (l *Ledger) RecordsForDate(dateKey string) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Record, 0)
	for _, r := range l.records {
		if r.DateKey == dateKey {
			out = append(out, r)
		}
	}
	SortNewestFirst(out)
	return out
}

// RecordsInRange returns records whose DateKey lies in [from, to], in stored
// order.
func (l *Ledger) RecordsInRange(from, to string) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return FilterRange(l.records, from, to)
}

// ClearDate drops every record of one day and returns how many went.
func (l *Ledger) ClearDate(ctx context.Context, dateKey string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := slices.DeleteFunc(slices.Clone(l.records), func(r Record) bool {
		return r.DateKey == dateKey
	})
	removed := len(l.records) - len(next)
	if removed == 0 {
		return 0, nil
	}
	if err := l.persist(ctx, next); err != nil {
		return 0, err
	}
	l.records = next

	l.logger.Info(ctx, "date cleared", "date", dateKey, "removed", removed)
	return removed, nil
}

// ClearAll drops every record.
func (l *Ledger) ClearAll(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := len(l.records)
	if err := l.persist(ctx, []Record{}); err != nil {
		return 0, err
	}
	l.records = nil

	l.logger.Info(ctx, "ledger cleared", "removed", removed)
	return removed, nil
}

// Snapshot returns a copy of every record in stored order.
func (l *Ledger) Snapshot() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records)
}

// Unsynced returns copies of the records not yet written remotely.
func (l *Ledger) Unsynced() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Record
	for _, r := range l.records {
		if !r.Synced {
			out = append(out, r)
		}
	}
	return out
}

// Len is the number of records held.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// MarkSynced flips Synced on the records named by keys and returns how many
// changed. Already synced or unknown keys are ignored.
func (l *Ledger) MarkSynced(ctx context.Context, keys []Key) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	want := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := slices.Clone(l.records)
	changed := 0
	for i := range next {
		if next[i].Synced {
			continue
		}
		if _, ok := want[next[i].Key()]; ok {
			next[i].Synced = true
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	if err := l.persist(ctx, next); err != nil {
		return 0, err
	}
	l.records = next
	return changed, nil
}

// Merge appends records whose (StudentID, Timestamp) is not held yet. Merged
// records are marked synced since they came from the remote store.
func (l *Ledger) Merge(ctx context.Context, records []Record) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[Key]struct{}, len(l.records)+len(records))
	for _, r := range l.records {
		seen[r.Key()] = struct{}{}
	}

	next := slices.Clone(l.records)
	added := 0
	for _, r := range records {
		if r.StudentID == "" || r.Timestamp == "" {
			continue
		}
		if _, ok := seen[r.Key()]; ok {
			continue
		}
		seen[r.Key()] = struct{}{}
		r.Synced = true
		next = append(next, r)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := l.persist(ctx, next); err != nil {
		return 0, err
	}
	l.records = next

	l.logger.Info(ctx, "remote records merged", "added", added, "received", len(records))
	return added, nil
}

func (l *Ledger) persist(ctx context.Context, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := l.store.Set(ctx, kv.KeyAttendance, data); err != nil {
		l.logger.Error(ctx, "failed to persist ledger", "error", err)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// FilterRange keeps the records with from <= DateKey <= to. DateKeys compare
// correctly as strings.
func FilterRange(records []Record, from, to string) []Record {
	out := make([]Record, 0)
	for _, r := range records {
		if r.DateKey >= from && r.DateKey <= to {
			out = append(out, r)
		}
	}
	return out
}

// SortNewestFirst orders records by Timestamp, latest first.
func SortNewestFirst(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		return cmp.Compare(b.Timestamp, a.Timestamp)
	})
}
