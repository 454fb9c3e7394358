package reconcile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/attendkeeper/internal/attendance"
	"github.com/dmitrijs2005/attendkeeper/internal/kv"
)

// pendingQueue holds records that failed to reach the remote store, persisted
// under kv.KeyPendingSync. It is not safe for concurrent use; the reconciler
// serializes access.
type pendingQueue struct {
	store   kv.Store
	records []attendance.Record
}

func (q *pendingQueue) load(ctx context.Context) error {
	data, err := q.store.Get(ctx, kv.KeyPendingSync)
	if err != nil {
		return fmt.Errorf("failed to load pending queue: %w", err)
	}
	if len(data) == 0 {
		q.records = nil
		return nil
	}
	var records []attendance.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to decode pending queue: %w", err)
	}
	q.records = records
	return nil
}

// replace persists records as the new queue content, deduplicated by key.
func (q *pendingQueue) replace(ctx context.Context, records []attendance.Record) error {
	next := dedupe(records)
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode pending queue: %w", err)
	}
	if err := q.store.Set(ctx, kv.KeyPendingSync, data); err != nil {
		return fmt.Errorf("failed to save pending queue: %w", err)
	}
	q.records = next
	return nil
}

func (q *pendingQueue) snapshot() []attendance.Record {
	return append([]attendance.Record(nil), q.records...)
}

func dedupe(records []attendance.Record) []attendance.Record {
	out := make([]attendance.Record, 0, len(records))
	seen := make(map[attendance.Key]struct{}, len(records))
	for _, r := range records {
		if _, ok := seen[r.Key()]; ok {
			continue
		}
		seen[r.Key()] = struct{}{}
		out = append(out, r)
	}
	return out
}

func without(records []attendance.Record, keys []attendance.Key) []attendance.Record {
	if len(keys) == 0 {
		return records
	}
	drop := make(map[attendance.Key]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	out := make([]attendance.Record, 0, len(records))
	for _, r := range records {
		if _, ok := drop[r.Key()]; !ok {
			out = append(out, r)
		}
	}
	return out
}
