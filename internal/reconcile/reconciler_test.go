package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/attendance"
	"github.com/dmitrijs2005/attendkeeper/internal/kv"
	"github.com/dmitrijs2005/attendkeeper/internal/logging"
	"github.com/dmitrijs2005/attendkeeper/internal/remote"
	"github.com/dmitrijs2005/attendkeeper/internal/scan"
	"github.com/dmitrijs2005/attendkeeper/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	mu        sync.Mutex
	probeErr  error
	createErr map[string]error
	created   []remote.Document
	paths     []string
	probes    int
	queryDocs []remote.Document
	queryErr  error
	queried   struct {
		path, teacher string
		limit         int
	}
}

func (f *fakeRemote) Probe(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	return f.probeErr
}

func (f *fakeRemote) Create(_ context.Context, path string, doc remote.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.createErr[doc.StudentID]; err != nil {
		return err
	}
	f.created = append(f.created, doc)
	f.paths = append(f.paths, path)
	return nil
}

func (f *fakeRemote) Query(_ context.Context, path, teacher string, limit int) ([]remote.Document, error) {
	f.queried.path, f.queried.teacher, f.queried.limit = path, teacher, limit
	return f.queryDocs, f.queryErr
}

type fakeScheduler struct {
	delays    []time.Duration
	fns       []func()
	cancelled int
}

func (s *fakeScheduler) Schedule(d time.Duration, fn func()) func() {
	s.delays = append(s.delays, d)
	idx := len(s.fns)
	s.fns = append(s.fns, fn)
	return func() {
		if s.fns[idx] != nil {
			s.fns[idx] = nil
			s.cancelled++
		}
	}
}

// fire runs every scheduled callback that was not cancelled.
func (s *fakeScheduler) fire() int {
	ran := 0
	for i, fn := range s.fns {
		if fn != nil {
			s.fns[i] = nil
			fn()
			ran++
		}
	}
	return ran
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type staticSettings settings.Settings

func (s staticSettings) Get() settings.Settings { return settings.Settings(s) }

var ready = staticSettings{TeacherName: "Ms. Park", ClassSubject: "", SchoolName: "Lincoln High"}

type harness struct {
	ledger *attendance.Ledger
	store  *kv.Memory
	remote *fakeRemote
	sched  *fakeScheduler
	clock  *fakeClock
	r      *Reconciler
	notes  []Outcome
	errs   []error
}

func newHarness(t *testing.T, st SettingsSource, students ...string) *harness {
	t.Helper()
	h := &harness{
		store:  kv.NewMemory(),
		remote: &fakeRemote{createErr: map[string]error{}},
		sched:  &fakeScheduler{},
		clock:  &fakeClock{t: time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)},
	}
	h.ledger = attendance.NewLedger(h.store, logging.NewDiscard())
	for i, id := range students {
		_, err := h.ledger.RecordScan(context.Background(), scan.Payload{ID: id, Kind: scan.Bare}, h.clock.t.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}
	h.r = New(Deps{
		Ledger:    h.ledger,
		Remote:    h.remote,
		Settings:  st,
		Store:     h.store,
		DeviceID:  "device_test",
		Logger:    logging.NewDiscard(),
		Scheduler: h.sched,
		Clock:     h.clock.now,
		Notifier: func(o Outcome, err error) {
			h.notes = append(h.notes, o)
			h.errs = append(h.errs, err)
		},
	})
	return h
}

func (h *harness) pendingStored(t *testing.T) []attendance.Record {
	t.Helper()
	raw, err := h.store.Get(context.Background(), kv.KeyPendingSync)
	require.NoError(t, err)
	if raw == nil {
		return nil
	}
	var out []attendance.Record
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestRequestSync_UploadsAndMarksSynced(t *testing.T) {
	h := newHarness(t, ready, "S1", "S2")

	out, err := h.r.RequestSync(context.Background(), Auto)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Synced)
	assert.Zero(t, out.Failed)
	assert.True(t, out.Notify)
	assert.Equal(t, KindNone, out.Kind)

	assert.Empty(t, h.ledger.Unsynced())
	require.Len(t, h.remote.created, 2)
	doc := h.remote.created[0]
	assert.Equal(t, "device_test", doc.DeviceID)
	assert.Equal(t, "Ms. Park", doc.TeacherName)
	assert.Equal(t, "Unknown", doc.ClassSubject)
	assert.Equal(t, "Lincoln High", doc.SchoolName)
	assert.Equal(t, "schools/Lincoln_High/attendance", h.remote.paths[0])
	assert.Equal(t, StateIdle, h.r.State())
	assert.Empty(t, h.pendingStored(t))
}

func TestRequestSync_NothingToDoAutoIsQuiet(t *testing.T) {
	h := newHarness(t, ready, "S1")
	_, err := h.r.RequestSync(context.Background(), Auto)
	require.NoError(t, err)

	h.clock.advance(10 * time.Second)
	out, err := h.r.RequestSync(context.Background(), Auto)
	require.NoError(t, err)
	assert.Zero(t, out.Synced)
	assert.False(t, out.Notify)

	h.clock.advance(10 * time.Second)
	out, err = h.r.RequestSync(context.Background(), Manual)
	require.NoError(t, err)
	assert.True(t, out.Notify, "manual sync reports that everything is already synced")
}

func TestRequestSync_EmptyLedgerIsSilent(t *testing.T) {
	h := newHarness(t, staticSettings{})

	out, err := h.r.RequestSync(context.Background(), Manual)
	require.NoError(t, err)
	assert.False(t, out.Notify)
	assert.Zero(t, h.remote.probes)
}

func TestRequestSync_ConfigIncomplete(t *testing.T) {
	h := newHarness(t, staticSettings{TeacherName: "Ms. Park"}, "S1")

	out, err := h.r.RequestSync(context.Background(), Auto)
	require.ErrorIs(t, err, ErrConfigIncomplete)
	assert.Equal(t, KindConfigIncomplete, out.Kind)
	assert.Zero(t, h.remote.probes)
	assert.Len(t, h.ledger.Unsynced(), 1)
	assert.Nil(t, h.pendingStored(t))
	assert.Equal(t, StateError, h.r.State())
	assert.ErrorIs(t, h.r.LastError(), ErrConfigIncomplete)
}

func TestRequestSync_PermissionProbeShortCircuits(t *testing.T) {
	h := newHarness(t, ready, "S1", "S2")
	h.remote.probeErr = remote.ErrPermissionDenied
	before := h.ledger.Snapshot()

	out, err := h.r.RequestSync(context.Background(), Auto)
	require.ErrorIs(t, err, remote.ErrPermissionDenied)
	assert.Equal(t, KindPermissionDenied, out.Kind)
	assert.Empty(t, h.remote.created, "no writes after a denied probe")
	assert.Equal(t, before, h.ledger.Snapshot())
	assert.Nil(t, h.pendingStored(t))
	assert.Empty(t, h.r.Pending())
}

func TestRequestSync_UnavailableQueuesUnsynced(t *testing.T) {
	h := newHarness(t, ready, "S1", "S2")
	h.remote.probeErr = remote.ErrUnavailable

	out, err := h.r.RequestSync(context.Background(), Auto)
	require.ErrorIs(t, err, remote.ErrUnavailable)
	assert.Equal(t, KindServiceUnavailable, out.Kind)
	assert.True(t, out.Kind.Retryable())
	assert.Len(t, h.pendingStored(t), 2)

	h.clock.advance(time.Minute)
	_, err = h.r.RequestSync(context.Background(), Auto)
	require.Error(t, err)
	assert.Len(t, h.r.Pending(), 2, "pending queue never holds the same record twice")
}

func TestRequestSync_PerRecordFailure(t *testing.T) {
	h := newHarness(t, ready, "S1", "S2", "S3")
	h.remote.createErr["S2"] = errors.New("write rejected")

	out, err := h.r.RequestSync(context.Background(), Auto)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Synced)
	assert.Equal(t, 1, out.Failed)

	left := h.ledger.Unsynced()
	require.Len(t, left, 1)
	assert.Equal(t, "S2", left[0].StudentID)

	pending := h.pendingStored(t)
	require.Len(t, pending, 1)
	assert.Equal(t, "S2", pending[0].StudentID)

	delete(h.remote.createErr, "S2")
	h.clock.advance(time.Minute)
	out, err = h.r.RequestSync(context.Background(), Auto)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Synced)
	assert.Empty(t, h.pendingStored(t), "a clean pass clears the queue")
}

func TestRequestSync_DebounceCoalescesIntoOnePass(t *testing.T) {
	h := newHarness(t, ready, "S1")
	ctx := context.Background()

	_, err := h.r.RequestSync(ctx, Auto)
	require.NoError(t, err)
	require.Equal(t, 1, h.remote.probes)

	_, err = h.ledger.RecordScan(ctx, scan.Payload{ID: "S2", Kind: scan.Bare}, h.clock.t)
	require.NoError(t, err)

	h.clock.advance(time.Second)
	out, err := h.r.RequestSync(ctx, Auto)
	require.NoError(t, err)
	assert.True(t, out.Debounced)
	assert.Equal(t, StateDebounced, h.r.State())

	h.clock.advance(time.Second)
	out, err = h.r.RequestSync(ctx, Manual)
	require.NoError(t, err)
	assert.True(t, out.Debounced)

	require.Equal(t, []time.Duration{4 * time.Second, 3 * time.Second}, h.sched.delays)
	assert.Equal(t, 1, h.sched.cancelled, "the newer request replaces the scheduled retry")
	assert.Equal(t, 1, h.remote.probes, "nothing runs inside the window")

	h.clock.advance(3 * time.Second)
	assert.Equal(t, 1, h.sched.fire())
	assert.Equal(t, 2, h.remote.probes, "exactly one deferred pass")

	require.Len(t, h.notes, 1)
	assert.Equal(t, Manual, h.notes[0].Trigger)
	assert.Equal(t, 1, h.notes[0].Synced)
	assert.NoError(t, h.errs[0])
	assert.Equal(t, StateIdle, h.r.State())
}

func TestRequestSync_SkipsWhileSyncing(t *testing.T) {
	h := newHarness(t, ready, "S1")
	h.r.syncing = true

	out, err := h.r.RequestSync(context.Background(), Manual)
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Zero(t, h.remote.probes)
}

func TestRequestSync_SyncDisabled(t *testing.T) {
	r := New(Deps{Logger: logging.NewDiscard()})
	_, err := r.RequestSync(context.Background(), Manual)
	assert.ErrorIs(t, err, ErrSyncDisabled)

	_, err = r.DownloadRemote(context.Background())
	assert.ErrorIs(t, err, ErrSyncDisabled)
}

func TestClose_CancelsRetry(t *testing.T) {
	h := newHarness(t, ready, "S1")
	_, _ = h.r.RequestSync(context.Background(), Auto)
	h.clock.advance(time.Second)
	_, _ = h.r.RequestSync(context.Background(), Auto)

	h.r.Close()
	assert.Equal(t, 1, h.sched.cancelled)
	assert.Zero(t, h.sched.fire())
	assert.Equal(t, StateIdle, h.r.State())
}

func TestLoadPending(t *testing.T) {
	h := newHarness(t, ready)
	raw := `[{"studentId":"S1","studentName":"Student S1","timestamp":"2025-09-01T08:00:00.000Z","date":"2025-09-01","time":"8:00:00 AM","synced":false}]`
	require.NoError(t, h.store.Set(context.Background(), kv.KeyPendingSync, []byte(raw)))

	require.NoError(t, h.r.LoadPending(context.Background()))
	require.Len(t, h.r.Pending(), 1)

	require.NoError(t, h.store.Set(context.Background(), kv.KeyPendingSync, []byte(`nope`)))
	assert.Error(t, h.r.LoadPending(context.Background()))
}

func TestDownloadRemote_MergesOnKey(t *testing.T) {
	h := newHarness(t, ready, "S1")
	local := h.ledger.Snapshot()[0]

	h.remote.queryDocs = []remote.Document{
		{StudentID: "S1", Timestamp: local.Timestamp, Date: local.DateKey},
		{StudentID: "S7", StudentName: "Remote", Timestamp: "2025-08-29T08:00:00.000Z", Date: "2025-08-29", Time: "8:00:00 AM"},
	}

	res, err := h.r.DownloadRemote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DownloadResult{Received: 2, Added: 1}, res)
	assert.Equal(t, 2, h.ledger.Len())
	assert.Equal(t, "schools/Lincoln_High/attendance", h.remote.queried.path)
	assert.Equal(t, "Ms. Park", h.remote.queried.teacher)
	assert.Equal(t, remote.DefaultQueryLimit, h.remote.queried.limit)
}

func TestDownloadRemote_Errors(t *testing.T) {
	h := newHarness(t, staticSettings{})
	_, err := h.r.DownloadRemote(context.Background())
	assert.ErrorIs(t, err, ErrConfigIncomplete)

	h = newHarness(t, ready)
	h.remote.queryErr = remote.ErrUnauthenticated
	_, err = h.r.DownloadRemote(context.Background())
	assert.ErrorIs(t, err, remote.ErrUnauthenticated)
}
