// Package reconcile pushes unsynced attendance records to the remote store,
// keeps the queue of records that failed to upload, and merges records back
// from the remote store.
package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/attendance"
	"github.com/dmitrijs2005/attendkeeper/internal/kv"
	"github.com/dmitrijs2005/attendkeeper/internal/logging"
	"github.com/dmitrijs2005/attendkeeper/internal/metrics"
	"github.com/dmitrijs2005/attendkeeper/internal/remote"
	"github.com/dmitrijs2005/attendkeeper/internal/settings"
)

const DefaultMinInterval = 5 * time.Second

type State int

const (
	StateIdle State = iota
	StateSyncing
	StateDebounced
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSyncing:
		return "syncing"
	case StateDebounced:
		return "debounced"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Trigger tells who asked for a pass. A manual pass notifies even when it
// uploaded nothing.
type Trigger int

const (
	Auto Trigger = iota
	Manual
)

func (t Trigger) String() string {
	if t == Manual {
		return "manual"
	}
	return "auto"
}

// Outcome summarizes one RequestSync call.
type Outcome struct {
	Synced  int
	Failed  int
	Trigger Trigger
	Kind    Kind
	// Notify is false for an auto pass that had nothing to do.
	Notify bool
	// Skipped means another pass was already running.
	Skipped bool
	// Debounced means the pass was deferred; the result arrives through the
	// Notifier.
	Debounced bool
}

// DownloadResult reports a DownloadRemote call.
type DownloadResult struct {
	Received int
	Added    int
}

// Ledger is the part of attendance.Ledger the reconciler uses.
type Ledger interface {
	Len() int
	Unsynced() []attendance.Record
	MarkSynced(ctx context.Context, keys []attendance.Key) (int, error)
	Merge(ctx context.Context, records []attendance.Record) (int, error)
}

type SettingsSource interface {
	Get() settings.Settings
}

// Notifier receives the result of passes that ran after a debounce.
type Notifier func(Outcome, error)

// Deps wires a Reconciler. Zero values of the optional fields get defaults.
type Deps struct {
	Ledger   Ledger
	Remote   remote.Store
	Settings SettingsSource
	Store    kv.Store
	DeviceID string
	Logger   logging.Logger

	Metrics     *metrics.Metrics
	Notifier    Notifier
	Scheduler   Scheduler
	Clock       func() time.Time
	MinInterval time.Duration
}

type Reconciler struct {
	ledger      Ledger
	remote      remote.Store
	settings    SettingsSource
	deviceID    string
	metrics     *metrics.Metrics
	notify      Notifier
	scheduler   Scheduler
	now         func() time.Time
	minInterval time.Duration
	logger      logging.Logger

	mu          sync.Mutex
	state       State
	syncing     bool
	lastAttempt time.Time
	lastErr     error
	cancelRetry func()
	pending     pendingQueue
}

func New(d Deps) *Reconciler {
	r := &Reconciler{
		ledger:      d.Ledger,
		remote:      d.Remote,
		settings:    d.Settings,
		deviceID:    d.DeviceID,
		metrics:     d.Metrics,
		notify:      d.Notifier,
		scheduler:   d.Scheduler,
		now:         d.Clock,
		minInterval: d.MinInterval,
		logger:      d.Logger.With("module", "reconcile"),
		pending:     pendingQueue{store: d.Store},
	}
	if r.scheduler == nil {
		r.scheduler = TimerScheduler{}
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.minInterval <= 0 {
		r.minInterval = DefaultMinInterval
	}
	return r
}

// LoadPending restores the pending queue saved by an earlier run.
func (r *Reconciler) LoadPending(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending.load(ctx)
}

func (r *Reconciler) Pending() []attendance.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending.snapshot()
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// LastError is the error of the most recent pass, nil after a clean one.
func (r *Reconciler) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Close cancels a scheduled retry.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelRetry != nil {
		r.cancelRetry()
		r.cancelRetry = nil
	}
	if r.state == StateDebounced {
		r.state = StateIdle
	}
}

// RequestSync runs a pass now, or defers it when the previous attempt was
// less than the minimum interval ago. At most one retry is scheduled at a
// time; a newer request replaces it.
func (r *Reconciler) RequestSync(ctx context.Context, trigger Trigger) (Outcome, error) {
	if r.remote == nil {
		return Outcome{Trigger: trigger, Notify: trigger == Manual}, ErrSyncDisabled
	}

	r.mu.Lock()
	if r.syncing {
		r.mu.Unlock()
		r.logger.Debug(ctx, "sync already in progress", "trigger", trigger.String())
		return Outcome{Trigger: trigger, Skipped: true}, nil
	}

	now := r.now()
	if elapsed := now.Sub(r.lastAttempt); !r.lastAttempt.IsZero() && elapsed < r.minInterval {
		wait := r.minInterval - elapsed
		if r.cancelRetry != nil {
			r.cancelRetry()
		}
		detached := context.WithoutCancel(ctx)
		r.cancelRetry = r.scheduler.Schedule(wait, func() { r.runDeferred(detached, trigger) })
		r.state = StateDebounced
		r.mu.Unlock()

		r.metrics.SyncDebounced()
		r.logger.Debug(ctx, "sync debounced", "wait", wait.String(), "trigger", trigger.String())
		return Outcome{Trigger: trigger, Debounced: true}, nil
	}

	r.syncing = true
	r.state = StateSyncing
	r.lastAttempt = now
	if r.cancelRetry != nil {
		r.cancelRetry()
		r.cancelRetry = nil
	}
	r.mu.Unlock()

	out, err := r.pass(ctx, trigger)

	r.mu.Lock()
	r.syncing = false
	r.lastErr = err
	if err != nil {
		r.state = StateError
	} else if r.state == StateSyncing {
		r.state = StateIdle
	}
	r.mu.Unlock()

	r.metrics.SyncPass(out.Kind.String(), out.Synced, out.Failed)
	return out, err
}

func (r *Reconciler) runDeferred(ctx context.Context, trigger Trigger) {
	out, err := r.RequestSync(ctx, trigger)
	if r.notify != nil && !out.Debounced {
		r.notify(out, err)
	}
}

func (r *Reconciler) pass(ctx context.Context, trigger Trigger) (Outcome, error) {
	out := Outcome{Trigger: trigger}

	if r.ledger.Len() == 0 {
		r.logger.Debug(ctx, "no attendance data to sync")
		return out, nil
	}

	st := r.settings.Get()
	if !st.SyncReady() {
		out.Kind = KindConfigIncomplete
		out.Notify = true
		return out, ErrConfigIncomplete
	}

	if err := r.remote.Probe(ctx); err != nil {
		if errors.Is(err, remote.ErrPermissionDenied) {
			r.logger.Warn(ctx, "remote store denied access", "error", err)
			out.Kind = KindPermissionDenied
			out.Notify = true
			return out, err
		}
		return r.failPass(ctx, out, err)
	}

	path := remote.CollectionPath(st.SchoolName)
	var synced []attendance.Key
	var failed []attendance.Record
	for _, rec := range r.ledger.Unsynced() {
		doc := remote.FromRecord(rec, r.deviceID, st.TeacherName, st.ClassSubject, st.SchoolName)
		if err := r.remote.Create(ctx, path, doc); err != nil {
			r.logger.Error(ctx, "failed to sync entry", "student_id", rec.StudentID, "error", err)
			failed = append(failed, rec)
			continue
		}
		synced = append(synced, rec.Key())
	}

	if _, err := r.ledger.MarkSynced(ctx, synced); err != nil {
		out.Synced = len(synced)
		return r.failPass(ctx, out, err)
	}

	out.Synced = len(synced)
	out.Failed = len(failed)
	out.Notify = out.Synced > 0 || out.Failed > 0 || trigger == Manual

	r.mu.Lock()
	var next []attendance.Record
	if len(failed) > 0 {
		next = without(append(r.pending.snapshot(), failed...), synced)
	}
	err := r.pending.replace(ctx, next)
	r.mu.Unlock()
	if err != nil {
		r.logger.Error(ctx, "failed to persist pending queue", "error", err)
	}

	r.logger.Info(ctx, "sync pass finished", "synced", out.Synced, "failed", out.Failed, "trigger", trigger.String())
	return out, nil
}

// failPass records a pass-level failure: everything still unsynced joins the
// pending queue.
func (r *Reconciler) failPass(ctx context.Context, out Outcome, err error) (Outcome, error) {
	out.Kind = Classify(err)
	out.Notify = true

	r.mu.Lock()
	perr := r.pending.replace(ctx, append(r.pending.snapshot(), r.ledger.Unsynced()...))
	r.mu.Unlock()
	if perr != nil {
		r.logger.Error(ctx, "failed to persist pending queue", "error", perr)
	}

	r.logger.Error(ctx, "sync pass failed", "kind", out.Kind.String(), "error", err)
	return out, err
}

// DownloadRemote pulls the teacher's most recent documents and merges the
// ones the ledger does not hold yet.
func (r *Reconciler) DownloadRemote(ctx context.Context) (DownloadResult, error) {
	if r.remote == nil {
		return DownloadResult{}, ErrSyncDisabled
	}
	st := r.settings.Get()
	if !st.SyncReady() {
		return DownloadResult{}, ErrConfigIncomplete
	}

	docs, err := r.remote.Query(ctx, remote.CollectionPath(st.SchoolName), st.TeacherName, remote.DefaultQueryLimit)
	if err != nil {
		r.logger.Error(ctx, "failed to download cloud data", "error", err)
		return DownloadResult{}, err
	}

	records := make([]attendance.Record, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.Record())
	}

	added, err := r.ledger.Merge(ctx, records)
	if err != nil {
		return DownloadResult{Received: len(docs)}, err
	}
	r.metrics.Downloaded(added)
	r.logger.Info(ctx, "cloud data downloaded", "received", len(docs), "added", added)
	return DownloadResult{Received: len(docs), Added: added}, nil
}
