package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/attendance"
	"github.com/dmitrijs2005/attendkeeper/internal/exportsink"
	"github.com/dmitrijs2005/attendkeeper/internal/logging"
	"github.com/dmitrijs2005/attendkeeper/internal/metrics"
	"github.com/dmitrijs2005/attendkeeper/internal/reconcile"
	"github.com/dmitrijs2005/attendkeeper/internal/remote"
	"github.com/dmitrijs2005/attendkeeper/internal/scan"
	"github.com/dmitrijs2005/attendkeeper/internal/settings"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

const probeTimeout = 3 * time.Second

// Deps wires an App. Remote may be nil when sync is disabled.
type Deps struct {
	Ledger       *attendance.Ledger
	Settings     *settings.Store
	Reconciler   *reconcile.Reconciler
	Remote       remote.Store
	Sink         exportsink.Sink
	Metrics      *metrics.Metrics
	Logger       logging.Logger
	Clock        func() time.Time
	ScanCooldown time.Duration

	In  io.Reader
	Out io.Writer
}

type App struct {
	ledger       *attendance.Ledger
	settings     *settings.Store
	reconciler   *reconcile.Reconciler
	remote       remote.Store
	sink         exportsink.Sink
	metrics      *metrics.Metrics
	logger       logging.Logger
	now          func() time.Time
	scanCooldown time.Duration

	lines       scan.Source
	out         io.Writer
	interactive bool

	outMu sync.Mutex

	modeMu sync.Mutex
	mode   Mode
	// autoHeld stops automatic passes after a failure that retrying will
	// not fix. A clean pass or a settings change lifts it.
	autoHeld bool
}

func NewApp(d Deps) *App {
	a := &App{
		ledger:       d.Ledger,
		settings:     d.Settings,
		reconciler:   d.Reconciler,
		remote:       d.Remote,
		sink:         d.Sink,
		metrics:      d.Metrics,
		logger:       d.Logger.With("module", "cli"),
		now:          d.Clock,
		scanCooldown: d.ScanCooldown,
		out:          d.Out,
		mode:         ModeOffline,
	}
	if a.now == nil {
		a.now = time.Now
	}

	in := d.In
	if in == nil {
		in = os.Stdin
	}
	if a.out == nil {
		a.out = os.Stdout
	}
	a.interactive = isInteractive(in)
	a.lines = scan.NewLineSource(in)

	if a.remote == nil {
		a.mode = ModeDisabled
	}
	return a
}

// Run starts the REPL and blocks until the user quits, the input ends or
// ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	a.printf("attendkeeper (type 'help' for commands)\n")
	runREPL(ctx, a, a.status, a.lines, lockedWriter{a}, a.promptOut())
	a.reconciler.Close()
}

// Mode reports the connectivity last seen by the watcher.
func (a *App) Mode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.mode
}

// setMode switches the mode and reports whether it changed.
func (a *App) setMode(mode Mode) bool {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	if a.mode == mode {
		return false
	}
	a.mode = mode
	return true
}

func (a *App) status() string {
	s := string(a.Mode())
	if st := a.settings.Get(); st.ClassSubject != "" {
		s = st.ClassSubject + " " + s
	}
	return fmt.Sprintf("(%s)", s)
}

// StartOnlineStatusWatcher probes the remote store every interval. Coming
// back online starts an automatic sync. It returns when ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if a.remote == nil || interval <= 0 {
		return
	}

	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	err := a.remote.Probe(pctx)
	cancel()

	// a denied probe still proves the store is reachable
	online := err == nil || reconcile.Classify(err) == reconcile.KindPermissionDenied

	if !online {
		if a.setMode(ModeOffline) {
			a.logger.Info(ctx, "switched to offline mode", "error", err)
			a.printf("Offline - attendance is saved locally\n")
		}
		return
	}

	if a.setMode(ModeOnline) {
		a.logger.Info(ctx, "switched to online mode")
		a.printf("Back online - syncing\n")
		a.requestSync(ctx, reconcile.Auto)
	}
}

// NotifySync prints the result of a sync pass that ran after a debounce.
// It is meant to be passed as reconcile.Deps.Notifier.
func (a *App) NotifySync(out reconcile.Outcome, err error) {
	a.trackOutcome(out, err)
	if msg := syncMessage(out, err); msg != "" {
		a.printf("%s\n", msg)
	}
}

func (a *App) requestSync(ctx context.Context, trigger reconcile.Trigger) {
	if trigger == reconcile.Auto && a.autoSyncHeld() {
		a.logger.Debug(ctx, "auto sync held until a manual sync")
		return
	}
	out, err := a.reconciler.RequestSync(ctx, trigger)
	a.trackOutcome(out, err)
	if msg := syncMessage(out, err); msg != "" {
		a.printf("%s\n", msg)
	}
}

func (a *App) trackOutcome(out reconcile.Outcome, err error) {
	if out.Skipped || out.Debounced || errors.Is(err, reconcile.ErrSyncDisabled) {
		return
	}
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	switch {
	case err == nil:
		a.autoHeld = false
	case out.Kind != reconcile.KindNone && !out.Kind.Retryable():
		a.autoHeld = true
	}
}

func (a *App) autoSyncHeld() bool {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.autoHeld
}

func (a *App) releaseAutoSync() {
	a.modeMu.Lock()
	a.autoHeld = false
	a.modeMu.Unlock()
}

func syncMessage(out reconcile.Outcome, err error) string {
	switch {
	case out.Skipped:
		if out.Trigger == reconcile.Manual {
			return "Sync already in progress"
		}
		return ""
	case out.Debounced:
		if out.Trigger == reconcile.Manual {
			return "Sync requested too soon - it will run shortly"
		}
		return ""
	case errors.Is(err, reconcile.ErrSyncDisabled):
		return "Cloud sync is not configured"
	case err != nil:
		if out.Kind == reconcile.KindNone {
			return "Sync failed: " + err.Error()
		}
		return out.Kind.Message()
	case !out.Notify:
		return ""
	case out.Failed > 0:
		return fmt.Sprintf("Synced %d records, %d failed - will retry", out.Synced, out.Failed)
	case out.Synced > 0:
		return fmt.Sprintf("Synced %d records to cloud", out.Synced)
	default:
		return "All data is already synced"
	}
}

// printf writes a notice. Notices come from the REPL and from background
// goroutines, so writes are serialized.
func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

// promptOut is where prompts go: nowhere unless a person is typing.
func (a *App) promptOut() io.Writer {
	if a.interactive {
		return lockedWriter{a}
	}
	return io.Discard
}

type lockedWriter struct{ a *App }

func (w lockedWriter) Write(p []byte) (int, error) {
	w.a.outMu.Lock()
	defer w.a.outMu.Unlock()
	return w.a.out.Write(p)
}
