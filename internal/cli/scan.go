package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/attendkeeper/internal/reconcile"
	"github.com/dmitrijs2005/attendkeeper/internal/scan"
)

// Scan reads badge payloads until a line with only "." or the end of input.
func (a *App) Scan(ctx context.Context) error {
	fmt.Fprintln(a.promptOut(), `Scanning - one code per line, "." to stop`)

	h := &scanHandler{app: a}
	sess := scan.NewSession(&blockSource{src: a.lines}, h, a.scanCooldown, a.logger)
	if err := sess.Start(ctx); err != nil {
		return err
	}

	select {
	case <-sess.Done():
	case <-ctx.Done():
	}
	sess.Stop()

	a.printf("Scan finished: %d recorded, %d duplicates, %d invalid\n", h.accepted, h.duplicates, h.invalid)
	if err := sess.Err(); err != nil && !errors.Is(err, context.Canceled) {
		a.printf("Scanner stopped: %v\n", err)
		return err
	}
	return nil
}

// scanHandler turns decoded payloads into ledger records. Its counters are
// only touched by the session goroutine and read after it exits.
type scanHandler struct {
	app *App

	accepted   int
	duplicates int
	invalid    int
}

func (h *scanHandler) HandleScan(ctx context.Context, p scan.Payload) {
	a := h.app
	res, err := a.ledger.RecordScan(ctx, p, a.now())
	if err != nil {
		a.metrics.Scan("error")
		a.logger.Error(ctx, "failed to record scan", "student_id", p.ID, "error", err)
		a.printf("Failed to save attendance for %s: %v\n", p.DisplayName(), err)
		return
	}

	if !res.Accepted {
		h.duplicates++
		a.metrics.Scan("duplicate")
		a.printf("%s already scanned today at %s\n", res.Record.StudentName, res.Record.Time)
		return
	}

	h.accepted++
	a.metrics.Scan("accepted")
	a.printf("Attendance recorded: %s (%s) at %s\n", res.Record.StudentName, res.Record.StudentID, res.Record.Time)

	if a.Mode() == ModeOnline {
		a.requestSync(ctx, reconcile.Auto)
	}
}

func (h *scanHandler) HandleInvalid(ctx context.Context, raw string, err error) {
	h.invalid++
	h.app.metrics.Scan("invalid")
	h.app.logger.Warn(ctx, "invalid scan", "raw", raw, "error", err)
	h.app.printf("Invalid QR code\n")
}
