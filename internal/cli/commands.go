package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/attendance"
	"github.com/dmitrijs2005/attendkeeper/internal/export"
	"github.com/dmitrijs2005/attendkeeper/internal/qrsheet"
	"github.com/dmitrijs2005/attendkeeper/internal/reconcile"
	"github.com/dmitrijs2005/attendkeeper/internal/reporting"
	"github.com/dmitrijs2005/attendkeeper/internal/settings"
)

var (
	errUsage  = errors.New("usage")
	errNoData = errors.New("no attendance data")
)

func (a *App) today() string {
	return attendance.DateKeyOf(a.now())
}

func (a *App) usage(text string) error {
	a.printf("Usage: %s\n", text)
	return errUsage
}

func parseDateArg(s string) (string, error) {
	if _, err := time.Parse(attendance.DateLayout, s); err != nil {
		return "", fmt.Errorf("%w: %q", reporting.ErrInvalidDate, s)
	}
	return s, nil
}

// Today lists today's attendance, latest first.
func (a *App) Today(ctx context.Context) error {
	return a.showDate(a.today())
}

// Date lists the attendance of one day.
func (a *App) Date(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("date <YYYY-MM-DD>")
	}
	d, err := parseDateArg(args[0])
	if err != nil {
		a.printf("%v\n", err)
		return err
	}
	return a.showDate(d)
}

func (a *App) showDate(dateKey string) error {
	records := a.ledger.RecordsForDate(dateKey)
	if len(records) == 0 {
		a.printf("No attendance recorded for %s\n", dateKey)
		return nil
	}

	sum := attendance.Summarize(records, dateKey)
	a.printf("%s: %d present (first %s, last %s)\n", dateKey, sum.Count, sum.FirstScan, sum.LastScan)
	a.printRecords(records)
	return nil
}

// Range lists the records dated within [from, to].
func (a *App) Range(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return a.usage("range <from YYYY-MM-DD> <to YYYY-MM-DD>")
	}
	from, err := parseDateArg(args[0])
	if err != nil {
		a.printf("%v\n", err)
		return err
	}
	to, err := parseDateArg(args[1])
	if err != nil {
		a.printf("%v\n", err)
		return err
	}

	records := a.ledger.RecordsInRange(from, to)
	attendance.SortNewestFirst(records)
	a.printf("%d records from %s to %s\n", len(records), from, to)
	a.printRecords(records)
	return nil
}

func (a *App) printRecords(records []attendance.Record) {
	for _, r := range records {
		mark := ""
		if r.Synced {
			mark = "  [synced]"
		}
		a.printf("  %s %-11s  %-12s %s%s\n", r.DateKey, r.Time, r.StudentID, r.StudentName, mark)
	}
}

// Report builds parent feedback reports for a period, prints a summary and
// saves the rendered HTML.
func (a *App) Report(ctx context.Context, args []string) error {
	const usage = "report [today|week|month|custom <from> <to>] [summary|detailed|alerts]"

	period, mode := reporting.PeriodWeek, reporting.ModeSummary
	var customFrom, customTo string
	for i := 0; i < len(args); i++ {
		arg := strings.ToLower(args[i])
		if m, err := reporting.ParseMode(arg); err == nil {
			mode = m
			continue
		}
		switch p := reporting.Period(arg); p {
		case reporting.PeriodToday, reporting.PeriodWeek, reporting.PeriodMonth:
			period = p
		case reporting.PeriodCustom:
			if i+2 >= len(args) {
				return a.usage(usage)
			}
			period, customFrom, customTo = p, args[i+1], args[i+2]
			i += 2
		default:
			return a.usage(usage)
		}
	}

	if a.ledger.Len() == 0 {
		a.printf("No attendance data for reports\n")
		return errNoData
	}

	now := a.now()
	from, to, err := reporting.PeriodRange(period, now, customFrom, customTo)
	if err != nil {
		a.printf("%v\n", err)
		return err
	}

	reports, err := reporting.BuildReports(a.ledger.Snapshot(), from, to, mode)
	if err != nil {
		a.printf("%v\n", err)
		return err
	}

	visible := reporting.Visible(reports, mode)
	a.printf("%s (%s to %s), %s mode: %d students\n", period.Label(), from, to, mode, len(visible))
	for _, r := range visible {
		a.printf("  %-20s %-10s %5.1f%% (%d/%d days) %s\n",
			r.Name, r.StudentID, r.Percentage, r.AttendanceDays, r.TotalWorkingDays, r.Status.Label())
	}

	st := a.settings.Get()
	markup, err := reporting.RenderHTML(reports, reporting.RenderInput{
		Mode: mode, Period: period, From: from, To: to, Settings: st, Now: now,
	})
	if err != nil {
		a.logger.Error(ctx, "failed to render reports", "error", err)
		return err
	}
	blob, err := export.HTMLReport(markup, st, now)
	if err != nil {
		a.logger.Error(ctx, "failed to build report page", "error", err)
		return err
	}
	return a.deliver(ctx, blob, "html")
}

// Export saves the attendance of a day as CSV or JSON, or everything as a
// full JSON export.
func (a *App) Export(ctx context.Context, args []string) error {
	const usage = "export [csv|json|all] [YYYY-MM-DD]"

	format := "csv"
	if len(args) > 0 {
		format = strings.ToLower(args[0])
	}
	if len(args) > 2 {
		return a.usage(usage)
	}

	day := a.today()
	if len(args) == 2 {
		d, err := parseDateArg(args[1])
		if err != nil {
			a.printf("%v\n", err)
			return err
		}
		day = d
	}

	st := a.settings.Get()
	now := a.now()

	var (
		blob export.Blob
		err  error
	)
	switch format {
	case "csv", "json":
		records := a.ledger.RecordsInRange(day, day)
		if len(records) == 0 {
			a.printf("No attendance data to export for %s\n", day)
			return errNoData
		}
		if format == "csv" {
			blob = export.CSV(records, st, now)
		} else {
			blob, err = export.JSON(records, st, now)
		}
	case "all":
		records := a.ledger.Snapshot()
		if len(records) == 0 {
			a.printf("No data to export\n")
			return errNoData
		}
		blob, err = export.FullJSON(records, st, now)
	default:
		return a.usage(usage)
	}
	if err != nil {
		a.logger.Error(ctx, "failed to build export", "format", format, "error", err)
		a.printf("Export failed: %v\n", err)
		return err
	}
	return a.deliver(ctx, blob, format)
}

func (a *App) deliver(ctx context.Context, blob export.Blob, format string) error {
	loc, err := a.sink.Deliver(ctx, blob)
	if err != nil {
		a.logger.Error(ctx, "export delivery failed", "name", blob.Name, "error", err)
		a.printf("Could not save %s: %v\n", blob.Name, err)
		if loc == "" {
			return err
		}
	}
	a.metrics.Export(format)
	a.printf("Saved %s\n", loc)
	return err
}

// Clear deletes the attendance of one day, today by default, or of all days
// after the user confirms.
func (a *App) Clear(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return a.usage("clear [YYYY-MM-DD|all]")
	}

	target := a.today()
	if len(args) == 1 {
		target = strings.ToLower(args[0])
		if target != "all" {
			if _, err := parseDateArg(target); err != nil {
				a.printf("%v\n", err)
				return err
			}
		}
	}

	question := fmt.Sprintf("Clear attendance for %s? This cannot be undone.", target)
	if target == "all" {
		question = "Clear ALL attendance data? This cannot be undone."
	}
	ok, err := confirm(ctx, a.lines, lockedWriter{a}, question)
	if err != nil {
		return err
	}
	if !ok {
		a.printf("Cancelled\n")
		return nil
	}

	var n int
	if target == "all" {
		n, err = a.ledger.ClearAll(ctx)
	} else {
		n, err = a.ledger.ClearDate(ctx, target)
	}
	if err != nil {
		a.printf("Could not clear attendance: %v\n", err)
		return err
	}
	a.printf("Cleared %d records\n", n)
	return nil
}

// Settings shows the settings, or changes one field: settings teacher Ms.
// Rivera.
func (a *App) Settings(ctx context.Context, args []string) error {
	if len(args) == 0 {
		st := a.settings.Get()
		a.printf("Teacher: %s\nClass:   %s\nSchool:  %s\n",
			orNotSet(st.TeacherName), orNotSet(st.ClassSubject), orNotSet(st.SchoolName))
		if !st.SyncReady() {
			a.printf("Set teacher and school to enable cloud sync\n")
		}
		return nil
	}
	if len(args) < 2 {
		return a.usage("settings [teacher|class|school <value>]")
	}

	value := strings.Join(args[1:], " ")
	var set func(*settings.Settings)
	switch strings.ToLower(args[0]) {
	case "teacher":
		set = func(s *settings.Settings) { s.TeacherName = value }
	case "class":
		set = func(s *settings.Settings) { s.ClassSubject = value }
	case "school":
		set = func(s *settings.Settings) { s.SchoolName = value }
	default:
		return a.usage("settings [teacher|class|school <value>]")
	}

	if _, err := a.settings.Update(ctx, set); err != nil {
		a.printf("Could not save settings: %v\n", err)
		return err
	}
	a.releaseAutoSync()
	a.printf("Settings saved\n")
	return nil
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

// Sync starts a manual sync pass.
func (a *App) Sync(ctx context.Context) error {
	a.requestSync(ctx, reconcile.Manual)
	return nil
}

// Download merges the teacher's records from the cloud.
func (a *App) Download(ctx context.Context) error {
	res, err := a.reconciler.DownloadRemote(ctx)
	switch {
	case errors.Is(err, reconcile.ErrSyncDisabled):
		a.printf("Cloud sync is not configured\n")
	case errors.Is(err, reconcile.ErrConfigIncomplete):
		a.printf("%s\n", reconcile.KindConfigIncomplete.Message())
	case err != nil:
		a.printf("Failed to download cloud data: %s\n", reconcile.Classify(err).Message())
	case res.Added == 0:
		a.printf("No new records in the cloud (%d checked)\n", res.Received)
	default:
		a.printf("Downloaded %d new records\n", res.Added)
	}
	return err
}

// QR reads "id,name" lines and saves a PNG per student plus a printable
// sheet.
func (a *App) QR(ctx context.Context, args []string) error {
	size := qrsheet.DefaultSize
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 64 || n > 1024 {
			return a.usage("qr [size 64-1024]")
		}
		size = n
	} else if len(args) > 1 {
		return a.usage("qr [size 64-1024]")
	}

	lines, err := readBlock(ctx, a.lines, a.promptOut(), "Enter students as id,name - one per line")
	if err != nil {
		return err
	}

	entries, skipped := qrsheet.ParseBatch(strings.Join(lines, "\n"))
	cards, err := qrsheet.Generate(entries, size)
	if err != nil {
		a.printf("Could not generate QR codes: %v\n", err)
		return err
	}

	for _, c := range cards {
		if err := a.deliver(ctx, qrsheet.PNGBlob(c), "png"); err != nil {
			return err
		}
	}
	sheet, err := qrsheet.Sheet(cards, a.now())
	if err != nil {
		a.logger.Error(ctx, "failed to render qr sheet", "error", err)
		return err
	}
	if err := a.deliver(ctx, sheet, "qr_sheet"); err != nil {
		return err
	}

	a.printf("Generated %d QR codes", len(cards))
	if skipped > 0 {
		a.printf(", %d lines without an id skipped", skipped)
	}
	a.printf("\n")
	return nil
}
