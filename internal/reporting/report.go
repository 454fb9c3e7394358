// Package reporting turns a ledger snapshot into per-student attendance
// reports for parents: days present, weekday working days, percentage and
// a status tier.
package reporting

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/attendance"
	"github.com/dmitrijs2005/attendkeeper/internal/scan"
)

var (
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidMode = errors.New("invalid report mode")
)

// RecentLimit is how many in-range records a report keeps.
const RecentLimit = 5

// AlertThreshold: students at or above this percentage are left out of
// alert reports.
const AlertThreshold = 80.0

type Mode string

const (
	ModeSummary  Mode = "summary"
	ModeDetailed Mode = "detailed"
	ModeAlerts   Mode = "alerts"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeSummary, ModeDetailed, ModeAlerts:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

type Status string

const (
	StatusExcellent        Status = "excellent"
	StatusGood             Status = "good"
	StatusSatisfactory     Status = "satisfactory"
	StatusNeedsImprovement Status = "needs-improvement"
	StatusPoor             Status = "poor"
)

// StatusFor maps a percentage to its tier.
func StatusFor(percentage float64) Status {
	switch {
	case percentage >= 90:
		return StatusExcellent
	case percentage >= 80:
		return StatusGood
	case percentage >= 70:
		return StatusSatisfactory
	case percentage >= 60:
		return StatusNeedsImprovement
	default:
		return StatusPoor
	}
}

func (s Status) Label() string {
	switch s {
	case StatusExcellent:
		return "Excellent"
	case StatusGood:
		return "Good"
	case StatusSatisfactory:
		return "Satisfactory"
	case StatusNeedsImprovement:
		return "Needs Improvement"
	default:
		return "Poor"
	}
}

type StudentReport struct {
	StudentID        string
	Name             string
	AttendanceDays   int
	TotalWorkingDays int
	Percentage       float64
	Status           Status
	RecentRecords    []attendance.Record
}

// BuildReports computes a report for every student that appears anywhere in
// snapshot, counting only records dated within [from, to]. Students without
// in-range records get zero days. mode is validated but never filters here;
// see Visible.
func BuildReports(snapshot []attendance.Record, from, to string, mode Mode) (map[string]StudentReport, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	working, err := WorkingDays(from, to)
	if err != nil {
		return nil, err
	}

	inRange := attendance.FilterRange(snapshot, from, to)

	latestName := make(map[string]string)
	for _, r := range snapshot {
		if r.StudentName != "" {
			latestName[r.StudentID] = r.StudentName
		}
	}

	reports := make(map[string]StudentReport, len(latestName))
	for _, r := range snapshot {
		if _, ok := reports[r.StudentID]; ok {
			continue
		}
		reports[r.StudentID] = StudentReport{StudentID: r.StudentID, TotalWorkingDays: working}
	}

	days := make(map[string]map[string]struct{})
	for _, r := range inRange {
		rep := reports[r.StudentID]
		if rep.Name == "" {
			rep.Name = r.StudentName
		}
		rep.RecentRecords = append(rep.RecentRecords, r)
		reports[r.StudentID] = rep

		if days[r.StudentID] == nil {
			days[r.StudentID] = make(map[string]struct{})
		}
		days[r.StudentID][r.DateKey] = struct{}{}
	}

	for id, rep := range reports {
		if rep.Name == "" {
			rep.Name = latestName[id]
		}
		if rep.Name == "" {
			rep.Name = scan.DefaultName(id)
		}
		if n := len(rep.RecentRecords); n > RecentLimit {
			rep.RecentRecords = rep.RecentRecords[n-RecentLimit:]
		}
		rep.AttendanceDays = len(days[id])
		if working > 0 {
			rep.Percentage = float64(rep.AttendanceDays) / float64(working) * 100
		}
		rep.Status = StatusFor(rep.Percentage)
		reports[id] = rep
	}

	return reports, nil
}

// Visible returns the reports a mode shows, ordered by name then id. Alert
// mode drops students at or above AlertThreshold.
func Visible(reports map[string]StudentReport, mode Mode) []StudentReport {
	out := make([]StudentReport, 0, len(reports))
	for _, rep := range reports {
		if mode == ModeAlerts && rep.Percentage >= AlertThreshold {
			continue
		}
		out = append(out, rep)
	}
	slices.SortFunc(out, func(a, b StudentReport) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.StudentID, b.StudentID)
	})
	return out
}

// WorkingDays counts Monday to Friday dates in [from, to]. An inverted range
// has none.
func WorkingDays(from, to string) (int, error) {
	start, err := parseDate(from)
	if err != nil {
		return 0, err
	}
	end, err := parseDate(to)
	if err != nil {
		return 0, err
	}

	n := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(attendance.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}
