package reporting

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/attendance"
)

var ErrInvalidPeriod = errors.New("invalid report period")

type Period string

const (
	PeriodToday  Period = "today"
	PeriodWeek   Period = "week"
	PeriodMonth  Period = "month"
	PeriodCustom Period = "custom"
)

func (p Period) Label() string {
	switch p {
	case PeriodToday:
		return "Today"
	case PeriodWeek:
		return "This Week"
	case PeriodMonth:
		return "This Month"
	case PeriodCustom:
		return "Custom Period"
	default:
		return "Selected Period"
	}
}

// PeriodRange resolves a preset to date keys relative to now, in now's
// location. Week reaches back seven days and month one calendar month, both
// inclusive of today. Custom returns customFrom and customTo after checking
// them.
func PeriodRange(p Period, now time.Time, customFrom, customTo string) (from, to string, err error) {
	today := attendance.DateKeyOf(now)
	switch p {
	case PeriodToday:
		return today, today, nil
	case PeriodWeek:
		return attendance.DateKeyOf(now.AddDate(0, 0, -7)), today, nil
	case PeriodMonth:
		return attendance.DateKeyOf(now.AddDate(0, -1, 0)), today, nil
	case PeriodCustom:
		if customFrom == "" || customTo == "" {
			return "", "", fmt.Errorf("%w: custom range needs both dates", ErrInvalidPeriod)
		}
		if _, err := parseDate(customFrom); err != nil {
			return "", "", err
		}
		if _, err := parseDate(customTo); err != nil {
			return "", "", err
		}
		return customFrom, customTo, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPeriod, p)
	}
}
