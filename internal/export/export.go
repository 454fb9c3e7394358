package export

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/attendance"
	"github.com/dmitrijs2005/attendkeeper/internal/settings"
)

const (
	MimeCSV  = "text/csv"
	MimeJSON = "application/json"
	MimeHTML = "text/html"

	notSpecified = "Not specified"
	unknown      = "Unknown"

	// displayDateLayout is the date shown inside documents.
	displayDateLayout = "1/2/2006"
)

// Blob is a named document ready for delivery.
type Blob struct {
	Name     string
	MimeType string
	Content  []byte
}

// Metadata heads a daily JSON export.
type Metadata struct {
	Date          string `json:"date"`
	Teacher       string `json:"teacher"`
	ClassSubject  string `json:"classSubject"`
	TotalStudents int    `json:"totalStudents"`
	GeneratedAt   string `json:"generatedAt"`
}

// Report is the daily JSON export envelope.
type Report struct {
	Metadata   Metadata            `json:"metadata"`
	Attendance []attendance.Record `json:"attendance"`
}

// FullMetadata heads a full data export.
type FullMetadata struct {
	ExportDate   string `json:"exportDate"`
	Teacher      string `json:"teacher"`
	School       string `json:"school"`
	ClassSubject string `json:"classSubject"`
	TotalRecords int    `json:"totalRecords"`
}

// FullExport carries every record together with the settings in use.
type FullExport struct {
	Metadata   FullMetadata        `json:"metadata"`
	Attendance []attendance.Record `json:"attendance"`
	Settings   settings.Settings   `json:"settings"`
}

var csvHeader = []string{"Student ID", "Student Name", "Date", "Time", "Timestamp"}

// CSV writes a metadata block, a blank row, the header and one row per
// record. Every field is quoted.
func CSV(records []attendance.Record, st settings.Settings, now time.Time) Blob {
	rows := [][]string{
		{"Attendance Report"},
		{"Teacher:", or(st.TeacherName, notSpecified)},
		{"Class/Subject:", or(st.ClassSubject, notSpecified)},
		{"Date:", now.Format(displayDateLayout)},
		{"Total Students:", strconv.Itoa(len(records))},
		{""},
		csvHeader,
	}
	for _, r := range records {
		rows = append(rows, []string{r.StudentID, r.StudentName, r.DateKey, r.Time, r.Timestamp})
	}

	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, field := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quote(field))
		}
	}

	return Blob{
		Name:     fmt.Sprintf("attendance_%s.csv", attendance.DateKeyOf(now)),
		MimeType: MimeCSV,
		Content:  []byte(b.String()),
	}
}

// JSON wraps records in a Report envelope.
func JSON(records []attendance.Record, st settings.Settings, now time.Time) (Blob, error) {
	stamp := now.UTC().Format(attendance.TimestampLayout)
	rep := Report{
		Metadata: Metadata{
			Date:          stamp,
			Teacher:       or(st.TeacherName, unknown),
			ClassSubject:  or(st.ClassSubject, unknown),
			TotalStudents: len(records),
			GeneratedAt:   stamp,
		},
		Attendance: nonNil(records),
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return Blob{}, fmt.Errorf("encode report: %w", err)
	}
	return Blob{
		Name:     fmt.Sprintf("attendance_%s.json", attendance.DateKeyOf(now)),
		MimeType: MimeJSON,
		Content:  data,
	}, nil
}

// FullJSON exports every record with the settings and school metadata.
func FullJSON(records []attendance.Record, st settings.Settings, now time.Time) (Blob, error) {
	exp := FullExport{
		Metadata: FullMetadata{
			ExportDate:   now.UTC().Format(attendance.TimestampLayout),
			Teacher:      or(st.TeacherName, unknown),
			School:       or(st.SchoolName, unknown),
			ClassSubject: or(st.ClassSubject, unknown),
			TotalRecords: len(records),
		},
		Attendance: nonNil(records),
		Settings:   st,
	}

	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return Blob{}, fmt.Errorf("encode export: %w", err)
	}
	return Blob{
		Name:     fmt.Sprintf("attendance_export_%s.json", attendance.DateKeyOf(now)),
		MimeType: MimeJSON,
		Content:  data,
	}, nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func or(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func nonNil(records []attendance.Record) []attendance.Record {
	if records == nil {
		return []attendance.Record{}
	}
	return records
}
