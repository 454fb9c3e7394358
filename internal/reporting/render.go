package reporting

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/settings"
)

const notSpecified = "Not specified"

var reportTmpl = template.Must(template.New("reports").Funcs(template.FuncMap{
	"pct": func(p float64) string { return fmt.Sprintf("%.1f", p) },
}).Parse(`<div class="feedback-header">
<h3>Parent Feedback Reports ({{.PeriodLabel}})</h3>
<p>{{.From}} to {{.To}}{{if .Alerts}} - students below {{.Threshold}}% attendance{{end}}</p>
</div>
{{if not .Reports}}<p class="no-reports">{{if .Alerts}}No attendance alerts for this period.{{else}}No students found for this period.{{end}}</p>
{{end}}{{range .Reports}}<div class="student-report status-{{.Status}}">
<h4>{{.Name}} <span class="student-id">({{.StudentID}})</span></h4>
<p class="attendance-stat"><strong>{{pct .Percentage}}%</strong> attendance ({{.AttendanceDays}} of {{.TotalWorkingDays}} days)</p>
<p class="status">Status: {{.Status.Label}}</p>
{{if $.Detailed}}{{if .RecentRecords}}<ul class="recent">
{{range .RecentRecords}}<li>{{.DateKey}} - {{.Time}}</li>
{{end}}</ul>
{{else}}<p class="recent-none">No attendance recorded in this period.</p>
{{end}}{{end}}</div>
{{end}}<div class="report-footer">
<p>Teacher: {{.Teacher}} | Class: {{.Class}} | Generated: {{.Generated}}</p>
</div>
`))

// RenderInput is what RenderHTML needs besides the reports themselves.
type RenderInput struct {
	Mode     Mode
	Period   Period
	From, To string
	Settings settings.Settings
	Now      time.Time
}

// RenderHTML renders the report cards visible in in.Mode as an HTML
// fragment. Detailed mode lists each student's recent records.
func RenderHTML(reports map[string]StudentReport, in RenderInput) (string, error) {
	data := struct {
		PeriodLabel string
		From, To    string
		Alerts      bool
		Detailed    bool
		Threshold   float64
		Reports     []StudentReport
		Teacher     string
		Class       string
		Generated   string
	}{
		PeriodLabel: in.Period.Label(),
		From:        in.From,
		To:          in.To,
		Alerts:      in.Mode == ModeAlerts,
		Detailed:    in.Mode == ModeDetailed,
		Threshold:   AlertThreshold,
		Reports:     Visible(reports, in.Mode),
		Teacher:     orDefault(in.Settings.TeacherName),
		Class:       orDefault(in.Settings.ClassSubject),
		Generated:   in.Now.Format("2006-01-02"),
	}

	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render reports: %w", err)
	}
	return buf.String(), nil
}

func orDefault(s string) string {
	if s == "" {
		return notSpecified
	}
	return s
}
