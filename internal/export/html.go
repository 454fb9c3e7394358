package export

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/attendance"
	"github.com/dmitrijs2005/attendkeeper/internal/settings"
)

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Parent Feedback Reports - {{.Class}}</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; }
.header { text-align: center; margin-bottom: 30px; }
.student-report { margin-bottom: 20px; padding: 15px; border: 1px solid #ddd; border-radius: 8px; }
.status-excellent { color: #4CAF50; }
.status-good { color: #2196F3; }
.status-satisfactory { color: #FF9800; }
.status-needs-improvement { color: #FF5722; }
.status-poor { color: #f44336; }
</style>
</head>
<body>
<div class="header">
<h1>Parent Feedback Reports</h1>
<p><strong>School:</strong> {{.School}}</p>
<p><strong>Teacher:</strong> {{.Teacher}}</p>
<p><strong>Class:</strong> {{.Class}}</p>
<p><strong>Generated:</strong> {{.Generated}}</p>
</div>
{{.Reports}}
</body>
</html>
`))

// HTMLReport wraps rendered report markup in a standalone page. markup is
// trusted and inserted as is.
func HTMLReport(markup string, st settings.Settings, now time.Time) (Blob, error) {
	data := struct {
		School, Teacher, Class, Generated string
		Reports                           template.HTML
	}{
		School:    or(st.SchoolName, notSpecified),
		Teacher:   or(st.TeacherName, notSpecified),
		Class:     or(st.ClassSubject, notSpecified),
		Generated: now.Format(displayDateLayout),
		Reports:   template.HTML(markup),
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return Blob{}, fmt.Errorf("render page: %w", err)
	}
	return Blob{
		Name:     fmt.Sprintf("parent_feedback_reports_%s.html", attendance.DateKeyOf(now)),
		MimeType: MimeHTML,
		Content:  buf.Bytes(),
	}, nil
}
