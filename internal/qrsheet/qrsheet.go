// Package qrsheet generates student ID-card QR codes: one PNG per student
// and a printable HTML sheet with all of them.
package qrsheet

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/dmitrijs2005/attendkeeper/internal/attendance"
	"github.com/dmitrijs2005/attendkeeper/internal/export"
	"github.com/dmitrijs2005/attendkeeper/internal/scan"
)

const (
	DefaultSize = 300
	MimePNG     = "image/png"
)

var ErrNoEntries = errors.New("no student entries")

// Entry is one "id,name" line of batch input.
type Entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Card is an encoded QR code for one student.
type Card struct {
	Entry
	Data string
	PNG  []byte
}

// ParseBatch reads one "id,name" entry per line. Blank lines are ignored;
// lines without an id are counted as skipped. A missing name becomes the
// default display name.
func ParseBatch(text string) (entries []Entry, skipped int) {
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		id, name, _ := strings.Cut(line, ",")
		id = strings.TrimSpace(id)
		if id == "" {
			skipped++
			continue
		}
		// further commas belong to no field
		name, _, _ = strings.Cut(name, ",")
		name = strings.TrimSpace(name)
		if name == "" {
			name = scan.DefaultName(id)
		}
		entries = append(entries, Entry{ID: id, Name: name})
	}
	return entries, skipped
}

// Generate encodes each entry as a {"id","name"} JSON payload, which
// scan.Decode reads back as a structured payload.
func Generate(entries []Entry, size int) ([]Card, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	if size <= 0 {
		size = DefaultSize
	}

	cards := make([]Card, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("encode payload %s: %w", e.ID, err)
		}
		png, err := qrcode.Encode(string(data), qrcode.Medium, size)
		if err != nil {
			return nil, fmt.Errorf("qr for %s: %w", e.ID, err)
		}
		cards = append(cards, Card{Entry: e, Data: string(data), PNG: png})
	}
	return cards, nil
}

// PNGBlob names a card image student-qr-<id>.png.
func PNGBlob(c Card) export.Blob {
	return export.Blob{
		Name:     "student-qr-" + fileSafe(c.ID) + ".png",
		MimeType: MimePNG,
		Content:  c.PNG,
	}
}

var sheetTmpl = template.Must(template.New("sheet").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Student QR Codes - Print Sheet</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; background: white; }
.print-header { text-align: center; margin-bottom: 30px; border-bottom: 2px solid #333; padding-bottom: 20px; }
.print-grid { display: grid; grid-template-columns: repeat(4, 1fr); gap: 20px; margin: 30px 0; }
.print-qr-item { text-align: center; padding: 15px; border: 1px solid #000; border-radius: 8px; page-break-inside: avoid; }
.print-qr-item h4 { margin: 5px 0; font-size: 14px; color: #333; }
.print-qr-item p { margin: 3px 0; font-size: 12px; color: #666; }
.print-qr-item img { width: 120px; height: 120px; margin: 8px 0; }
@media print { body { margin: 0; } }
</style>
</head>
<body>
<div class="print-header">
<h1>Student QR Codes - ID Cards</h1>
<p>Generated on: {{.Generated}}</p>
<p>Total Students: {{len .Cards}}</p>
</div>
<div class="print-grid">
{{range .Cards}}<div class="print-qr-item">
<h4>{{.Name}}</h4>
<p>ID: {{.ID}}</p>
<img src="{{.Src}}" alt="QR Code for {{.ID}}">
</div>
{{end}}</div>
</body>
</html>
`))

// Sheet renders every card into one printable page with inline images.
func Sheet(cards []Card, now time.Time) (export.Blob, error) {
	type item struct {
		ID, Name string
		Src      template.URL
	}
	items := make([]item, 0, len(cards))
	for _, c := range cards {
		items = append(items, item{
			ID:   c.ID,
			Name: c.Name,
			Src:  template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(c.PNG)),
		})
	}

	var buf bytes.Buffer
	err := sheetTmpl.Execute(&buf, struct {
		Generated string
		Cards     []item
	}{now.Format("1/2/2006"), items})
	if err != nil {
		return export.Blob{}, fmt.Errorf("render sheet: %w", err)
	}

	return export.Blob{
		Name:     fmt.Sprintf("student_qr_sheet_%s.html", attendance.DateKeyOf(now)),
		MimeType: export.MimeHTML,
		Content:  buf.Bytes(),
	}, nil
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}
