package remote

import (
	"testing"

	"github.com/dmitrijs2005/attendkeeper/internal/attendance"
	"github.com/stretchr/testify/assert"
)

func TestCollectionPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Lincoln High", "schools/Lincoln_High/attendance"},
		{"St. Mary's #2", "schools/St__Mary_s__2/attendance"},
		{"Escuela Núñez", "schools/Escuela_N__ez/attendance"},
		{"Ørsted Skole, 5th B", "schools/_rsted_Skole__5th_B/attendance"},
		{"a/b", "schools/a_b/attendance"},
		{"Plain123", "schools/Plain123/attendance"},
		{"", "schools//attendance"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CollectionPath(tt.in), tt.in)
	}
}

func TestFromRecordAndBack(t *testing.T) {
	r := attendance.Record{StudentID: "S1", StudentName: "Ada", Timestamp: "2025-09-01T08:30:00.000Z", DateKey: "2025-09-01", Time: "8:30:00 AM"}

	doc := FromRecord(r, "device_1", "Ms. Park", "", "Lincoln High")
	assert.Equal(t, "Unknown", doc.ClassSubject)
	assert.Equal(t, "device_1", doc.DeviceID)
	assert.Equal(t, "Ms. Park", doc.TeacherName)
	assert.Equal(t, "Lincoln High", doc.SchoolName)

	back := doc.Record()
	r.Synced = true
	assert.Equal(t, r, back)
}
