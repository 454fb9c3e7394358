package attendance

// DaySummary is the headline of one day: how many were present and when the
// first and last badges were scanned. FirstScan and LastScan are empty when
// Count is zero.
type DaySummary struct {
	DateKey   string
	Count     int
	FirstScan string
	LastScan  string
}

// Summarize builds the DaySummary of dateKey from records.
func Summarize(records []Record, dateKey string) DaySummary {
	s := DaySummary{DateKey: dateKey}
	var first, last Record
	for _, r := range records {
		if r.DateKey != dateKey {
			continue
		}
		if s.Count == 0 || r.Timestamp < first.Timestamp {
			first = r
		}
		if s.Count == 0 || r.Timestamp > last.Timestamp {
			last = r
		}
		s.Count++
	}
	if s.Count > 0 {
		s.FirstScan = first.Time
		s.LastScan = last.Time
	}
	return s
}
