package ingest

import "strings"

// pm25Exact is the priority list of exact PM2.5 column names, tried in
// order before any fuzzy matching.
var pm25Exact = []string{"pm2.5", "pm2.5_corrected", "pm25"}

// pm25Substrings are the fuzzy candidates scanned when no exact name
// matches. A column whose name also contains "10" is never matched, to
// avoid picking up a PM10 column.
var pm25Substrings = []string{"pm25", "pm2.5", "pm2_5"}

// timeCandidates are the column names checked, in order, for the
// timestamp column.
var timeCandidates = []string{"timestamp", "date", "datetime", "time"}

// NormalizeColumns locates the PM2.5 column, renames it to the
// canonical "pm25", and records the timestamp column index. It is
// idempotent: a table already carrying a pm25 column is unchanged.
// Returns a ColumnNotFoundError when no candidate matches.
func NormalizeColumns(t *RawTable) error {
	idx := findPM25Column(t.Header)
	if idx < 0 {
		return &ColumnNotFoundError{Columns: append([]string(nil), t.Header...)}
	}
	t.Header[idx] = "pm25"
	t.PM25Col = idx
	t.TimeCol = findTimeColumn(t.Header)
	return nil
}

func findPM25Column(header []string) int {
	for _, cand := range pm25Exact {
		for i, col := range header {
			if strings.ToLower(strings.TrimSpace(col)) == cand {
				return i
			}
		}
	}
	for i, col := range header {
		c := strings.ToLower(strings.TrimSpace(col))
		if strings.Contains(c, "10") {
			continue
		}
		for _, sub := range pm25Substrings {
			if strings.Contains(c, sub) {
				return i
			}
		}
	}
	return -1
}

func findTimeColumn(header []string) int {
	for _, cand := range timeCandidates {
		for i, col := range header {
			if strings.ToLower(strings.TrimSpace(col)) == cand {
				return i
			}
		}
	}
	return -1
}

// findColumn returns the index of the first header entry matching any
// of the given lowercase names, or -1.
func findColumn(header []string, names ...string) int {
	for _, name := range names {
		for i, col := range header {
			if strings.ToLower(strings.TrimSpace(col)) == name {
				return i
			}
		}
	}
	return -1
}
