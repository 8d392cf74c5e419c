package ingest

import (
	"database/sql"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aramyan/yerevanair/internal/models"
)

// timeLayouts are tried in order when parsing timestamps. Values are
// kept timezone-naive: layouts carrying an offset are flattened to
// their local clock reading.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

// ToMeasurements converts a normalized table into typed rows tagged
// with their source (year, month). Unparsable timestamps become null
// rather than failing the row; rows are never mutated afterwards.
func ToMeasurements(t *RawTable, year, month int) []models.Measurement {
	sensorCol := findColumn(t.Header, "sensor_id", "sensor", "id")
	tempCol := findColumn(t.Header, "temperature", "temp")
	humCol := findColumn(t.Header, "humidity", "rh")

	rows := make([]models.Measurement, 0, len(t.Records))
	for _, rec := range t.Records {
		m := models.Measurement{Year: year, Month: month}
		if sensorCol >= 0 && sensorCol < len(rec) {
			m.SensorID = coerceSensorID(rec[sensorCol])
		}
		if t.PM25Col >= 0 && t.PM25Col < len(rec) {
			m.PM25 = parseNullFloat(rec[t.PM25Col])
		}
		if t.TimeCol >= 0 && t.TimeCol < len(rec) {
			if ts, ok := parseTimestamp(rec[t.TimeCol]); ok {
				m.MeasuredAt = sql.NullTime{Time: ts, Valid: true}
			}
		}
		if tempCol >= 0 && tempCol < len(rec) {
			m.Temperature = parseNullFloat(rec[tempCol])
		}
		if humCol >= 0 && humCol < len(rec) {
			m.Humidity = parseNullFloat(rec[humCol])
		}
		rows = append(rows, m)
	}
	return rows
}

// coerceSensorID handles ids arriving as "41", "41.0", or junk (0).
func coerceSensorID(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) {
		return int(f)
	}
	return 0
}

func parseNullFloat(s string) sql.NullFloat64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullFloat64{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		// Flatten to a naive clock reading.
		y, m, d := t.Date()
		hh, mm, ss := t.Clock()
		return time.Date(y, m, d, hh, mm, ss, 0, time.UTC), true
	}
	return time.Time{}, false
}
