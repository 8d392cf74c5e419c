package models

import (
	"database/sql"
	"time"
)

// MeasurementFile describes one monthly CSV export discovered in the
// measurements directory. Entries are immutable once constructed.
type MeasurementFile struct {
	Year      int
	Month     int
	Path      string
	SizeBytes int64
}

// Measurement is a single sensor reading after column normalization.
// PM25 and the environmental fields stay nullable until the quality
// filter has run; metadata fields are null until joined.
type Measurement struct {
	SensorID    int // 0 when the source row had no parseable sensor id
	MeasuredAt  sql.NullTime
	PM25        sql.NullFloat64
	Temperature sql.NullFloat64
	Humidity    sql.NullFloat64

	// Source file tag, set by the range loader.
	Year  int
	Month int

	// Sensor metadata, populated by the left join.
	Joined    bool
	StationID sql.NullString
	Latitude  sql.NullFloat64
	Longitude sql.NullFloat64
	Location  sql.NullString
}

// Sensor is one row of the static sensors.csv reference table.
type Sensor struct {
	SensorID  int
	StationID sql.NullString
	Latitude  sql.NullFloat64
	Longitude sql.NullFloat64
	Location  sql.NullString
}

// Reading is a live observation from the hourly feed. It shares the
// measurement shape so callers can merge live and historical data.
type Reading struct {
	SensorID    int
	PM25        float64
	Timestamp   time.Time
	Temperature sql.NullFloat64
	Humidity    sql.NullFloat64
}

// DailySummary is a per-sensor daily aggregate materialized in sqlite.
type DailySummary struct {
	Date        time.Time
	SensorID    int
	PM25Avg     float64
	PM25Min     float64
	PM25Max     float64
	SampleCount int
}
