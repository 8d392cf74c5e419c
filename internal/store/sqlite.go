package store

import (
	"database/sql"
	"time"

	"github.com/aramyan/yerevanair/internal/models"
)

// minSamplesPerDay is how many hourly readings a (sensor, day) pair
// needs before its daily summary is trustworthy.
const minSamplesPerDay = 18

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) UpsertSensor(sn models.Sensor) error {
	_, err := s.db.Exec(`
		INSERT INTO sensors (sensor_id, station_id, latitude, longitude, location)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(sensor_id) DO UPDATE SET
			station_id = excluded.station_id,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			location = excluded.location
	`, sn.SensorID, sn.StationID, sn.Latitude, sn.Longitude, sn.Location)
	return err
}

func (s *Store) GetSensors() ([]models.Sensor, error) {
	rows, err := s.db.Query(`SELECT sensor_id, station_id, latitude, longitude, location FROM sensors ORDER BY sensor_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sensors []models.Sensor
	for rows.Next() {
		var sn models.Sensor
		if err := rows.Scan(&sn.SensorID, &sn.StationID, &sn.Latitude, &sn.Longitude, &sn.Location); err != nil {
			return nil, err
		}
		sensors = append(sensors, sn)
	}
	return sensors, rows.Err()
}

// InsertMeasurement stores one reading; duplicates on
// (sensor_id, measured_at) are silently skipped so re-imports are safe.
// Returns whether a row was written.
func (s *Store) InsertMeasurement(m models.Measurement) (bool, error) {
	res, err := s.db.Exec(`
		INSERT INTO measurements (sensor_id, measured_at, pm25, temperature, humidity, source_year, source_month)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sensor_id, measured_at) DO NOTHING
	`, m.SensorID, m.MeasuredAt, m.PM25, m.Temperature, m.Humidity, m.Year, m.Month)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertMeasurements stores a batch in one transaction and returns how
// many rows were new. Rows without a timestamp are skipped: the unique
// key needs one.
func (s *Store) InsertMeasurements(ms []models.Measurement) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO measurements (sensor_id, measured_at, pm25, temperature, humidity, source_year, source_month)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sensor_id, measured_at) DO NOTHING
	`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	stored := 0
	for _, m := range ms {
		if !m.MeasuredAt.Valid {
			continue
		}
		res, err := stmt.Exec(m.SensorID, m.MeasuredAt, m.PM25, m.Temperature, m.Humidity, m.Year, m.Month)
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			stored++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return stored, nil
}

// GetMeasurements returns readings for one sensor in [from, to),
// oldest first. A zero sensorID matches all sensors.
func (s *Store) GetMeasurements(sensorID int, from, to time.Time) ([]models.Measurement, error) {
	query := `
		SELECT sensor_id, measured_at, pm25, temperature, humidity, source_year, source_month
		FROM measurements
		WHERE measured_at >= ? AND measured_at < ?`
	args := []any{from, to}
	if sensorID != 0 {
		query += ` AND sensor_id = ?`
		args = append(args, sensorID)
	}
	query += ` ORDER BY measured_at`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ms []models.Measurement
	for rows.Next() {
		var m models.Measurement
		if err := rows.Scan(&m.SensorID, &m.MeasuredAt, &m.PM25, &m.Temperature, &m.Humidity, &m.Year, &m.Month); err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	return ms, rows.Err()
}

// RefreshDailySummaries recomputes every per-sensor daily aggregate
// from the raw measurements. Days with too few samples are left out;
// a previously summarized day that has since lost rows is removed.
func (s *Store) RefreshDailySummaries() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM daily_summaries`); err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO daily_summaries (date, sensor_id, pm25_avg, pm25_min, pm25_max, sample_count)
		SELECT date(measured_at), sensor_id, AVG(pm25), MIN(pm25), MAX(pm25), COUNT(pm25)
		FROM measurements
		WHERE pm25 IS NOT NULL
		GROUP BY date(measured_at), sensor_id
		HAVING COUNT(pm25) >= ?
	`, minSamplesPerDay)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// GetDailySummaries returns daily aggregates for one sensor ordered by
// date. A zero sensorID matches all sensors.
func (s *Store) GetDailySummaries(sensorID int, from, to time.Time) ([]models.DailySummary, error) {
	query := `
		SELECT date, sensor_id, pm25_avg, pm25_min, pm25_max, sample_count
		FROM daily_summaries
		WHERE date >= date(?) AND date < date(?)`
	args := []any{from, to}
	if sensorID != 0 {
		query += ` AND sensor_id = ?`
		args = append(args, sensorID)
	}
	query += ` ORDER BY date, sensor_id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.DailySummary
	for rows.Next() {
		var d models.DailySummary
		var date string
		if err := rows.Scan(&date, &d.SensorID, &d.PM25Avg, &d.PM25Min, &d.PM25Max, &d.SampleCount); err != nil {
			return nil, err
		}
		if t, err := time.Parse("2006-01-02", date); err == nil {
			d.Date = t
		}
		summaries = append(summaries, d)
	}
	return summaries, rows.Err()
}
