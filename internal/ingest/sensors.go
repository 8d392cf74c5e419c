package ingest

import (
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/aramyan/yerevanair/internal/models"
)

// LoadSensors reads the sensor metadata CSV. The file uses the
// archive's own column names (id, title) which are mapped onto the
// canonical sensor fields. Rows whose id repeats keep the first
// occurrence.
func LoadSensors(path string) ([]models.Sensor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: read sensor metadata: %w", err)
	}
	table, err := ParseBytes(path, data)
	if err != nil {
		return nil, err
	}

	idCol := findColumn(table.Header, "sensor_id", "id")
	if idCol < 0 {
		return nil, &ColumnNotFoundError{Columns: table.Header}
	}
	stationCol := findColumn(table.Header, "station_id", "station")
	latCol := findColumn(table.Header, "latitude", "lat")
	lonCol := findColumn(table.Header, "longitude", "lon", "lng")
	locCol := findColumn(table.Header, "title", "location", "location_name", "district", "district_slug")

	seen := make(map[int]bool)
	var sensors []models.Sensor
	for _, rec := range table.Records {
		if idCol >= len(rec) {
			continue
		}
		id := coerceSensorID(rec[idCol])
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true

		s := models.Sensor{SensorID: id}
		if stationCol >= 0 && stationCol < len(rec) {
			if v := strings.TrimSpace(rec[stationCol]); v != "" {
				s.StationID = sql.NullString{String: v, Valid: true}
			}
		}
		if latCol >= 0 && latCol < len(rec) {
			s.Latitude = parseNullFloat(rec[latCol])
		}
		if lonCol >= 0 && lonCol < len(rec) {
			s.Longitude = parseNullFloat(rec[lonCol])
		}
		if locCol >= 0 && locCol < len(rec) {
			if v := strings.TrimSpace(rec[locCol]); v != "" {
				s.Location = sql.NullString{String: v, Valid: true}
			}
		}
		sensors = append(sensors, s)
	}
	sort.Slice(sensors, func(i, j int) bool { return sensors[i].SensorID < sensors[j].SensorID })
	return sensors, nil
}

// SensorCache holds sensor metadata loaded once and reused across
// joins. There is no expiry: metadata changes only when the archive
// ships a new sensors file, so callers invalidate with Reload.
type SensorCache struct {
	path string

	mu     sync.Mutex
	byID   map[int]models.Sensor
	list   []models.Sensor
	loaded bool
}

func NewSensorCache(path string) *SensorCache {
	return &SensorCache{path: path}
}

// Sensors returns all known sensors, loading the file on first use.
func (c *SensorCache) Sensors() ([]models.Sensor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLocked(); err != nil {
		return nil, err
	}
	return c.list, nil
}

// ByID returns the sensor lookup map, loading the file on first use.
func (c *SensorCache) ByID() (map[int]models.Sensor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLocked(); err != nil {
		return nil, err
	}
	return c.byID, nil
}

// Reload discards the cached metadata and re-reads the file.
func (c *SensorCache) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	return c.ensureLocked()
}

func (c *SensorCache) ensureLocked() error {
	if c.loaded {
		return nil
	}
	sensors, err := LoadSensors(c.path)
	if err != nil {
		return err
	}
	byID := make(map[int]models.Sensor, len(sensors))
	for _, s := range sensors {
		byID[s.SensorID] = s
	}
	c.list = sensors
	c.byID = byID
	c.loaded = true
	return nil
}

// JoinMetadata annotates measurements with sensor metadata by sensor
// id. Measurements without a matching sensor are kept with null
// metadata fields, as in a left join.
func JoinMetadata(rows []models.Measurement, byID map[int]models.Sensor) []models.Measurement {
	out := make([]models.Measurement, len(rows))
	for i, r := range rows {
		if s, ok := byID[r.SensorID]; ok {
			r.Joined = true
			r.StationID = s.StationID
			r.Latitude = s.Latitude
			r.Longitude = s.Longitude
			r.Location = s.Location
		}
		out[i] = r
	}
	return out
}
