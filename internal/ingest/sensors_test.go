package ingest

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/aramyan/yerevanair/internal/models"
)

const sensorsCSV = `id,title,station_id,latitude,longitude
41,Avan,ST-041,40.2169,44.5752
7,Davtashen,ST-007,40.2295,44.4870
41,Avan duplicate,ST-099,0,0
53,Kentron,,40.1792,44.5152
abc,junk row,,,
`

func writeSensorsFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sensors.csv")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSensors(t *testing.T) {
	sensors, err := LoadSensors(writeSensorsFile(t, sensorsCSV))
	if err != nil {
		t.Fatalf("LoadSensors: %v", err)
	}
	if len(sensors) != 3 {
		t.Fatalf("got %d sensors, want 3", len(sensors))
	}

	byID := make(map[int]models.Sensor)
	for _, s := range sensors {
		byID[s.SensorID] = s
	}

	avan, ok := byID[41]
	if !ok {
		t.Fatal("sensor 41 missing")
	}
	if avan.Location.String != "Avan" {
		t.Errorf("duplicate id must keep the first row, got %q", avan.Location.String)
	}
	if avan.StationID.String != "ST-041" || avan.Latitude.Float64 != 40.2169 {
		t.Errorf("sensor 41 = %+v", avan)
	}

	kentron := byID[53]
	if kentron.StationID.Valid {
		t.Errorf("empty station id should be null, got %+v", kentron.StationID)
	}
}

func TestLoadSensorsNoIDColumn(t *testing.T) {
	_, err := LoadSensors(writeSensorsFile(t, "name,latitude\nAvan,40.2\n"))
	if err == nil {
		t.Fatal("expected error for metadata without an id column")
	}
}

func TestSensorCacheReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sensors.csv")
	if err := os.WriteFile(path, []byte("id,title\n41,Avan\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cache := NewSensorCache(path)
	sensors, err := cache.Sensors()
	if err != nil {
		t.Fatal(err)
	}
	if len(sensors) != 1 {
		t.Fatalf("got %d sensors, want 1", len(sensors))
	}

	// The cache must not notice file changes until told to.
	if err := os.WriteFile(path, []byte("id,title\n41,Avan\n7,Davtashen\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sensors, err = cache.Sensors()
	if err != nil {
		t.Fatal(err)
	}
	if len(sensors) != 1 {
		t.Fatalf("cache reloaded implicitly: got %d sensors", len(sensors))
	}

	if err := cache.Reload(); err != nil {
		t.Fatal(err)
	}
	sensors, err = cache.Sensors()
	if err != nil {
		t.Fatal(err)
	}
	if len(sensors) != 2 {
		t.Fatalf("after Reload: got %d sensors, want 2", len(sensors))
	}
}

func TestJoinMetadata(t *testing.T) {
	byID := map[int]models.Sensor{
		41: {
			SensorID:  41,
			StationID: sql.NullString{String: "ST-041", Valid: true},
			Location:  sql.NullString{String: "Avan", Valid: true},
			Latitude:  sql.NullFloat64{Float64: 40.2169, Valid: true},
		},
	}
	rows := []models.Measurement{
		{SensorID: 41},
		{SensorID: 99},
	}

	got := JoinMetadata(rows, byID)
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2 (left join keeps unmatched)", len(got))
	}
	if !got[0].Joined || got[0].Location.String != "Avan" || got[0].StationID.String != "ST-041" {
		t.Errorf("matched row = %+v", got[0])
	}
	if got[1].Joined || got[1].Location.Valid || got[1].StationID.Valid {
		t.Errorf("unmatched row should carry nulls, got %+v", got[1])
	}
	if rows[0].Joined {
		t.Error("input slice mutated")
	}
}
