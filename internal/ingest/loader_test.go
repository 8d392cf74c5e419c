package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeArchive lays out a data directory the way the archive ships it:
// a measurements/ subdirectory of monthly exports plus sensors.csv.
func writeArchive(t *testing.T, months map[string]string) string {
	t.Helper()
	dataDir := t.TempDir()
	mdir := filepath.Join(dataDir, "measurements")
	if err := os.Mkdir(mdir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, contents := range months {
		if err := os.WriteFile(filepath.Join(mdir, name), []byte(contents), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	sensors := "id,title,station_id,latitude,longitude\n41,Avan,ST-041,40.2169,44.5752\n7,Davtashen,ST-007,40.2295,44.4870\n"
	if err := os.WriteFile(filepath.Join(dataDir, "sensors.csv"), []byte(sensors), 0o644); err != nil {
		t.Fatal(err)
	}
	return dataDir
}

func monthCSV(rows string) string {
	return "SET\nsensor_id,timestamp,pm2.5\n" + rows
}

func TestLoadRange(t *testing.T) {
	dataDir := writeArchive(t, map[string]string{
		"measurements_2025_01.csv": monthCSV("41,2025-01-10 08:00:00,12.5\n7,2025-01-10 08:00:00,30.2\n"),
		"measurements_2025_02.csv": monthCSV("41,2025-02-10 08:00:00,18.0\n"),
		"measurements_2024_12.csv": monthCSV("41,2024-12-10 08:00:00,55.0\n"),
	})
	loader := NewLoader(dataDir)

	rows, err := loader.LoadRange(RangeOptions{StartYear: 2025})
	if err != nil {
		t.Fatalf("LoadRange: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	// Concatenation follows (year, month) order.
	if rows[0].Month != 1 || rows[2].Month != 2 {
		t.Errorf("rows out of order: months %d,%d,%d", rows[0].Month, rows[1].Month, rows[2].Month)
	}
	if rows[0].Year != 2025 {
		t.Errorf("rows[0].Year = %d", rows[0].Year)
	}
}

func TestLoadRangeFilters(t *testing.T) {
	dataDir := writeArchive(t, map[string]string{
		"measurements_2025_01.csv": monthCSV("41,2025-01-10 08:00:00,12.5\n7,2025-01-10 08:00:00,30.2\n"),
		"measurements_2025_02.csv": monthCSV("41,2025-02-10 08:00:00,18.0\n"),
	})
	loader := NewLoader(dataDir)

	t.Run("month filter", func(t *testing.T) {
		rows, err := loader.LoadRange(RangeOptions{StartYear: 2025, Months: []int{2}})
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 1 || rows[0].Month != 2 {
			t.Errorf("rows = %+v", rows)
		}
	})

	t.Run("sensor filter", func(t *testing.T) {
		rows, err := loader.LoadRange(RangeOptions{StartYear: 2025, Sensors: []int{7}})
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 1 || rows[0].SensorID != 7 {
			t.Errorf("rows = %+v", rows)
		}
	})

	t.Run("row cap", func(t *testing.T) {
		rows, err := loader.LoadRange(RangeOptions{StartYear: 2025, Months: []int{1}, MaxRowsPerFile: 1})
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 1 {
			t.Errorf("got %d rows, want 1", len(rows))
		}
	})
}

func TestLoadRangeNoMatchingFiles(t *testing.T) {
	dataDir := writeArchive(t, map[string]string{
		"measurements_2025_01.csv": monthCSV("41,2025-01-10 08:00:00,12.5\n"),
	})
	loader := NewLoader(dataDir)

	_, err := loader.LoadRange(RangeOptions{StartYear: 2019})
	if !errors.Is(err, ErrNoMatchingFiles) {
		t.Fatalf("err = %v, want ErrNoMatchingFiles", err)
	}
}

func TestLoadRangeMissingDirectory(t *testing.T) {
	loader := NewLoader(t.TempDir())
	_, err := loader.LoadRange(RangeOptions{StartYear: 2025})
	if !errors.Is(err, ErrDirectoryNotFound) {
		t.Fatalf("err = %v, want ErrDirectoryNotFound", err)
	}
}

func TestLoadRangeSkipsCorruptFile(t *testing.T) {
	dataDir := writeArchive(t, map[string]string{
		"measurements_2025_01.csv": monthCSV("41,2025-01-10 08:00:00,12.5\n"),
		"measurements_2025_02.csv": "", // fails every parse strategy
		"measurements_2025_03.csv": monthCSV("7,2025-03-10 08:00:00,9.9\n"),
	})
	loader := NewLoader(dataDir)

	rows, err := loader.LoadRange(RangeOptions{StartYear: 2025})
	if err != nil {
		t.Fatalf("one corrupt month must not fail the load: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Month != 1 || rows[1].Month != 3 {
		t.Errorf("months = %d,%d", rows[0].Month, rows[1].Month)
	}
}

func TestLoadRangeMissingColumnFails(t *testing.T) {
	dataDir := writeArchive(t, map[string]string{
		"measurements_2025_01.csv": "SET\nsensor_id,timestamp,humidity\n41,2025-01-10 08:00:00,55\n",
	})
	loader := NewLoader(dataDir)

	_, err := loader.LoadRange(RangeOptions{StartYear: 2025})
	var cnf *ColumnNotFoundError
	if !errors.As(err, &cnf) {
		t.Fatalf("err = %v, want ColumnNotFoundError", err)
	}
}

func TestLoadPM25(t *testing.T) {
	dataDir := writeArchive(t, map[string]string{
		"measurements_2025_01.csv": monthCSV(
			"41,2025-01-10 08:00:00,12.5\n" +
				"41,2025-01-10 09:00:00,-4\n" +
				"99,2025-01-10 08:00:00,2000\n" +
				"99,2025-01-10 09:00:00,20.1\n"),
	})
	loader := NewLoader(dataDir)

	rows, err := loader.LoadPM25(RangeOptions{StartYear: 2025}, true)
	if err != nil {
		t.Fatalf("LoadPM25: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 after quality filtering", len(rows))
	}
	if !rows[0].Joined || rows[0].Location.String != "Avan" {
		t.Errorf("sensor 41 not joined: %+v", rows[0])
	}
	if rows[1].Joined || rows[1].Location.Valid {
		t.Errorf("unknown sensor 99 must survive with null metadata: %+v", rows[1])
	}
}
