package ingest

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/aramyan/yerevanair/internal/metrics"
	"github.com/aramyan/yerevanair/internal/models"
)

// Loader reads measurement archives from a data directory laid out as
//
//	<dataDir>/measurements/measurements_YYYY_MM.csv
//	<dataDir>/sensors.csv
type Loader struct {
	measurementsDir string
	sensors         *SensorCache
}

func NewLoader(dataDir string) *Loader {
	return &Loader{
		measurementsDir: filepath.Join(dataDir, "measurements"),
		sensors:         NewSensorCache(filepath.Join(dataDir, "sensors.csv")),
	}
}

// Sensors exposes the loader's metadata cache.
func (l *Loader) Sensors() *SensorCache { return l.sensors }

// RangeOptions selects which archive files and rows LoadRange reads.
// EndYear of zero means StartYear. Empty Months and Sensors mean no
// filter. MaxRowsPerFile of zero means unlimited.
type RangeOptions struct {
	StartYear      int
	EndYear        int
	Months         []int
	Sensors        []int
	MaxRowsPerFile int
}

func (o RangeOptions) endYear() int {
	if o.EndYear == 0 {
		return o.StartYear
	}
	return o.EndYear
}

func (o RangeOptions) wantsMonth(m int) bool {
	if len(o.Months) == 0 {
		return true
	}
	for _, want := range o.Months {
		if want == m {
			return true
		}
	}
	return false
}

func (o RangeOptions) wantsSensor(id int) bool {
	if len(o.Sensors) == 0 {
		return true
	}
	for _, want := range o.Sensors {
		if want == id {
			return true
		}
	}
	return false
}

// LoadRange reads every archive file matching opts and concatenates
// their rows in (year, month) order. A file that fails to parse is
// logged and skipped so one corrupt month cannot sink a multi-year
// load; a missing PM2.5 column is structural and aborts the load.
func (l *Loader) LoadRange(opts RangeOptions) ([]models.Measurement, error) {
	files, err := ListMeasurementFiles(l.measurementsDir)
	if err != nil {
		return nil, err
	}

	var selected []models.MeasurementFile
	for _, f := range files {
		if f.Year < opts.StartYear || f.Year > opts.endYear() {
			continue
		}
		if !opts.wantsMonth(f.Month) {
			continue
		}
		selected = append(selected, f)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: years %d-%d", ErrNoMatchingFiles, opts.StartYear, opts.endYear())
	}

	var out []models.Measurement
	for _, f := range selected {
		table, err := ParseFile(f.Path)
		if err != nil {
			var ue *UnparsableFileError
			if errors.As(err, &ue) {
				log.Printf("loader: skipping %s: %v", f.Path, err)
				continue
			}
			return nil, err
		}
		if err := NormalizeColumns(table); err != nil {
			return nil, fmt.Errorf("loader: %s: %w", f.Path, err)
		}

		rows := ToMeasurements(table, f.Year, f.Month)
		if opts.MaxRowsPerFile > 0 && len(rows) > opts.MaxRowsPerFile {
			rows = rows[:opts.MaxRowsPerFile]
		}
		for _, r := range rows {
			if !opts.wantsSensor(r.SensorID) {
				continue
			}
			out = append(out, r)
		}
		metrics.RowsLoaded.Add(float64(len(rows)))
	}
	return out, nil
}

// LoadPM25 is the high-level entry point: load a range, drop rows that
// fail quality checks, and optionally annotate with sensor metadata.
func (l *Loader) LoadPM25(opts RangeOptions, includeMetadata bool) ([]models.Measurement, error) {
	rows, err := l.LoadRange(opts)
	if err != nil {
		return nil, err
	}
	rows = FilterQuality(rows)
	if includeMetadata {
		byID, err := l.sensors.ByID()
		if err != nil {
			return nil, err
		}
		rows = JoinMetadata(rows, byID)
	}
	return rows, nil
}
