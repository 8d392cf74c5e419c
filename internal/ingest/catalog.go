package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/aramyan/yerevanair/internal/models"
)

const (
	filePrefix = "measurements_"
	fileSuffix = ".csv"
)

// ListMeasurementFiles scans dir for monthly exports named
// measurements_<YYYY>_<MM>.csv and returns them sorted by (year, month).
// Filenames that do not match the convention are skipped, never an
// error. A missing directory fails with ErrDirectoryNotFound; an
// existing directory with no matching files returns an empty slice.
func ListMeasurementFiles(dir string) ([]models.MeasurementFile, error) {
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var files []models.MeasurementFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		year, month, ok := parseFilename(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, models.MeasurementFile{
			Year:      year,
			Month:     month,
			Path:      filepath.Join(dir, entry.Name()),
			SizeBytes: info.Size(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Year != files[j].Year {
			return files[i].Year < files[j].Year
		}
		return files[i].Month < files[j].Month
	})
	return files, nil
}

// parseFilename extracts (year, month) from measurements_<YYYY>_<MM>.csv.
// The middle section must split into exactly two numeric parts and the
// month must be a calendar month.
func parseFilename(name string) (year, month int, ok bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return 0, 0, false
	}
	middle := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	parts := strings.Split(middle, "_")
	if len(parts) != 2 {
		return 0, 0, false
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	if month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}
