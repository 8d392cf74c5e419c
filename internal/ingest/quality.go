package ingest

import (
	"sort"

	"github.com/aramyan/yerevanair/internal/metrics"
	"github.com/aramyan/yerevanair/internal/models"
)

const (
	// PM25Ceiling is the sensor-fault cutoff: readings at or above it
	// are discarded. Fixed, not statistically derived.
	PM25Ceiling = 1000.0

	// IQRMultiplier is the interquartile-range multiplier used by
	// FlagOutliers. Kept as a named constant because it was never
	// derived from a stated methodology.
	IQRMultiplier = 3.0
)

// FilterQuality removes rows that cannot represent a real PM2.5
// reading: null, negative, or at/above the sensor-fault ceiling.
// Survivors keep their relative order and all other fields.
func FilterQuality(rows []models.Measurement) []models.Measurement {
	out := make([]models.Measurement, 0, len(rows))
	for _, r := range rows {
		switch {
		case !r.PM25.Valid:
			metrics.RowsRejected.WithLabelValues("null").Inc()
		case r.PM25.Float64 < 0:
			metrics.RowsRejected.WithLabelValues("negative").Inc()
		case r.PM25.Float64 >= PM25Ceiling:
			metrics.RowsRejected.WithLabelValues("ceiling").Inc()
		default:
			out = append(out, r)
		}
	}
	return out
}

// FlagOutliers marks rows whose pm25 falls outside
// [Q1 - k*IQR, Q3 + k*IQR] over the valid readings in rows. Rows with
// null pm25 are never flagged. The result is index-aligned with rows.
func FlagOutliers(rows []models.Measurement) []bool {
	var values []float64
	for _, r := range rows {
		if r.PM25.Valid {
			values = append(values, r.PM25.Float64)
		}
	}
	flags := make([]bool, len(rows))
	if len(values) == 0 {
		return flags
	}

	sort.Float64s(values)
	q1 := percentile(values, 0.25)
	q3 := percentile(values, 0.75)
	iqr := q3 - q1
	lower := q1 - IQRMultiplier*iqr
	upper := q3 + IQRMultiplier*iqr

	for i, r := range rows {
		if r.PM25.Valid && (r.PM25.Float64 < lower || r.PM25.Float64 > upper) {
			flags[i] = true
		}
	}
	return flags
}

// percentile interpolates linearly between order statistics of a
// sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
