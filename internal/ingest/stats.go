package ingest

import (
	"sort"
	"time"

	"github.com/aramyan/yerevanair/internal/models"
)

// minDailySamples is the minimum readings a day needs before its
// average is reported. Hourly sensors produce 24; days with large gaps
// are dropped rather than skewed.
const minDailySamples = 18

// DailyAverages reduces measurements to per-day aggregates across all
// sensors in rows, sorted by date. Rows without a timestamp or PM2.5
// value are ignored.
func DailyAverages(rows []models.Measurement) []models.DailySummary {
	type acc struct {
		sum      float64
		min, max float64
		n        int
	}
	byDay := make(map[time.Time]*acc)

	for _, m := range rows {
		if !m.MeasuredAt.Valid || !m.PM25.Valid {
			continue
		}
		day := m.MeasuredAt.Time.Truncate(24 * time.Hour)
		a, ok := byDay[day]
		if !ok {
			a = &acc{min: m.PM25.Float64, max: m.PM25.Float64}
			byDay[day] = a
		}
		v := m.PM25.Float64
		a.sum += v
		a.n++
		if v < a.min {
			a.min = v
		}
		if v > a.max {
			a.max = v
		}
	}

	var out []models.DailySummary
	for day, a := range byDay {
		if a.n < minDailySamples {
			continue
		}
		out = append(out, models.DailySummary{
			Date:        day,
			PM25Avg:     a.sum / float64(a.n),
			PM25Min:     a.min,
			PM25Max:     a.max,
			SampleCount: a.n,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
