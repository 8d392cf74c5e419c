package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aramyan/yerevanair/internal/health"
	"github.com/aramyan/yerevanair/internal/ingest"
	"github.com/aramyan/yerevanair/internal/models"
	"github.com/aramyan/yerevanair/internal/plot"
)

type healthResponse struct {
	Status      string     `json:"status"`
	SensorCount int        `json:"sensor_count"`
	LastImport  *time.Time `json:"last_import,omitempty"`
	Errors      []string   `json:"errors,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}

	sensors, err := s.store.GetSensors()
	if err != nil {
		resp.Status = "error"
		resp.Errors = append(resp.Errors, err.Error())
	}
	resp.SensorCount = len(sensors)

	if run, err := s.store.LastImportRun(); err != nil {
		resp.Status = "error"
		resp.Errors = append(resp.Errors, err.Error())
	} else if run != nil {
		resp.LastImport = &run.StartedAt
		// An unfinished run is in flight, not a failure.
		if run.FinishedAt.Valid && !run.Success {
			resp.Status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if resp.Status == "error" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("health: write response: %v", err)
	}
}

type currentReading struct {
	SensorID  int       `json:"sensor_id"`
	PM25      float64   `json:"pm25"`
	Timestamp time.Time `json:"timestamp"`
	RiskLevel string    `json:"risk_level"`
	Advice    string    `json:"advice"`
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	readings := s.scraper.CurrentReadings()

	if q := r.URL.Query().Get("sensor"); q != "" {
		id, err := strconv.Atoi(q)
		if err != nil {
			http.Error(w, "invalid sensor id", http.StatusBadRequest)
			return
		}
		var filtered []models.Reading
		for _, rd := range readings {
			if rd.SensorID == id {
				filtered = append(filtered, rd)
			}
		}
		readings = filtered
	}

	out := make([]currentReading, 0, len(readings))
	for _, rd := range readings {
		level, desc := health.RiskLevel(rd.PM25)
		out = append(out, currentReading{
			SensorID:  rd.SensorID,
			PM25:      rd.PM25,
			Timestamp: rd.Timestamp,
			RiskLevel: level,
			Advice:    desc,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) handleSensors(w http.ResponseWriter, r *http.Request) {
	sensors, err := s.store.GetSensors()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sensors)
}

type dailyEntry struct {
	Date        string  `json:"date"`
	SensorID    int     `json:"sensor_id"`
	PM25Avg     float64 `json:"pm25_avg"`
	PM25Min     float64 `json:"pm25_min"`
	PM25Max     float64 `json:"pm25_max"`
	SampleCount int     `json:"sample_count"`
	Category    string  `json:"category"`
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	sensorID, from, to, err := dailyParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summaries, err := s.store.GetDailySummaries(sensorID, from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]dailyEntry, 0, len(summaries))
	for _, d := range summaries {
		out = append(out, dailyEntry{
			Date:        d.Date.Format("2006-01-02"),
			SensorID:    d.SensorID,
			PM25Avg:     d.PM25Avg,
			PM25Min:     d.PM25Min,
			PM25Max:     d.PM25Max,
			SampleCount: d.SampleCount,
			Category:    health.Categorize(d.PM25Avg).Label,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) handleDailyChart(w http.ResponseWriter, r *http.Request) {
	sensorID, from, to, err := dailyParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summaries, err := s.store.GetDailySummaries(sensorID, from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(summaries) == 0 {
		http.Error(w, "no data for period", http.StatusNotFound)
		return
	}

	title := "Daily PM2.5 Averages"
	if sensorID != 0 {
		title = "Sensor " + strconv.Itoa(sensorID) + " - Daily PM2.5 Averages"
	}
	data, err := plot.RenderDailySeries(title, summaries)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Write(data)
}

// dailyParams reads ?sensor=, ?from=, ?to= with a trailing-30-days
// default window.
func dailyParams(r *http.Request) (sensorID int, from, to time.Time, err error) {
	q := r.URL.Query()

	if v := q.Get("sensor"); v != "" {
		sensorID, err = strconv.Atoi(v)
		if err != nil {
			return 0, from, to, errors.New("invalid sensor id")
		}
	}

	to = time.Now().UTC()
	from = to.AddDate(0, 0, -30)
	if v := q.Get("from"); v != "" {
		from, err = time.Parse("2006-01-02", v)
		if err != nil {
			return 0, from, to, errors.New("invalid from date")
		}
	}
	if v := q.Get("to"); v != "" {
		to, err = time.Parse("2006-01-02", v)
		if err != nil {
			return 0, from, to, errors.New("invalid to date")
		}
	}
	return sensorID, from, to, nil
}

type rangeResponse struct {
	Rows     int            `json:"rows"`
	Readings []rangeReading `json:"readings"`
}

type rangeReading struct {
	SensorID   int      `json:"sensor_id"`
	MeasuredAt string   `json:"measured_at,omitempty"`
	PM25       float64  `json:"pm25"`
	Location   string   `json:"location,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
}

// handleRange loads archive rows on demand. Requests are capped per
// file so one query cannot read years of data into memory.
func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	startYear, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		http.Error(w, "year parameter required", http.StatusBadRequest)
		return
	}

	opts := ingest.RangeOptions{StartYear: startYear, MaxRowsPerFile: 10000}
	if v := q.Get("end_year"); v != "" {
		if opts.EndYear, err = strconv.Atoi(v); err != nil {
			http.Error(w, "invalid end_year", http.StatusBadRequest)
			return
		}
	}
	if opts.Months, err = intList(q.Get("months")); err != nil {
		http.Error(w, "invalid months", http.StatusBadRequest)
		return
	}
	if opts.Sensors, err = intList(q.Get("sensors")); err != nil {
		http.Error(w, "invalid sensors", http.StatusBadRequest)
		return
	}

	rows, err := s.loader.LoadPM25(opts, true)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ingest.ErrNoMatchingFiles) || errors.Is(err, ingest.ErrDirectoryNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	resp := rangeResponse{Rows: len(rows), Readings: make([]rangeReading, 0, len(rows))}
	for _, m := range rows {
		rr := rangeReading{SensorID: m.SensorID, PM25: m.PM25.Float64}
		if m.MeasuredAt.Valid {
			rr.MeasuredAt = m.MeasuredAt.Time.Format("2006-01-02 15:04:05")
		}
		if m.Location.Valid {
			rr.Location = m.Location.String
		}
		if m.Latitude.Valid {
			lat := m.Latitude.Float64
			rr.Latitude = &lat
		}
		if m.Longitude.Valid {
			lon := m.Longitude.Float64
			rr.Longitude = &lon
		}
		resp.Readings = append(resp.Readings, rr)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func intList(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
