package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aramyan/yerevanair/internal/ingest"
	"github.com/aramyan/yerevanair/internal/models"
	"github.com/aramyan/yerevanair/internal/scrape"
	"github.com/aramyan/yerevanair/internal/store"
)

const liveFeed = `SET
sensor_id,timestamp,pm2.5
41,2025-06-01 11:00:00,18.5
7,2025-06-01 11:00:00,4.0
`

func setupServer(t *testing.T) *Server {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	// Archive fixture for the range endpoint.
	dataDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dataDir, "measurements"), 0o755); err != nil {
		t.Fatal(err)
	}
	month := "SET\nsensor_id,timestamp,pm2.5\n41,2025-01-10 08:00:00,12.5\n7,2025-01-10 08:00:00,30.2\n"
	if err := os.WriteFile(filepath.Join(dataDir, "measurements", "measurements_2025_01.csv"), []byte(month), 0o644); err != nil {
		t.Fatal(err)
	}
	sensors := "id,title,latitude,longitude\n41,Avan,40.2169,44.5752\n7,Davtashen,40.2295,44.4870\n"
	if err := os.WriteFile(filepath.Join(dataDir, "sensors.csv"), []byte(sensors), 0o644); err != nil {
		t.Fatal(err)
	}

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(liveFeed))
	}))
	t.Cleanup(feed.Close)
	scraper := scrape.New(scrape.WithBaseURL(feed.URL+"/"), scrape.WithHTTPClient(feed.Client()))

	return NewServer(st, ingest.NewLoader(dataDir), scraper, "0")
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv := setupServer(t)
	rec := get(t, srv, "/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}

func TestHandleCurrent(t *testing.T) {
	srv := setupServer(t)
	rec := get(t, srv, "/api/current")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var readings []struct {
		SensorID  int     `json:"sensor_id"`
		PM25      float64 `json:"pm25"`
		RiskLevel string  `json:"risk_level"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &readings); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("got %d readings, want 2", len(readings))
	}
	if readings[0].SensorID != 7 || readings[0].RiskLevel != "Good" {
		t.Errorf("readings[0] = %+v", readings[0])
	}
	if readings[1].SensorID != 41 || readings[1].RiskLevel != "Unhealthy for Sensitive Groups" {
		t.Errorf("readings[1] = %+v", readings[1])
	}
}

func TestHandleCurrentSensorFilter(t *testing.T) {
	srv := setupServer(t)

	rec := get(t, srv, "/api/current?sensor=41")
	var readings []struct {
		SensorID int `json:"sensor_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &readings); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(readings) != 1 || readings[0].SensorID != 41 {
		t.Errorf("readings = %+v", readings)
	}

	if rec := get(t, srv, "/api/current?sensor=abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad sensor id: status = %d, want 400", rec.Code)
	}
}

func TestHandleSensors(t *testing.T) {
	srv := setupServer(t)
	if err := srv.store.UpsertSensor(models.Sensor{SensorID: 41, Location: sql.NullString{String: "Avan", Valid: true}}); err != nil {
		t.Fatal(err)
	}

	rec := get(t, srv, "/api/sensors")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var sensors []models.Sensor
	if err := json.Unmarshal(rec.Body.Bytes(), &sensors); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sensors) != 1 || sensors[0].SensorID != 41 {
		t.Errorf("sensors = %+v", sensors)
	}
}

func TestHandleDaily(t *testing.T) {
	srv := setupServer(t)

	day := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	var batch []models.Measurement
	for h := 0; h < 24; h++ {
		batch = append(batch, models.Measurement{
			SensorID:   41,
			MeasuredAt: sql.NullTime{Time: day.Add(time.Duration(h) * time.Hour), Valid: true},
			PM25:       sql.NullFloat64{Float64: 20, Valid: true},
		})
	}
	if _, err := srv.store.InsertMeasurements(batch); err != nil {
		t.Fatal(err)
	}
	if err := srv.store.RefreshDailySummaries(); err != nil {
		t.Fatal(err)
	}

	rec := get(t, srv, "/api/daily?sensor=41&from=2025-01-01&to=2025-02-01")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var entries []struct {
		Date     string  `json:"date"`
		PM25Avg  float64 `json:"pm25_avg"`
		Category string  `json:"category"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Date != "2025-01-10" || entries[0].PM25Avg != 20 {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[0].Category != "Unhealthy for Sensitive Groups" {
		t.Errorf("category = %q", entries[0].Category)
	}

	chart := get(t, srv, "/chart/daily?sensor=41&from=2025-01-01&to=2025-02-01")
	if chart.Code != http.StatusOK {
		t.Fatalf("chart status = %d", chart.Code)
	}
	if ct := chart.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("chart content type = %q", ct)
	}
}

func TestHandleDailyChartNoData(t *testing.T) {
	srv := setupServer(t)
	if rec := get(t, srv, "/chart/daily?from=2025-01-01&to=2025-02-01"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleRange(t *testing.T) {
	srv := setupServer(t)

	rec := get(t, srv, "/api/range?year=2025&months=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Rows     int `json:"rows"`
		Readings []struct {
			SensorID int     `json:"sensor_id"`
			PM25     float64 `json:"pm25"`
			Location string  `json:"location"`
		} `json:"readings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Rows != 2 {
		t.Fatalf("rows = %d, want 2", resp.Rows)
	}
	if resp.Readings[0].Location != "Avan" {
		t.Errorf("readings[0] = %+v, want joined metadata", resp.Readings[0])
	}
}

func TestHandleRangeErrors(t *testing.T) {
	srv := setupServer(t)

	if rec := get(t, srv, "/api/range"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing year: status = %d, want 400", rec.Code)
	}
	if rec := get(t, srv, "/api/range?year=2019"); rec.Code != http.StatusNotFound {
		t.Errorf("no matching files: status = %d, want 404", rec.Code)
	}
	if rec := get(t, srv, "/api/range?year=2025&months=x"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad months: status = %d, want 400", rec.Code)
	}
}
