package scrape

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

const feedCSV = `SET
sensor_id,timestamp,pm2.5,temperature,humidity
41,2025-06-01 10:00:00,12.5,21.0,44
41,2025-06-01 11:00:00,14.0,22.5,40
7,2025-06-01 11:00:00,8.2,20.1,50
7,2025-06-01 10:00:00,9.9,19.8,52
99,2025-06-01 11:00:00,2000,20.0,50
`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *clockwork.FakeClock) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	client := New(
		WithBaseURL(server.URL+"/"),
		WithClock(clock),
		WithHTTPClient(server.Client()),
	)
	return client, clock
}

func TestCurrentReadings(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(feedCSV))
	})

	readings := client.CurrentReadings()
	if gotPath != "/sensor_avg_hourly_2025.csv" {
		t.Errorf("requested %q", gotPath)
	}
	if len(readings) != 2 {
		t.Fatalf("got %d readings, want 2 (stuck sensor filtered)", len(readings))
	}

	if readings[0].SensorID != 7 || readings[0].PM25 != 8.2 {
		t.Errorf("readings[0] = %+v, want sensor 7 newest row", readings[0])
	}
	if readings[1].SensorID != 41 || readings[1].PM25 != 14.0 {
		t.Errorf("readings[1] = %+v, want sensor 41 newest row", readings[1])
	}
	want := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	if !readings[1].Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", readings[1].Timestamp, want)
	}
}

func TestCurrentReadingsCaching(t *testing.T) {
	var hits int
	client, clock := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(feedCSV))
	})

	client.CurrentReadings()
	client.CurrentReadings()
	if hits != 1 {
		t.Fatalf("server hit %d times inside the TTL, want 1", hits)
	}

	clock.Advance(6 * time.Minute)
	client.CurrentReadings()
	if hits != 2 {
		t.Fatalf("server hit %d times after expiry, want 2", hits)
	}
}

func TestCurrentReadingsFeedDown(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	if readings := client.CurrentReadings(); readings != nil {
		t.Errorf("got %v from a dead feed, want nil", readings)
	}
}

func TestSensorReading(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feedCSV))
	})

	r, ok := client.SensorReading(41)
	if !ok {
		t.Fatal("sensor 41 not found")
	}
	if r.PM25 != 14.0 {
		t.Errorf("PM25 = %v, want 14.0", r.PM25)
	}

	if _, ok := client.SensorReading(12345); ok {
		t.Error("unknown sensor reported present")
	}
}

func TestRefresh(t *testing.T) {
	responses := []string{
		"SET\nsensor_id,timestamp,pm2.5\n41,2025-06-01 10:00:00,12.5\n",
		"SET\nsensor_id,timestamp,pm2.5\n41,2025-06-01 11:00:00,30.0\n",
	}
	var call int
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(responses[call]))
		if call < len(responses)-1 {
			call++
		}
	})

	client.CurrentReadings()

	readings, err := client.Refresh()
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(readings) != 1 || readings[0].PM25 != 30.0 {
		t.Errorf("readings = %+v, want the fresh value", readings)
	}
}
