// Package scrape downloads live hourly readings from the airquality.am
// feed and caches them for a short TTL.
package scrape

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"

	"github.com/aramyan/yerevanair/internal/httputil"
	"github.com/aramyan/yerevanair/internal/ingest"
	"github.com/aramyan/yerevanair/internal/metrics"
	"github.com/aramyan/yerevanair/internal/models"
)

const (
	// DefaultBaseURL is the public feed root. One CSV per calendar
	// year, appended hourly.
	DefaultBaseURL = "https://airquality.am/data/sensor_avg_hourly/"

	// cacheTTL bounds how stale a "current" reading may be. The feed
	// updates hourly, so five minutes is already generous.
	cacheTTL = 5 * time.Minute

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Client fetches and caches live readings. Safe for concurrent use.
type Client struct {
	baseURL string
	client  *http.Client
	clock   clockwork.Clock

	mu        sync.Mutex
	cached    []models.Reading
	fetchedAt time.Time
}

type Option func(*Client)

// WithBaseURL points the client at a different feed root, used by the
// tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithClock substitutes the wall clock, used by the tests to control
// cache expiry.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithHTTPClient substitutes the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		client:  httputil.NewClient(),
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) feedURL() string {
	return fmt.Sprintf("%ssensor_avg_hourly_%d.csv", c.baseURL, c.clock.Now().Year())
}

// CurrentReadings returns the latest reading per sensor, serving from
// the cache while it is fresh. A failed download is logged and yields
// an empty slice so interactive callers can fall back to file data.
func (c *Client) CurrentReadings() []models.Reading {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && c.clock.Since(c.fetchedAt) < cacheTTL {
		metrics.ScrapeCacheHits.Inc()
		return c.cached
	}

	readings, err := c.fetch()
	if err != nil {
		log.Printf("scrape: %v", err)
		return nil
	}
	c.cached = readings
	c.fetchedAt = c.clock.Now()
	return readings
}

// SensorReading returns the latest reading for one sensor, or false
// when the sensor is absent from the feed (or the feed is down).
func (c *Client) SensorReading(sensorID int) (models.Reading, bool) {
	for _, r := range c.CurrentReadings() {
		if r.SensorID == sensorID {
			return r, true
		}
	}
	return models.Reading{}, false
}

// Refresh drops the cache and downloads fresh data.
func (c *Client) Refresh() ([]models.Reading, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	readings, err := c.fetch()
	if err != nil {
		return nil, err
	}
	c.cached = readings
	c.fetchedAt = c.clock.Now()
	return readings, nil
}

// fetch downloads the current year's feed and reduces it to the most
// recent reading per sensor. Caller holds the mutex.
func (c *Client) fetch() ([]models.Reading, error) {
	url := c.feedURL()
	start := c.clock.Now()

	var body []byte
	operation := func() error {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("fetch feed: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
			return fmt.Errorf("feed unavailable: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			metrics.ScrapeRequests.WithLabelValues("error").Inc()
			return backoff.Permanent(fmt.Errorf("fetch feed: status %d", resp.StatusCode))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read feed: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(operation, bo); err != nil {
		metrics.ScrapeRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.ScrapeRequests.WithLabelValues("ok").Inc()
	metrics.ScrapeLatency.Observe(c.clock.Since(start).Seconds())

	return parseFeed(url, body, c.clock.Now())
}

// parseFeed runs the feed through the same parse and normalization
// pipeline as the archive files, then keeps each sensor's newest row.
func parseFeed(name string, body []byte, now time.Time) ([]models.Reading, error) {
	table, err := ingest.ParseBytes(name, body)
	if err != nil {
		return nil, err
	}
	if err := ingest.NormalizeColumns(table); err != nil {
		return nil, err
	}

	rows := ingest.FilterQuality(ingest.ToMeasurements(table, now.Year(), int(now.Month())))

	latest := make(map[int]models.Reading)
	for _, m := range rows {
		if m.SensorID == 0 {
			continue
		}
		ts := now
		if m.MeasuredAt.Valid {
			ts = m.MeasuredAt.Time
		}
		if prev, ok := latest[m.SensorID]; ok && !ts.After(prev.Timestamp) {
			continue
		}
		latest[m.SensorID] = models.Reading{
			SensorID:    m.SensorID,
			PM25:        m.PM25.Float64,
			Timestamp:   ts,
			Temperature: m.Temperature,
			Humidity:    m.Humidity,
		}
	}

	readings := make([]models.Reading, 0, len(latest))
	for _, r := range latest {
		readings = append(readings, r)
	}
	sort.Slice(readings, func(i, j int) bool { return readings[i].SensorID < readings[j].SensorID })
	return readings, nil
}
