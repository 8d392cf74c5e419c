// Package menu implements the interactive console for exploring air
// quality data.
package menu

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aramyan/yerevanair/internal/advisory"
	"github.com/aramyan/yerevanair/internal/health"
	"github.com/aramyan/yerevanair/internal/ingest"
	"github.com/aramyan/yerevanair/internal/models"
	"github.com/aramyan/yerevanair/internal/plot"
	"github.com/aramyan/yerevanair/internal/report"
	"github.com/aramyan/yerevanair/internal/scrape"
)

// Menu drives the interactive session. Reader and writer are injected
// so tests can script a session.
type Menu struct {
	loader   *ingest.Loader
	scraper  *scrape.Client
	advisor  *advisory.Generator
	in       *bufio.Scanner
	out      io.Writer
	outDir   string
	thisYear int
}

func New(loader *ingest.Loader, scraper *scrape.Client, in io.Reader, out io.Writer) *Menu {
	m := &Menu{
		loader:   loader,
		scraper:  scraper,
		in:       bufio.NewScanner(in),
		out:      out,
		outDir:   ".",
		thisYear: time.Now().Year(),
	}

	// Narrative advisories are optional and need an API key.
	if gen, err := advisory.NewGenerator(); err != nil {
		log.Printf("menu: narrative advisories disabled: %v", err)
	} else {
		m.advisor = gen
	}
	return m
}

// SetOutputDir changes where reports and diagrams are written.
func (m *Menu) SetOutputDir(dir string) { m.outDir = dir }

// Run loops until the user exits or input ends.
func (m *Menu) Run() {
	for {
		m.printMenu()
		choice, ok := m.prompt("Choice")
		if !ok {
			return
		}
		switch strings.TrimSpace(choice) {
		case "1":
			m.currentQuality()
		case "2":
			m.compareLocations()
		case "3":
			m.healthReport()
		case "4":
			m.trendAnalysis()
		case "5":
			m.personalizedAdvice()
		case "6":
			m.drawDiagram()
		case "7":
			m.listSensors()
		case "0":
			fmt.Fprintln(m.out, "Goodbye!")
			return
		default:
			fmt.Fprintln(m.out, "Unknown option")
		}
	}
}

func (m *Menu) printMenu() {
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "YEREVAN AIR QUALITY")
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, " MAIN MENU:")
	fmt.Fprintln(m.out, "  1. Check current air quality (LIVE)")
	fmt.Fprintln(m.out, "  2. Compare air quality across locations")
	fmt.Fprintln(m.out, "  3. Generate health risk report")
	fmt.Fprintln(m.out, "  4. Analyze historical trends")
	fmt.Fprintln(m.out, "  5. Get personalized health advice")
	fmt.Fprintln(m.out, "  6. Draw air pollution diagram")
	fmt.Fprintln(m.out, "  7. List all available sensors")
	fmt.Fprintln(m.out, "  0. Exit")
	fmt.Fprintln(m.out)
}

func (m *Menu) prompt(label string) (string, bool) {
	fmt.Fprintf(m.out, "%s: ", label)
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

func (m *Menu) promptSensor() (int, bool) {
	m.printSensorOptions()
	for {
		text, ok := m.prompt("Enter sensor ID")
		if !ok {
			return 0, false
		}
		id, err := strconv.Atoi(text)
		if err != nil || !KnownSensor(id) {
			fmt.Fprintln(m.out, "  Unknown sensor, try again")
			continue
		}
		return id, true
	}
}

func (m *Menu) promptYear() (int, bool) {
	for {
		text, ok := m.prompt("Year")
		if !ok {
			return 0, false
		}
		year, err := strconv.Atoi(text)
		if err != nil || year < 2019 || year > m.thisYear+1 {
			fmt.Fprintln(m.out, "  Invalid year, try again")
			continue
		}
		return year, true
	}
}

func (m *Menu) promptMonth() (int, bool) {
	for {
		text, ok := m.prompt("Month (1-12)")
		if !ok {
			return 0, false
		}
		month, err := strconv.Atoi(text)
		if err != nil || month < 1 || month > 12 {
			fmt.Fprintln(m.out, "  Invalid month, try again")
			continue
		}
		return month, true
	}
}

func (m *Menu) printSensorOptions() {
	fmt.Fprintln(m.out, "\nAvailable sensors:")
	names, grouped := sensorsByDistrict()
	for _, name := range names {
		ids := make([]string, len(grouped[name]))
		for i, id := range grouped[name] {
			ids[i] = strconv.Itoa(id)
		}
		fmt.Fprintf(m.out, "  %-12s: %s\n", name, strings.Join(ids, ", "))
	}
}

// latestFromFiles falls back to the newest archived reading when the
// live feed has nothing for a sensor.
func (m *Menu) latestFromFiles(sensorID int) (models.Measurement, bool) {
	rows, err := m.loader.LoadPM25(ingest.RangeOptions{
		StartYear: m.thisYear - 1,
		EndYear:   m.thisYear,
		Sensors:   []int{sensorID},
	}, false)
	if err != nil || len(rows) == 0 {
		return models.Measurement{}, false
	}

	best := -1
	for i, r := range rows {
		if !r.MeasuredAt.Valid {
			continue
		}
		if best < 0 || r.MeasuredAt.Time.After(rows[best].MeasuredAt.Time) {
			best = i
		}
	}
	if best < 0 {
		return models.Measurement{}, false
	}
	return rows[best], true
}

func (m *Menu) currentQuality() {
	sensorID, ok := m.promptSensor()
	if !ok {
		return
	}
	district := DistrictOf(sensorID)
	fmt.Fprintf(m.out, "\nFetching data for sensor %d (%s)...\n", sensorID, district)

	var pm25 float64
	var source string
	if live, ok := m.scraper.SensorReading(sensorID); ok {
		pm25, source = live.PM25, "LIVE"
	} else if file, ok := m.latestFromFiles(sensorID); ok {
		pm25, source = file.PM25.Float64, "FILE"
	} else {
		fmt.Fprintln(m.out, "  No data available")
		return
	}

	level, description := health.RiskLevel(pm25)
	fmt.Fprintf(m.out, "\n  Sensor:  %d (%s)\n", sensorID, district)
	fmt.Fprintf(m.out, "  PM2.5:   %.1f µg/m³ (%s)\n", pm25, source)
	fmt.Fprintf(m.out, "  Level:   %s\n", level)
	fmt.Fprintf(m.out, "  Note:    %s\n", description)
}

func (m *Menu) compareLocations() {
	live := m.scraper.CurrentReadings()
	byID := make(map[int]models.Reading, len(live))
	for _, r := range live {
		byID[r.SensorID] = r
	}

	type row struct {
		sensor   int
		district string
		pm25     float64
		source   string
	}
	var rows []row
	for id := range sensorDistricts {
		if r, ok := byID[id]; ok {
			rows = append(rows, row{id, DistrictOf(id), r.PM25, "LIVE"})
		} else if f, ok := m.latestFromFiles(id); ok {
			rows = append(rows, row{id, DistrictOf(id), f.PM25.Float64, "FILE"})
		}
	}
	if len(rows) == 0 {
		fmt.Fprintln(m.out, "  No data available")
		return
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].pm25 > rows[j].pm25 })

	fmt.Fprintf(m.out, "\n  %-6s %-12s %-8s %-6s %s\n", "Sensor", "District", "PM2.5", "Source", "Level")
	for _, r := range rows {
		level, _ := health.RiskLevel(r.pm25)
		fmt.Fprintf(m.out, "  %-6d %-12s %-8.1f %-6s %s\n", r.sensor, r.district, r.pm25, r.source, level)
	}
}

func (m *Menu) healthReport() {
	year, ok := m.promptYear()
	if !ok {
		return
	}
	month, ok := m.promptMonth()
	if !ok {
		return
	}

	var assessments []report.SensorAssessment
	for _, id := range sortedSensorIDs() {
		rows, err := m.loader.LoadPM25(ingest.RangeOptions{
			StartYear: year,
			Months:    []int{month},
			Sensors:   []int{id},
		}, false)
		if err != nil || len(rows) == 0 {
			continue
		}
		if a, ok := report.Assess(id, DistrictOf(id), rows); ok {
			assessments = append(assessments, a)
		}
	}
	if len(assessments) == 0 {
		fmt.Fprintln(m.out, "  No data for that period")
		return
	}

	for _, a := range assessments {
		fmt.Fprintf(m.out, "  Sensor %d (%s): %.1f µg/m³ - %s\n",
			a.SensorID, a.District, a.MeanPM25, a.Category.Label)
	}

	path := m.outPath(report.Filename(year, month))
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(m.out, "  Could not write report: %v\n", err)
		return
	}
	defer f.Close()
	if err := report.Write(f, time.Now(), assessments); err != nil {
		fmt.Fprintf(m.out, "  Could not write report: %v\n", err)
		return
	}
	fmt.Fprintf(m.out, "\n  Report saved as %s\n", path)
}

func (m *Menu) trendAnalysis() {
	year, ok := m.promptYear()
	if !ok {
		return
	}
	month, ok := m.promptMonth()
	if !ok {
		return
	}

	rows, err := m.loader.LoadPM25(ingest.RangeOptions{StartYear: year, Months: []int{month}}, false)
	if err != nil {
		fmt.Fprintf(m.out, "  Load failed: %v\n", err)
		return
	}

	days := ingest.DailyAverages(rows)
	if len(days) == 0 {
		fmt.Fprintln(m.out, "  Not enough data for daily averages")
		return
	}

	fmt.Fprintf(m.out, "\n  Daily averages for %d-%02d:\n", year, month)
	for _, d := range days {
		level, _ := health.RiskLevel(d.PM25Avg)
		fmt.Fprintf(m.out, "  %s  %6.1f µg/m³  %s\n", d.Date.Format("2006-01-02"), d.PM25Avg, level)
	}
}

func (m *Menu) personalizedAdvice() {
	sensorID, ok := m.promptSensor()
	if !ok {
		return
	}

	fmt.Fprintln(m.out, "\nYour profile:")
	fmt.Fprintln(m.out, "  1. Sensitive (asthma, respiratory)")
	fmt.Fprintln(m.out, "  2. Athlete")
	fmt.Fprintln(m.out, "  3. Elderly (65+)")
	fmt.Fprintln(m.out, "  4. Parent")
	choice, ok := m.prompt("Choice (1-4)")
	if !ok {
		return
	}
	profile := health.ProfileSensitive
	if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(health.Profiles) {
		profile = health.Profiles[n-1]
	}

	var pm25 float64
	var source string
	if live, ok := m.scraper.SensorReading(sensorID); ok {
		pm25, source = live.PM25, "LIVE"
	} else if file, ok := m.latestFromFiles(sensorID); ok {
		pm25, source = file.PM25.Float64, "FILE"
	} else {
		fmt.Fprintln(m.out, "  No data available")
		return
	}

	level, _ := health.RiskLevel(pm25)
	fmt.Fprintf(m.out, "\n  Current: %.1f µg/m³ (%s) - %s\n", pm25, source, level)
	fmt.Fprintf(m.out, "  Profile: %s\n", profile)
	fmt.Fprintf(m.out, "  Advice:  %s\n", health.Advice(profile, pm25))

	if m.advisor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if text, err := m.advisor.Generate(ctx, DistrictOf(sensorID), pm25, profile); err == nil {
			fmt.Fprintf(m.out, "\n  %s\n", text)
		} else {
			log.Printf("menu: advisory: %v", err)
		}
	}
}

func (m *Menu) drawDiagram() {
	year, ok := m.promptYear()
	if !ok {
		return
	}
	month, ok := m.promptMonth()
	if !ok {
		return
	}
	fmt.Fprintf(m.out, "\nGenerating diagram for %d-%02d...\n", year, month)

	rows, err := m.loader.LoadPM25(ingest.RangeOptions{StartYear: year, Months: []int{month}}, true)
	if err != nil {
		fmt.Fprintf(m.out, "  Load failed: %v\n", err)
		return
	}

	days := ingest.DailyAverages(rows)
	if len(days) > 0 {
		title := fmt.Sprintf("PM2.5 Daily Averages %d-%02d", year, month)
		if data, err := plot.RenderDailySeries(title, days); err == nil {
			path := m.outPath(fmt.Sprintf("diagram_%d_%02d.png", year, month))
			if err := os.WriteFile(path, data, 0o644); err == nil {
				fmt.Fprintf(m.out, "  Diagram saved: %s\n", path)
			} else {
				fmt.Fprintf(m.out, "  Could not save diagram: %v\n", err)
			}
		}
	}

	if bars := districtMeans(rows); len(bars) > 0 {
		title := fmt.Sprintf("Top Districts by Pollution %d-%02d", year, month)
		if data, err := plot.RenderDistrictBars(title, bars); err == nil {
			path := m.outPath(fmt.Sprintf("districts_%d_%02d.png", year, month))
			if err := os.WriteFile(path, data, 0o644); err == nil {
				fmt.Fprintf(m.out, "  District chart saved: %s\n", path)
			}
		}
	}

	var values []float64
	for _, r := range rows {
		if r.PM25.Valid {
			values = append(values, r.PM25.Float64)
		}
	}
	if len(values) > 0 {
		title := fmt.Sprintf("PM2.5 Distribution %d-%02d", year, month)
		if data, err := plot.RenderHistogram(title, values, 5); err == nil {
			path := m.outPath(fmt.Sprintf("histogram_%d_%02d.png", year, month))
			if err := os.WriteFile(path, data, 0o644); err == nil {
				fmt.Fprintf(m.out, "  Histogram saved: %s\n", path)
			}
		}
	}

	printPeriodStats(m.out, rows)
}

func (m *Menu) listSensors() {
	m.printSensorOptions()
	fmt.Fprintf(m.out, "\n  %d sensors across %d districts\n", len(sensorDistricts), districtCount())
}

func (m *Menu) outPath(name string) string {
	if m.outDir == "" || m.outDir == "." {
		return name
	}
	return m.outDir + string(os.PathSeparator) + name
}

// districtMeans averages PM2.5 per district using the sensor table,
// falling back to joined metadata for sensors outside it.
func districtMeans(rows []models.Measurement) []plot.DistrictMean {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range rows {
		if !r.PM25.Valid {
			continue
		}
		district := DistrictOf(r.SensorID)
		if district == "Unknown" && r.Location.Valid {
			district = r.Location.String
		}
		if district == "Unknown" {
			continue
		}
		sums[district] += r.PM25.Float64
		counts[district]++
	}

	out := make([]plot.DistrictMean, 0, len(sums))
	for district, sum := range sums {
		out = append(out, plot.DistrictMean{District: district, PM25Mean: sum / float64(counts[district])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PM25Mean > out[j].PM25Mean })
	return out
}

func printPeriodStats(w io.Writer, rows []models.Measurement) {
	var sum, maxVal float64
	var n, above int
	for _, r := range rows {
		if !r.PM25.Valid {
			continue
		}
		v := r.PM25.Float64
		sum += v
		n++
		if v > maxVal {
			maxVal = v
		}
		if v > health.GuidelineAnnual {
			above++
		}
	}
	if n == 0 {
		return
	}
	fmt.Fprintf(w, "\n  Measurements: %d\n", n)
	fmt.Fprintf(w, "  Mean: %.1f µg/m³\n", sum/float64(n))
	fmt.Fprintf(w, "  Max: %.1f µg/m³\n", maxVal)
	fmt.Fprintf(w, "  Above WHO: %.1f%%\n", float64(above)/float64(n)*100)
}

func sortedSensorIDs() []int {
	ids := make([]int, 0, len(sensorDistricts))
	for id := range sensorDistricts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func districtCount() int {
	seen := make(map[string]bool)
	for _, d := range sensorDistricts {
		seen[d] = true
	}
	return len(seen)
}
