package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/aramyan/yerevanair/internal/api"
	"github.com/aramyan/yerevanair/internal/health"
	"github.com/aramyan/yerevanair/internal/ingest"
	"github.com/aramyan/yerevanair/internal/menu"
	"github.com/aramyan/yerevanair/internal/models"
	"github.com/aramyan/yerevanair/internal/report"
	"github.com/aramyan/yerevanair/internal/scrape"
	"github.com/aramyan/yerevanair/internal/store"
)

type Globals struct {
	DataDir string `help:"Directory holding measurements/ and sensors.csv." default:"data/raw" env:"YEREVANAIR_DATA_DIR"`
	DB      string `help:"Path to the SQLite database." default:"data/yerevanair.db" env:"YEREVANAIR_DB"`
}

type cli struct {
	Globals

	Menu   MenuCmd   `cmd:"" default:"1" help:"Interactive air quality console."`
	Serve  ServeCmd  `cmd:"" help:"Run the HTTP API server."`
	Import ImportCmd `cmd:"" help:"Import archive files into the database."`
	Report ReportCmd `cmd:"" help:"Write a health risk report for one month."`
	Scrape ScrapeCmd `cmd:"" help:"Print the current live readings."`
}

func main() {
	var c cli
	ctx := kong.Parse(&c,
		kong.Name("yerevanair"),
		kong.Description("Yerevan air quality monitoring toolkit."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)
	ctx.FatalIfErrorf(ctx.Run(&c.Globals))
}

func openStore(g *Globals) (*store.Store, func(), error) {
	db, err := sql.Open("sqlite", g.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return st, func() { db.Close() }, nil
}

type MenuCmd struct{}

func (cmd *MenuCmd) Run(g *Globals) error {
	loader := ingest.NewLoader(g.DataDir)
	scraper := scrape.New()
	menu.New(loader, scraper, os.Stdin, os.Stdout).Run()
	return nil
}

type ServeCmd struct {
	Port string `help:"HTTP server port." default:"8080" env:"YEREVANAIR_PORT"`
}

func (cmd *ServeCmd) Run(g *Globals) error {
	st, closeDB, err := openStore(g)
	if err != nil {
		return err
	}
	defer closeDB()

	loader := ingest.NewLoader(g.DataDir)
	scraper := scrape.New()
	server := api.NewServer(st, loader, scraper, cmd.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("serving on :%s", cmd.Port)
	return server.Run(ctx)
}

type ImportCmd struct {
	StartYear int  `help:"First year to import." required:""`
	EndYear   int  `help:"Last year to import (defaults to start year)."`
	Summaries bool `help:"Recompute daily summaries after the import." default:"true" negatable:""`
}

func (cmd *ImportCmd) Run(g *Globals) error {
	if cmd.EndYear == 0 {
		cmd.EndYear = cmd.StartYear
	}

	st, closeDB, err := openStore(g)
	if err != nil {
		return err
	}
	defer closeDB()

	loader := ingest.NewLoader(g.DataDir)

	sensors, err := loader.Sensors().Sensors()
	if err != nil {
		return fmt.Errorf("load sensor metadata: %w", err)
	}
	for _, sn := range sensors {
		if err := st.UpsertSensor(sn); err != nil {
			return fmt.Errorf("upsert sensor %d: %w", sn.SensorID, err)
		}
	}
	log.Printf("import: %d sensors seeded", len(sensors))

	run, err := st.StartImportRun(cmd.StartYear, cmd.EndYear)
	if err != nil {
		return fmt.Errorf("start import run: %w", err)
	}

	opts := ingest.RangeOptions{StartYear: cmd.StartYear, EndYear: cmd.EndYear}
	rows, err := loader.LoadPM25(opts, false)
	if err != nil {
		st.FinishImportRun(run, 0, 0, 0, err)
		return fmt.Errorf("load range: %w", err)
	}

	stored, err := st.InsertMeasurements(rows)
	if err != nil {
		st.FinishImportRun(run, 0, len(rows), 0, err)
		return fmt.Errorf("store measurements: %w", err)
	}

	files, _ := ingest.ListMeasurementFiles(filepath.Join(g.DataDir, "measurements"))
	if err := st.FinishImportRun(run, len(files), len(rows), stored, nil); err != nil {
		return fmt.Errorf("finish import run: %w", err)
	}
	log.Printf("import: %d rows loaded, %d new", len(rows), stored)

	if cmd.Summaries {
		if err := st.RefreshDailySummaries(); err != nil {
			return fmt.Errorf("refresh daily summaries: %w", err)
		}
		log.Printf("import: daily summaries refreshed")
	}
	return nil
}

type ReportCmd struct {
	Year    int    `help:"Year to assess." required:""`
	Month   int    `help:"Month to assess." required:""`
	Sensors []int  `help:"Sensor ids to include (default: all with data)."`
	Output  string `help:"Output file (default: conventional name in the working directory)."`
}

func (cmd *ReportCmd) Run(g *Globals) error {
	loader := ingest.NewLoader(g.DataDir)

	opts := ingest.RangeOptions{StartYear: cmd.Year, Months: []int{cmd.Month}, Sensors: cmd.Sensors}
	rows, err := loader.LoadPM25(opts, true)
	if err != nil {
		return fmt.Errorf("load range: %w", err)
	}

	bySensor := make(map[int][]models.Measurement)
	for _, m := range rows {
		bySensor[m.SensorID] = append(bySensor[m.SensorID], m)
	}
	sensorIDs := make([]int, 0, len(bySensor))
	for id := range bySensor {
		sensorIDs = append(sensorIDs, id)
	}
	sort.Ints(sensorIDs)

	var assessments []report.SensorAssessment
	for _, sensorID := range sensorIDs {
		subset := bySensor[sensorID]
		district := ""
		if subset[0].Location.Valid {
			district = subset[0].Location.String
		}
		if a, ok := report.Assess(sensorID, district, subset); ok {
			assessments = append(assessments, a)
		}
	}
	if len(assessments) == 0 {
		return fmt.Errorf("no data for %d-%02d", cmd.Year, cmd.Month)
	}

	out := cmd.Output
	if out == "" {
		out = report.Filename(cmd.Year, cmd.Month)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	if err := report.Write(f, time.Now(), assessments); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	log.Printf("report: saved %s (%d sensors)", out, len(assessments))
	return nil
}

type ScrapeCmd struct{}

func (cmd *ScrapeCmd) Run(g *Globals) error {
	scraper := scrape.New()
	readings, err := scraper.Refresh()
	if err != nil {
		return fmt.Errorf("fetch live feed: %w", err)
	}
	if len(readings) == 0 {
		fmt.Println("no current readings")
		return nil
	}
	for _, r := range readings {
		level, _ := health.RiskLevel(r.PM25)
		fmt.Printf("sensor %3d  %6.1f µg/m³  %-30s %s\n",
			r.SensorID, r.PM25, level, r.Timestamp.Format("2006-01-02 15:04"))
	}
	return nil
}
