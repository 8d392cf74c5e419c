package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aramyan/yerevanair/internal/metrics"
)

// sentinel is the fixed non-data first line of every monthly export.
const sentinel = "SET"

// headerPrefixes are the name prefixes a row must consist of for the
// headerless strategy to promote it to a header.
var headerPrefixes = []string{"date", "sensor", "pm", "time"}

// RawTable is a rectangular parse of one CSV file before typed
// conversion. PM25Col and TimeCol are -1 until NormalizeColumns runs.
type RawTable struct {
	Header  []string
	Records [][]string
	PM25Col int
	TimeCol int
}

func newRawTable(header []string, records [][]string) *RawTable {
	return &RawTable{Header: header, Records: records, PM25Col: -1, TimeCol: -1}
}

type parseStrategy struct {
	name  string
	parse func(body []byte) (*RawTable, error)
}

// Ordered fallback chain: the strict read handles well-formed files,
// each later strategy tolerates progressively worse input. Later
// strategies are slower, so order matters.
var parseStrategies = []parseStrategy{
	{"strict", parseStrict},
	{"skip_bad_rows", parseSkipBadRows},
	{"lazy_quotes", parseLazyQuotes},
	{"headerless", parseHeaderless},
}

// ParseFile reads one measurement file into a RawTable, discarding the
// SET sentinel line and trying each parse strategy in order. If every
// strategy fails it returns an UnparsableFileError naming the file.
func ParseFile(path string) (*RawTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseBytes(path, data)
}

// ParseBytes is ParseFile for in-memory data. name is used only for
// error reporting.
func ParseBytes(name string, data []byte) (*RawTable, error) {
	body := stripSentinel(data)
	for _, s := range parseStrategies {
		t, err := s.parse(body)
		if err == nil && len(t.Header) > 0 {
			metrics.FilesParsed.WithLabelValues(s.name).Inc()
			return t, nil
		}
	}
	metrics.FileParseFailures.Inc()
	return nil, &UnparsableFileError{Path: name}
}

// stripSentinel removes the leading "SET" line when present. Files
// delivered without the sentinel (the live feed sometimes omits it)
// pass through unchanged.
func stripSentinel(data []byte) []byte {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return data
	}
	first := strings.TrimSpace(string(data[:i]))
	if first == sentinel {
		return data[i+1:]
	}
	return data
}

func parseStrict(body []byte) (*RawTable, error) {
	r := csv.NewReader(bytes.NewReader(body))
	header, err := r.Read()
	if err != nil {
		return nil, err
	}
	// FieldsPerRecord was fixed by the header read; any row with a
	// different column count fails the whole strategy.
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return newRawTable(header, records), nil
}

func parseSkipBadRows(body []byte) (*RawTable, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, err
	}
	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) != len(header) {
			continue
		}
		records = append(records, rec)
	}
	return newRawTable(header, records), nil
}

func parseLazyQuotes(body []byte) (*RawTable, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	header, err := r.Read()
	if err != nil {
		return nil, err
	}
	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(rec) != len(header) {
			continue
		}
		records = append(records, rec)
	}
	return newRawTable(header, records), nil
}

// parseHeaderless reads with no header assumption. If the first row
// looks like header labels it is promoted; otherwise columns get
// synthetic col_N names and the first row stays data.
func parseHeaderless(body []byte) (*RawTable, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, errors.New("no rows")
	}

	var header []string
	if looksLikeHeader(rows[0]) {
		header = rows[0]
		rows = rows[1:]
	} else {
		header = make([]string, len(rows[0]))
		for i := range header {
			header[i] = fmt.Sprintf("col_%d", i)
		}
	}

	records := rows[:0]
	for _, rec := range rows {
		if len(rec) == len(header) {
			records = append(records, rec)
		}
	}
	return newRawTable(header, records), nil
}

func looksLikeHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	for _, cell := range row {
		c := strings.ToLower(strings.TrimSpace(cell))
		ok := false
		for _, prefix := range headerPrefixes {
			if strings.HasPrefix(c, prefix) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
