package ingest

import (
	"errors"
	"testing"
)

func TestNormalizeColumns(t *testing.T) {
	tests := []struct {
		name     string
		header   []string
		wantPM25 int
		wantTime int
	}{
		{
			name:     "exact pm2.5",
			header:   []string{"sensor_id", "timestamp", "pm2.5"},
			wantPM25: 2,
			wantTime: 1,
		},
		{
			name:     "exact beats substring",
			header:   []string{"pm2.5_raw", "pm2.5", "date"},
			wantPM25: 1,
			wantTime: 2,
		},
		{
			name:     "corrected over plain pm25",
			header:   []string{"pm25", "pm2.5_corrected"},
			wantPM25: 1,
			wantTime: -1,
		},
		{
			name:     "substring fallback",
			header:   []string{"sensor", "avg_pm2.5_ugm3", "time"},
			wantPM25: 1,
			wantTime: 2,
		},
		{
			name:     "pm10 never matches",
			header:   []string{"sensor_id", "pm10", "pm2.5", "date"},
			wantPM25: 2,
			wantTime: 3,
		},
		{
			name:     "mixed case",
			header:   []string{"Sensor_ID", "Datetime", "PM2.5"},
			wantPM25: 2,
			wantTime: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := newRawTable(tt.header, nil)
			if err := NormalizeColumns(table); err != nil {
				t.Fatalf("NormalizeColumns: %v", err)
			}
			if table.PM25Col != tt.wantPM25 {
				t.Errorf("PM25Col = %d, want %d", table.PM25Col, tt.wantPM25)
			}
			if table.TimeCol != tt.wantTime {
				t.Errorf("TimeCol = %d, want %d", table.TimeCol, tt.wantTime)
			}
			if table.Header[tt.wantPM25] != "pm25" {
				t.Errorf("header[%d] = %q, want pm25", tt.wantPM25, table.Header[tt.wantPM25])
			}
		})
	}
}

func TestNormalizeColumnsIdempotent(t *testing.T) {
	table := newRawTable([]string{"sensor_id", "date", "pm2.5"}, nil)
	if err := NormalizeColumns(table); err != nil {
		t.Fatal(err)
	}
	if err := NormalizeColumns(table); err != nil {
		t.Fatalf("second normalization: %v", err)
	}
	if table.PM25Col != 2 || table.Header[2] != "pm25" {
		t.Errorf("PM25Col = %d, header = %v", table.PM25Col, table.Header)
	}
}

func TestNormalizeColumnsNotFound(t *testing.T) {
	tests := []struct {
		name   string
		header []string
	}{
		{"no candidates", []string{"sensor_id", "timestamp", "humidity"}},
		{"only pm10 variants", []string{"sensor_id", "pm10", "pm10_std"}},
		{"substring blocked by 10", []string{"sensor_id", "pm25_pm10_ratio"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := newRawTable(tt.header, nil)
			err := NormalizeColumns(table)
			var cnf *ColumnNotFoundError
			if !errors.As(err, &cnf) {
				t.Fatalf("err = %v, want ColumnNotFoundError", err)
			}
			if len(cnf.Columns) != len(tt.header) {
				t.Errorf("Columns = %v, want the full header", cnf.Columns)
			}
		})
	}
}
