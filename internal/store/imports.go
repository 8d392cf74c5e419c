package store

import (
	"database/sql"
	"time"
)

// ImportRun records one archive import for auditing.
type ImportRun struct {
	ID           int64
	StartedAt    time.Time
	FinishedAt   sql.NullTime
	StartYear    int
	EndYear      int
	FilesRead    sql.NullInt64
	RowsLoaded   sql.NullInt64
	RowsStored   sql.NullInt64
	Success      bool
	ErrorMessage sql.NullString
}

// StartImportRun creates a new import run record and returns it.
func (s *Store) StartImportRun(startYear, endYear int) (*ImportRun, error) {
	run := &ImportRun{
		StartedAt: time.Now().UTC(),
		StartYear: startYear,
		EndYear:   endYear,
	}

	res, err := s.db.Exec(`
		INSERT INTO import_runs (started_at, start_year, end_year, success)
		VALUES (?, ?, ?, FALSE)
	`, run.StartedAt, run.StartYear, run.EndYear)
	if err != nil {
		return nil, err
	}
	run.ID, err = res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return run, nil
}

// FinishImportRun marks a run complete with its counters, or failed
// with an error message.
func (s *Store) FinishImportRun(run *ImportRun, filesRead, rowsLoaded, rowsStored int, runErr error) error {
	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	run.FilesRead = sql.NullInt64{Int64: int64(filesRead), Valid: true}
	run.RowsLoaded = sql.NullInt64{Int64: int64(rowsLoaded), Valid: true}
	run.RowsStored = sql.NullInt64{Int64: int64(rowsStored), Valid: true}
	run.Success = runErr == nil
	if runErr != nil {
		run.ErrorMessage = sql.NullString{String: runErr.Error(), Valid: true}
	}

	_, err := s.db.Exec(`
		UPDATE import_runs
		SET finished_at = ?, files_read = ?, rows_loaded = ?, rows_stored = ?, success = ?, error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.FilesRead, run.RowsLoaded, run.RowsStored, run.Success, run.ErrorMessage, run.ID)
	return err
}

// LastImportRun returns the most recent run, or nil when none exist.
func (s *Store) LastImportRun() (*ImportRun, error) {
	row := s.db.QueryRow(`
		SELECT id, started_at, finished_at, start_year, end_year, files_read, rows_loaded, rows_stored, success, error_message
		FROM import_runs
		ORDER BY id DESC
		LIMIT 1
	`)
	var run ImportRun
	err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.StartYear, &run.EndYear,
		&run.FilesRead, &run.RowsLoaded, &run.RowsStored, &run.Success, &run.ErrorMessage)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
