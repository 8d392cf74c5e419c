package ingest

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDirectoryNotFound is returned when the measurements directory
	// does not exist. Distinct from an existing-but-empty directory,
	// which yields an empty catalog.
	ErrDirectoryNotFound = errors.New("measurements directory not found")

	// ErrNoMatchingFiles is returned when a year/month selection matches
	// nothing in the catalog. Loading zero rows from matching files is
	// not an error; matching zero files is.
	ErrNoMatchingFiles = errors.New("no measurement files match the requested range")
)

// UnparsableFileError is returned when every parse strategy has failed
// on a file. The range loader logs it and skips the file.
type UnparsableFileError struct {
	Path string
}

func (e *UnparsableFileError) Error() string {
	return fmt.Sprintf("no parse strategy succeeded for %s", e.Path)
}

// ColumnNotFoundError is returned when a table has no recognizable
// PM2.5 column. There is no safe default for which column carries the
// concentration, so this always propagates to the caller.
type ColumnNotFoundError struct {
	Columns []string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("no PM2.5 column found in [%s]", strings.Join(e.Columns, ", "))
}
