package backup

import (
	"errors"
	"fmt"
)

// Sentinel errors raised before any row is processed.
var (
	// ErrNotAuthorized is returned when the caller lacks the rights required
	// by the requested import mode.
	ErrNotAuthorized = errors.New("caller lacks the rights required for this import mode")

	// ErrModeMismatch is returned when the file's declared mode disagrees
	// with the mode the caller requested.
	ErrModeMismatch = errors.New("file mode does not match the requested import mode")
)

// FormatError describes a malformed backup file. It always carries the
// 1-based source line number of the offending line; when a read failure of
// the underlying stream caused it, Err holds that failure for errors.Is/As.
type FormatError struct {
	Line int
	Msg  string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func (e *FormatError) Unwrap() error { return e.Err }

func formatErrorf(line int, format string, args ...any) *FormatError {
	return &FormatError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// ReferenceError is raised during single-tenant import when a dependent
// record references a parent identifier that has not been translated yet.
// The whole import aborts and rolls back.
type ReferenceError struct {
	Section string
	Line    int
	Kind    IDKind
	OldID   int64
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("section %s, line %d: references %s %d which was not seen earlier in this file",
		e.Section, e.Line, e.Kind, e.OldID)
}

// importError annotates a handler or hook failure with the record's section
// and source line. Errors that already carry that context pass through.
func importError(rec *Record, err error) error {
	var fe *FormatError
	var re *ReferenceError
	if errors.As(err, &fe) || errors.As(err, &re) {
		return err
	}
	return fmt.Errorf("section %s, line %d: %w", rec.Section(), rec.Line(), err)
}
